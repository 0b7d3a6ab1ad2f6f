package l402http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ggoodman/l402-go/credential"
)

// Payer settles a bolt11 invoice and returns the hex payment preimage.
type Payer interface {
	Pay(ctx context.Context, invoice string) (preimage string, err error)
}

// PayerFunc adapts a function to Payer.
type PayerFunc func(ctx context.Context, invoice string) (string, error)

func (f PayerFunc) Pay(ctx context.Context, invoice string) (string, error) { return f(ctx, invoice) }

// Transport is an http.RoundTripper that answers L402 challenges. A 402
// response carrying an L402 challenge is paid with Payer and the request is
// retried once with the resulting proof. Requests with a body are only
// retried when the body can be replayed (Request.GetBody is set, as it is
// for bytes, strings and bytes.Reader bodies).
type Transport struct {
	// Base performs the requests. http.DefaultTransport when nil.
	Base http.RoundTripper
	// Payer settles challenge invoices.
	Payer Payer
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Payer == nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, errors.New("l402http: transport has no payer")
	}
	resp, err := t.base().RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusPaymentRequired {
		return resp, err
	}

	token, invoice, ok := findChallenge(resp.Header.Values(wwwAuthenticateHeader))
	if !ok {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	preimage, err := t.Payer.Pay(req.Context(), invoice)
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("l402http: pay invoice: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("l402http: replay body: %w", err)
		}
		retry.Body = body
	}
	retry.Header.Set(authorizationHeader, credential.ProofHeader(token, preimage))
	return t.base().RoundTrip(retry)
}

func findChallenge(values []string) (token, invoice string, ok bool) {
	for _, v := range values {
		token, invoice, err := credential.ParseChallengeHeader(v)
		if err == nil {
			return token, invoice, true
		}
	}
	return "", "", false
}

// Package logctx attaches request scoped attributes to slog records.
package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates records with the request and credential data stored in
// the record's context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("user_agent", rd.UserAgent),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("path", rd.Path),
		))
	}

	if cd, ok := ctx.Value(credentialDataKey{}).(*CredentialData); ok {
		attrs := []any{slog.String("payment_hash", cd.PaymentHash)}
		if cd.KeyID != "" {
			attrs = append(attrs, slog.String("kid", cd.KeyID))
		}
		r.AddAttrs(slog.Group("l402", attrs...))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{h.Handler.WithGroup(name)}
}

// Wrap returns l with its handler decorated by Handler. Loggers that are
// already wrapped are returned unchanged.
func Wrap(l *slog.Logger) *slog.Logger {
	if _, ok := l.Handler().(Handler); ok {
		return l
	}
	return slog.New(Handler{l.Handler()})
}

type requestDataKey struct{}

type RequestData struct {
	RequestID  string
	Method     string
	UserAgent  string
	RemoteAddr string
	Path       string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type credentialDataKey struct{}

// CredentialData identifies the credential a request presented. It never
// carries the preimage or the token.
type CredentialData struct {
	PaymentHash string
	KeyID       string
}

func WithCredentialData(ctx context.Context, data *CredentialData) context.Context {
	return context.WithValue(ctx, credentialDataKey{}, data)
}

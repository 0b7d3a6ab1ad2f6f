package credential

import (
	"fmt"
	"strings"
)

// Scheme is the HTTP authentication scheme name.
const Scheme = "L402"

// ChallengeHeader formats the WWW-Authenticate value a server returns with a
// 402 response:
//
//	L402 JWT="<token>", invoice="<bolt11>"
func ChallengeHeader(token, invoice string) string {
	return fmt.Sprintf(`%s JWT="%s", invoice="%s"`, Scheme, token, invoice)
}

// ProofHeader formats the Authorization value a client presents after paying:
//
//	L402 <token>:<preimage>
func ProofHeader(token, preimage string) string {
	return Scheme + " " + token + ":" + preimage
}

// ParseChallengeHeader extracts the token and invoice from a WWW-Authenticate
// value produced by ChallengeHeader. The legacy LSAT scheme, the "macaroon"
// and "token" parameter names, and a missing closing quote on the final
// parameter are accepted.
func ParseChallengeHeader(header string) (token, invoice string, err error) {
	scheme, rest, _ := strings.Cut(strings.TrimSpace(header), " ")
	if !strings.EqualFold(scheme, Scheme) && !strings.EqualFold(scheme, "LSAT") {
		return "", "", fmt.Errorf("%w: unexpected scheme %q", ErrMalformedHeader, scheme)
	}
	params, err := parseAuthParams(rest)
	if err != nil {
		return "", "", err
	}
	for k, v := range params {
		switch strings.ToLower(k) {
		case "jwt", "token", "macaroon":
			token = v
		case "invoice":
			invoice = v
		}
	}
	if token == "" || invoice == "" {
		return "", "", fmt.Errorf("%w: challenge requires token and invoice", ErrMalformedHeader)
	}
	return token, invoice, nil
}

// parseAuthParams parses a comma separated list of key="value" pairs.
func parseAuthParams(s string) (map[string]string, error) {
	out := map[string]string{}
	for {
		s = strings.TrimLeft(s, " \t,")
		if s == "" {
			return out, nil
		}
		key, rest, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected key=value", ErrMalformedHeader)
		}
		key = strings.TrimSpace(key)
		rest = strings.TrimLeft(rest, " \t")

		var val string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				// unterminated final value
				val, rest = rest[1:], ""
			} else {
				val, rest = rest[1:1+end], rest[2+end:]
			}
		} else {
			val, rest, _ = strings.Cut(rest, ",")
			val = strings.TrimSpace(val)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty parameter name", ErrMalformedHeader)
		}
		out[key] = val
		s = rest
	}
}

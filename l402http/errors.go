package l402http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ggoodman/l402-go/credential"
)

var (
	ErrNoSecret          = errors.New("l402http: a secret or keys file is required")
	ErrNoInvoiceProvider = errors.New("l402http: invoice provider is required")
)

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
)

// writeJSONError emits the transport-level rejection body.
// Shape: {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

// buildChallenge builds the WWW-Authenticate value for a 402 response.
// Without a realm it is exactly credential.ChallengeHeader.
//
//	L402 realm="<realm>", JWT="<token>", invoice="<bolt11>"
func buildChallenge(realm, token, invoice string) string {
	if realm == "" {
		return credential.ChallengeHeader(token, invoice)
	}
	esc := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace
	return fmt.Sprintf(`%s realm="%s", JWT="%s", invoice="%s"`, credential.Scheme, esc(realm), token, invoice)
}

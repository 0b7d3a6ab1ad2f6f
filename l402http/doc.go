// Package l402http gates HTTP handlers behind Lightning payments using the
// L402 scheme.
//
// Middleware answers unauthenticated requests with 402 Payment Required and a
// challenge:
//
//	WWW-Authenticate: L402 JWT="<token>", invoice="<bolt11>"
//
// After paying the invoice the client retries with
//
//	Authorization: L402 <token>:<preimage>
//
// and the request reaches the wrapped handler once the token signature, the
// payment preimage, the expiry and (optionally) the request body binding all
// check out. The verified credential is available to the handler through
// CredentialFromContext.
//
// Status mapping
//
//	no Authorization header            402 + challenge
//	malformed header or token payload  400
//	bad signature or unknown key       401
//	unpaid, expired or already redeemed 402 + fresh challenge
//	body does not match binding        401
//	invoice provider or ledger failure 500
//
// Credentials are reusable until they expire. WithLedger makes each payment
// good for exactly one request.
//
// Transport is the client side: an http.RoundTripper that pays challenges
// with a Payer and retries the request with the proof.
package l402http

package l402http

import (
	"context"

	"github.com/ggoodman/l402-go/credential"
)

type credentialKey struct{}

func withCredential(ctx context.Context, vc *credential.VerifiedCredential) context.Context {
	return context.WithValue(ctx, credentialKey{}, vc)
}

// CredentialFromContext returns the credential that authorized the request.
func CredentialFromContext(ctx context.Context) (*credential.VerifiedCredential, bool) {
	vc, ok := ctx.Value(credentialKey{}).(*credential.VerifiedCredential)
	return vc, ok && vc != nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier treats the assertion as an OpenID Connect ID token and the
// token subject as the verified identity.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier wraps an existing ID token verifier.
func NewOIDCVerifier(verifier *oidc.IDTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{verifier: verifier}
}

// DiscoverOIDC fetches the issuer's discovery document and builds a verifier
// for tokens issued to clientID. client is used for discovery and for later
// key set refreshes, so ctx must outlive the verifier.
func DiscoverOIDC(ctx context.Context, issuer, clientID string, client *http.Client) (*OIDCVerifier, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuer, err)
	}
	return NewOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// Verify checks the token signature, issuer, audience and expiry, then
// compares the subject with claimed.
func (v *OIDCVerifier) Verify(ctx context.Context, claimed, assertion string) (string, error) {
	token, err := v.verifier.Verify(ctx, assertion)
	if err != nil {
		if isTransportError(ctx, err) {
			return "", unavailable(err)
		}
		return "", rejected("%v", err)
	}
	return matchIdentity(claimed, token.Subject)
}

func isTransportError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Package issuer restricts where a login flow may redirect to: the
// authorization endpoint advertised by the OpenID issuer that started it,
// or, without an issuer, the origin the login service is published on.
package issuer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	autherrors "github.com/jrsteele09/go-auth-login/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Guard admits redirect targets on the issuer's authorization endpoint.
type Guard struct {
	issuer     string
	endpoint   oauth2.Endpoint
	authURL    *url.URL
	originOnly bool
}

// NewGuard discovers issuerURL's configuration.
func NewGuard(ctx context.Context, issuerURL string) (*Guard, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("[issuer.NewGuard] discover %s: %w", issuerURL, err)
	}
	return NewGuardForEndpoint(issuerURL, provider.Endpoint())
}

// NewGuardForEndpoint builds a guard from an already known endpoint.
func NewGuardForEndpoint(issuerURL string, endpoint oauth2.Endpoint) (*Guard, error) {
	authURL, err := url.Parse(endpoint.AuthURL)
	if err != nil || authURL.Host == "" {
		return nil, fmt.Errorf("[issuer.NewGuardForEndpoint] invalid authorization endpoint %q", endpoint.AuthURL)
	}
	return &Guard{issuer: issuerURL, endpoint: endpoint, authURL: authURL}, nil
}

// NewOriginGuard admits any redirect target on baseURL's scheme and host.
func NewOriginGuard(baseURL string) (*Guard, error) {
	origin, err := url.Parse(baseURL)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("[issuer.NewOriginGuard] invalid base URL %q", baseURL)
	}
	return &Guard{issuer: baseURL, authURL: origin, originOnly: true}, nil
}

// Endpoint returns the discovered OAuth2 endpoints.
func (g *Guard) Endpoint() oauth2.Endpoint {
	return g.endpoint
}

// Allow returns nil when redirectURI points at the authorization endpoint,
// or at the allowed origin for an origin guard. The query string is not
// compared; it carries the original request.
func (g *Guard) Allow(redirectURI string) error {
	target, err := url.Parse(redirectURI)
	if err != nil {
		return autherrors.Wrapf(autherrors.ErrRedirectNotAllowed, "%q", redirectURI)
	}

	if !strings.EqualFold(target.Scheme, g.authURL.Scheme) ||
		!strings.EqualFold(target.Host, g.authURL.Host) ||
		(!g.originOnly && strings.TrimSuffix(target.Path, "/") != strings.TrimSuffix(g.authURL.Path, "/")) {
		log.Warn().Str("redirect_uri", redirectURI).Str("issuer", g.issuer).Msg("Rejected redirect target")
		return autherrors.Wrapf(autherrors.ErrRedirectNotAllowed, "%q", redirectURI)
	}
	return nil
}

// Package transport exposes the intelligence core over HTTP. Auth and
// rate limiting live here, at the edge; the core packages never see them.
package transport

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnauthorized means the bearer token is missing or unknown.
var ErrUnauthorized = eris.New("transport: unauthorized")

// Authorizer resolves a bearer token to a principal.
type Authorizer interface {
	Verify(token string) (string, error)
}

// StaticAuthorizer verifies tokens against a fixed token→principal map.
// An empty map disables auth entirely and every caller becomes the
// anonymous principal; meant for local development only.
type StaticAuthorizer struct {
	tokens map[string]string
}

const anonymousPrincipal = "anonymous"

func NewStaticAuthorizer(tokens map[string]string) *StaticAuthorizer {
	return &StaticAuthorizer{tokens: tokens}
}

func (a *StaticAuthorizer) Verify(token string) (string, error) {
	if len(a.tokens) == 0 {
		return anonymousPrincipal, nil
	}
	principal, ok := a.tokens[token]
	if !ok || token == "" {
		return "", ErrUnauthorized
	}
	return principal, nil
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// Package identity resolves request credentials into an actor and role.
//
// Credential issuance and session management belong to an external identity
// provider; this package only verifies the tokens it mints and classifies the
// free-text role string they carry into the closed role set used for
// authorization decisions.
package identity

import (
	"context"
	"strings"
)

// Role is the closed set of actor roles.
type Role int

const (
	RoleGuest Role = iota
	RoleDancer
	RoleClub
	RoleJudge
	RoleAdmin
)

// String returns the canonical role token.
func (r Role) String() string {
	switch r {
	case RoleDancer:
		return "dancer"
	case RoleClub:
		return "club"
	case RoleJudge:
		return "judge"
	case RoleAdmin:
		return "admin"
	default:
		return "guest"
	}
}

// ParseRole classifies a free-text role token.
//
// Matching is case-insensitive and happens once at the authorization
// boundary; the rest of the call stack only sees the Role value. Legacy
// tokens use Romanian terms ("arbitru" for judge, "dansator" for dancer).
func ParseRole(token string) Role {
	value := strings.ToLower(strings.TrimSpace(token))
	switch {
	case value == "":
		return RoleGuest
	case strings.Contains(value, "admin"):
		return RoleAdmin
	case strings.Contains(value, "arbitru"), strings.Contains(value, "judge"):
		return RoleJudge
	case value == "club":
		return RoleClub
	case strings.Contains(value, "dansator"), strings.Contains(value, "dancer"):
		return RoleDancer
	default:
		return RoleGuest
	}
}

// Actor is a resolved request identity.
type Actor struct {
	ID      string
	Role    Role
	RawRole string
	Email   string
}

// IsAnonymous reports whether the actor carries no identity.
func (a Actor) IsAnonymous() bool {
	return a.ID == ""
}

// IsPrivileged reports whether the actor holds admin or judge authority.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleJudge
}

type contextKey struct{}

// WithActor returns a context carrying the resolved actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext returns the actor resolved for this request, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	if !ok || actor.IsAnonymous() {
		return Actor{}, false
	}
	return actor, true
}

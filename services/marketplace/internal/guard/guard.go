// Package guard decides whether a caller may reach a route. It never allows on an
// unknown answer: any lookup failure sends the caller back to sign in.
package guard

import (
	"context"
	"log"
	"net/url"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
)

const (
	LoginPath         = "/login"
	NotAuthorizedPath = "/not-authorized"
)

type SessionResolver interface {
	CurrentSession(ctx context.Context, accessToken string) (*domain.Principal, error)
}

type RoleSource interface {
	Role(ctx context.Context, userID string) (domain.Role, bool, error)
}

// Requirement is what a route demands. The zero value requires only a session.
type Requirement struct {
	Role domain.Role
}

type Outcome int

const (
	Allow Outcome = iota
	DenyLogin
	DenyNotAuthorized
)

type Decision struct {
	Outcome   Outcome
	Redirect  string
	Principal *domain.Principal
	Role      domain.Role
}

type Guard struct {
	sessions SessionResolver
	roles    RoleSource
}

func New(sessions SessionResolver, roles RoleSource) *Guard {
	return &Guard{sessions: sessions, roles: roles}
}

// Check resolves the session for token and evaluates req for the requested path.
func (g *Guard) Check(ctx context.Context, token, requestedPath string, req Requirement) Decision {
	p, err := g.sessions.CurrentSession(ctx, token)
	if err != nil {
		log.Printf("[guard] session lookup failed: %v", err)
		return toLogin(requestedPath)
	}
	if p == nil {
		return toLogin(requestedPath)
	}
	if req.Role == "" {
		return Decision{Outcome: Allow, Principal: p}
	}
	role, ok, err := g.roles.Role(ctx, p.UserID)
	if err != nil {
		log.Printf("[guard] role lookup for %s failed: %v", p.UserID, err)
		return toLogin(requestedPath)
	}
	if !ok || role != req.Role {
		return Decision{Outcome: DenyNotAuthorized, Redirect: NotAuthorizedPath, Principal: p, Role: role}
	}
	return Decision{Outcome: Allow, Principal: p, Role: role}
}

func toLogin(requestedPath string) Decision {
	redirect := LoginPath
	if requestedPath != "" {
		redirect += "?returnUrl=" + url.QueryEscape(requestedPath)
	}
	return Decision{Outcome: DenyLogin, Redirect: redirect}
}

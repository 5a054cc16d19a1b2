package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/guard"
)

const principalKey = "principal"

// BearerToken reads the Authorization header, falling back to ?access_token= for
// EventSource clients that cannot set headers.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("access_token")
}

// Require admits the request only when g allows it for req.
func Require(g *guard.Guard, req guard.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Check(c.Request.Context(), BearerToken(c), c.Request.URL.Path, req)
		switch d.Outcome {
		case guard.Allow:
			c.Set(principalKey, d.Principal)
			c.Set("sub", d.Principal.UserID)
			c.Set("email", d.Principal.Email)
			if d.Role != "" {
				c.Set("role", string(d.Role))
			}
			c.Next()
		case guard.DenyNotAuthorized:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized", "redirect": d.Redirect})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required", "redirect": d.Redirect})
		}
	}
}

func RequireAuth(g *guard.Guard) gin.HandlerFunc {
	return Require(g, guard.Requirement{})
}

func RequireRole(g *guard.Guard, role domain.Role) gin.HandlerFunc {
	return Require(g, guard.Requirement{Role: role})
}

// Principal returns the caller admitted by Require, or nil.
func Principal(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"guardianangel/config"
	"guardianangel/internal/auth"
	"guardianangel/internal/domain"
	"guardianangel/internal/models"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// UserLoader reads the stored user, with the lawyer profile preloaded for lawyers.
type UserLoader interface {
	GetWithLawyerProfile(id uint) (*models.User, error)
}

var errUnknownRole = errors.New("unknown role")

// ResolvePrincipal turns a bearer token into the caller's identity. Role, e-mail and
// lawyer approval come from the stored user, not from the token.
func ResolvePrincipal(cfg *config.JWTConfig, users UserLoader, token string) (domain.Principal, error) {
	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		return domain.Principal{}, err
	}
	u, err := users.GetWithLawyerProfile(claims.UserID)
	if err != nil {
		return domain.Principal{}, auth.ErrInvalidToken
	}
	p := domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
	switch u.Role {
	case domain.RoleCustomer:
	case domain.RoleLawyer:
		if u.LawyerProfile != nil {
			p.LawyerID = u.LawyerProfile.ID
			p.Approved = u.LawyerProfile.IsApproved
		}
	default:
		return domain.Principal{}, errUnknownRole
	}
	return p, nil
}

// AuthRequired validates the bearer token and stores the resolved principal in the context.
func AuthRequired(cfg *config.JWTConfig, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		p, err := ResolvePrincipal(cfg, users, parts[1])
		if errors.Is(err, errUnknownRole) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(principalKey, p)
		c.Set("user_id", p.UserID)
		c.Next()
	}
}

// RequireRole checks that the authenticated user has one of the allowed roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, a := range allowed {
			if p.Role == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// GetPrincipal returns the caller resolved by AuthRequired.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// GetUserID returns the authenticated user ID from context (must be used after AuthRequired).
func GetUserID(c *gin.Context) uint {
	p, _ := GetPrincipal(c)
	return p.UserID
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"luxscaler/internal/models/db_models"
	"luxscaler/pkg/utils"
)

const (
	accountIDKey = "account_id"
	profileKey   = "profile"
)

func JWTAuthMiddleware(issuer *utils.TokenIssuer) gin.HandlerFunc {

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Authorization header missing or invalid")
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := issuer.ValidateToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		// ValidateToken already rejected unparsable subjects.
		accountID, _ := claims.AccountID()
		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// AccountLookup is the slice of the profile repository the admin gate needs.
type AccountLookup interface {
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Profile, error)
}

// RequireAdmin must run after JWTAuthMiddleware.
func RequireAdmin(accounts AccountLookup) gin.HandlerFunc {

	return func(c *gin.Context) {
		accountID, ok := AccountID(c)
		if !ok {
			utils.RespondError(c, http.StatusUnauthorized, utils.ErrUnauthorized.Error())
			c.Abort()
			return
		}

		profile, err := accounts.FindById(c.Request.Context(), accountID)
		if err != nil {
			utils.HandleServiceError(c, err)
			c.Abort()
			return
		}
		if profile == nil {
			utils.RespondError(c, http.StatusUnauthorized, utils.ErrUnauthorized.Error())
			c.Abort()
			return
		}
		if !profile.IsAdmin {
			utils.RespondError(c, http.StatusForbidden, "Forbidden: admin access required")
			c.Abort()
			return
		}

		c.Set(profileKey, profile)
		c.Next()
	}
}

func AccountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(accountIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// SetAccountID is used by tests that bypass token validation.
func SetAccountID(c *gin.Context, id uuid.UUID) {
	c.Set(accountIDKey, id)
}

// Profile returns the administrator loaded by RequireAdmin.
func Profile(c *gin.Context) *db_models.Profile {
	v, ok := c.Get(profileKey)
	if !ok {
		return nil
	}
	p, _ := v.(*db_models.Profile)
	return p
}

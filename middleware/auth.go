package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/models"
)

const (
	UserContextKey  = "userID"
	RoleContextKey  = "role"
	EmailContextKey = "email"
)

// TokenValidator is the part of the token service the middleware needs.
type TokenValidator interface {
	ValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error)
}

// AuthMiddleware requires a valid access token in the Authorization header and
// stores the caller's identity on the gin context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Token is required"))
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			abort(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid token format"))
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(header[len("Bearer "):]), "access")
		if err != nil {
			abort(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		sub, _ := claims["sub"].(string)
		if _, err := uuid.Parse(sub); err != nil {
			abort(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}
		role, _ := claims["role"].(string)
		email, _ := claims["email"].(string)

		c.Set(UserContextKey, sub)
		c.Set(RoleContextKey, role)
		c.Set(EmailContextKey, email)
		c.Next()
	}
}

// RequirePermission lets the request through only when the caller's role may
// perform action. It must run after AuthMiddleware.
func RequirePermission(action models.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !models.Can(GetRoleKind(c), action) {
			abort(c, apperrors.WithMessage(apperrors.ErrForbidden, "You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

// GetUserID extracts the authenticated user's id from the gin context.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return uuid.Parse(id)
		}
	}
	return uuid.Nil, errors.New("user ID not found in context")
}

// GetRoleKind returns the caller's role, customer when unknown.
func GetRoleKind(c *gin.Context) models.RoleKind {
	return models.ParseRoleKind(c.GetString(RoleContextKey))
}

func abort(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.Code, err)
}

package middleware

import (
	"strings"

	"scale_backend/internal/auth"
	"scale_backend/internal/logger"
	"scale_backend/internal/models"
	"scale_backend/pkg/apperrors"
	"scale_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware - middleware проверки JWT
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.AbortWithError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := auth.ParseToken(secret, tokenStr)
		if err != nil {
			logger.CtxDebug(c.Request.Context(), "Rejected token", "error", err)
			apperrors.AbortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		// Сохраняем claims в контекст
		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.RoleKey, claims.Role)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RoleMiddleware - middleware ограничения по ролям
func RoleMiddleware(allowed ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]bool, len(allowed))
	for _, r := range allowed {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		role, ok := c.Get(contextkeys.RoleKey)
		if !ok {
			apperrors.AbortWithError(c, apperrors.NewForbiddenError("Access denied: no role"))
			return
		}

		roleStr, _ := role.(string)
		if !roleSet[models.UserRole(roleStr)] {
			apperrors.AbortWithError(c, apperrors.ErrInsufficientPermissions)
			return
		}

		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get(contextkeys.UserIDKey)
	if !exists {
		return ""
	}
	id, _ := userID.(string)
	return id
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldset/cmms-api/internal/models"
	appErrors "github.com/fieldset/cmms-api/pkg/errors"
	"github.com/fieldset/cmms-api/pkg/response"
)

// RequireRoles blocks requests whose authenticated role is not in the
// allowed set. Ownership checks on individual resources stay in the
// services, which know who created what.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		v, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := v.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role may not access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}

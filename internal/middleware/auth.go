package middleware

import (
	"slices"
	"strings"

	"quiz_master_backend/internal/config"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"quiz_master_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware 校验 Bearer 令牌，通过后把 Claims 放入上下文
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	verifier := util.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Log.Debug("Rejected token", zap.Error(err), zap.String("path", c.FullPath()))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

// RoleMiddleware 管理员拥有所有角色的权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		switch {
		case user == nil:
			util.Unauthorized(c)
		case user.IsAdmin() || slices.Contains(roles, user.Role):
			c.Next()
			return
		default:
			util.Forbidden(c)
		}
		c.Abort()
	}
}

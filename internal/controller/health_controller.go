package controller

import (
	"context"
	"net/http"
	"time"

	"quiz_master_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// healthCheck required 为 false 的组件异常时只标记 down，不影响整体状态
type healthCheck struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

type HealthController struct {
	checks  []healthCheck
	timeout time.Duration
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	h := &HealthController{timeout: 2 * time.Second}
	h.checks = append(h.checks, healthCheck{
		name:     "database",
		required: true,
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	if rdb != nil {
		h.checks = append(h.checks, healthCheck{
			name: "redis",
			ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return h
}

// @Summary 健康检查
// @Description 检查数据库和 redis 状态，数据库不可用时返回 503
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (h *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	components := gin.H{}
	healthy := true
	for _, check := range h.checks {
		if err := check.ping(pingCtx); err != nil {
			components[check.name] = "down"
			healthy = healthy && !check.required
			continue
		}
		components[check.name] = "up"
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "unhealthy",
			Data:    gin.H{"components": components},
		})
		return
	}
	util.Success(ctx, gin.H{"status": "ok", "components": components})
}

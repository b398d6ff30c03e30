package controller

import (
	"quiz_master_backend/internal/service"
	"quiz_master_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatisticsController struct {
	StatisticsService *service.StatisticsService
}

func NewStatisticsController(statisticsService *service.StatisticsService) *StatisticsController {
	return &StatisticsController{StatisticsService: statisticsService}
}

// @Summary 我的统计图
// @Description 按科目与月份生成统计图，等待任务完成后返回图片地址
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/user/stats [get]
func (c *StatisticsController) GetUserStatistics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.StatisticsService.GetUserStatistics(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 派发我的统计任务
// @Description 立即返回任务ID，通过 /api/stats/jobs/{id} 查询结果
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Success 202 {object} util.Response
// @Router /api/user/stats/jobs [post]
func (c *StatisticsController) RequestUserStatistics(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, err := c.StatisticsService.RequestUserStatistics(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Accepted(ctx, gin.H{"job_id": id})
}

// @Summary 查询统计任务
// @Tags 统计
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response
// @Router /api/stats/jobs/{id} [get]
func (c *StatisticsController) GetJob(ctx *gin.Context) {
	status, err := c.StatisticsService.PollStatistics(ctx.Request.Context(), service.JobHandle(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	resp := gin.H{"job_id": status.ID, "state": status.State}
	switch status.State {
	case service.JobCompleted:
		resp["result"] = status.Result
	case service.JobFailed:
		resp["error"] = status.Error
	}
	util.Success(ctx, resp)
}

// @Summary 全平台统计图
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/admin/stats [get]
func (c *StatisticsController) GetPlatformStatistics(ctx *gin.Context) {
	report, err := c.StatisticsService.GetPlatformStatistics(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

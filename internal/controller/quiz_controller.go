package controller

import (
	"quiz_master_backend/internal/service"
	"quiz_master_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

type SubmitQuizReq struct {
	// 题目ID -> 选项ID
	Selected map[string]uint `json:"selected"`
}

// @Summary 提交测验答案
// @Description 同步评分并保存得分记录
// @Tags 测验
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Param body body SubmitQuizReq true "所选答案"
// @Success 201 {object} util.Response
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	var req SubmitQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	answers, err := service.ParseAnswers(req.Selected)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	record, err := c.QuizService.SubmitQuizAttempt(ctx.Request.Context(), quizID, user.UserID, answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"id":         record.ID,
		"quizId":     record.QuizID,
		"userScore":  record.UserScore,
		"totalScore": record.TotalScore,
	})
}

// @Summary 我的历史得分
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/scores [get]
func (c *QuizController) ListScores(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	items, err := c.QuizService.ListUserScores(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// @Summary 测验列表
// @Description 包含题目和选项，不返回正确答案；done 表示当前用户是否已作答
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizzes, err := c.QuizService.ListQuizzes(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary 测验详情
// @Tags 测验
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), quizID, user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

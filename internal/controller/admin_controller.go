package controller

import (
	"quiz_master_backend/internal/service"
	"quiz_master_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	QuizService *service.QuizService
}

func NewAdminController(quizService *service.QuizService) *AdminController {
	return &AdminController{QuizService: quizService}
}

// @Summary 科目列表
// @Tags 科目
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/subjects [get]
func (c *AdminController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.QuizService.ListSubjects(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// @Summary 创建科目
// @Tags 管理员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateSubjectReq true "科目及章节"
// @Success 201 {object} util.Response
// @Router /api/admin/subjects [post]
func (c *AdminController) CreateSubject(ctx *gin.Context) {
	var req service.CreateSubjectReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.QuizService.CreateSubject(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// @Summary 删除科目
// @Description 同时删除科目下的章节、测验、题目和得分记录
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Param id path int true "科目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/subjects/{id} [delete]
func (c *AdminController) DeleteSubject(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid subject id")
		return
	}

	if err := c.QuizService.DeleteSubject(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id})
}

// @Summary 删除测验
// @Description 同时删除题目、选项和得分记录
// @Tags 管理员
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/admin/quizzes/{id} [delete]
func (c *AdminController) DeleteQuiz(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id})
}

// @Summary 创建测验
// @Description 题目的正确答案以选项下标 correctIndex 给出
// @Tags 管理员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateQuizReq true "测验、题目与选项"
// @Success 201 {object} util.Response
// @Router /api/admin/quizzes [post]
func (c *AdminController) CreateQuiz(ctx *gin.Context) {
	var req service.CreateQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

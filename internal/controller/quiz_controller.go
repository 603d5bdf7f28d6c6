package controller

import (
	"bytes"
	"encoding/json"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// CreateQuiz godoc
// @Summary 创建测验
// @Description 管理员为课程中的某个课时创建测验，返回内容包含正确答案
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateQuizReq true "测验内容"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response "参数校验失败"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /admin/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	var req service.CreateQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.HandleError(ctx, util.BindError(err))
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, "Quiz created successfully", quiz)
}

// UpdateQuiz godoc
// @Summary 更新测验
// @Description 只修改请求中出现的字段；questions 整体替换
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Param body body service.UpdateQuizReq true "要修改的字段"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /admin/quizzes/{quizId} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	var req service.UpdateQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.HandleError(ctx, util.BindError(err))
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(ctx.Request.Context(), ctx.Param("quizId"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessWithMessage(ctx, "Quiz updated successfully", quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /admin/quizzes/{quizId} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), ctx.Param("quizId")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Quiz deleted successfully", nil)
}

// GetAdminQuizzesForCourse godoc
// @Summary 课程测验成绩报表
// @Description 每个测验的完整题目以及所有学生的提交、逐题对错和学生信息
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]service.AdminQuizReport}
// @Failure 404 {object} util.Response
// @Router /admin/courses/{courseId}/quizzes [get]
func (c *QuizController) GetAdminQuizzesForCourse(ctx *gin.Context) {
	reports, err := c.QuizService.GetAdminQuizzesForCourse(ctx.Request.Context(), ctx.Param("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}

// GetQuiz godoc
// @Summary 获取测验题目
// @Description 不包含正确答案
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=service.PublicQuiz}
// @Failure 404 {object} util.Response
// @Router /quizzes/{quizId} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), ctx.Param("quizId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// GetQuizzesForCourse godoc
// @Summary 课程测验列表
// @Description 附带当前学生是否已提交以及成绩摘要
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]service.CourseQuizItem}
// @Failure 404 {object} util.Response
// @Router /courses/{courseId}/quizzes [get]
func (c *QuizController) GetQuizzesForCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	items, err := c.QuizService.GetQuizzesForCourse(ctx.Request.Context(), ctx.Param("courseId"), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// SubmitQuizRequest selectedOptions[i] 是第 i 题所选选项的下标
type SubmitQuizRequest struct {
	SelectedOptions json.RawMessage `json:"selectedOptions" swaggertype:"array,integer"`
}

// decodeSelectedOptions 缺失、null 或不是数组都算缺少 selectedOptions；
// 数组里有非整数则是格式错误
func decodeSelectedOptions(raw json.RawMessage) ([]int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, util.ErrSelectedOptions
	}

	var selected []int
	if err := json.Unmarshal(trimmed, &selected); err != nil {
		return nil, util.NewBadRequest("selectedOptions must be an array of integers").Wrap(err)
	}
	if selected == nil {
		selected = []int{}
	}
	return selected, nil
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Description 每个学生每个测验只能提交一次
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Param body body SubmitQuizRequest true "作答"
// @Success 201 {object} util.Response{data=service.SubmitQuizResult}
// @Failure 400 {object} util.Response "答案缺失或数量不匹配"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "已经提交过"
// @Router /quizzes/{quizId}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.HandleError(ctx, util.BindError(err))
		return
	}

	selected, err := decodeSelectedOptions(req.SelectedOptions)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.QuizService.SubmitQuiz(ctx.Request.Context(), ctx.Param("quizId"), claims.UserID, selected)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, "Quiz submitted successfully", result)
}

// GetQuizSubmission godoc
// @Summary 查看自己的提交
// @Description 提交后才能看到正确答案和逐题对错
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response{data=service.SubmissionReview}
// @Failure 404 {object} util.Response
// @Router /quizzes/{quizId}/submission [get]
func (c *QuizController) GetQuizSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	review, err := c.QuizService.GetQuizSubmission(ctx.Request.Context(), ctx.Param("quizId"), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// GetMyQuizSubmissions godoc
// @Summary 我在课程中的全部提交
// @Description 需要有效选课；测验已删除的提交不返回
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=[]service.MySubmissionItem}
// @Failure 403 {object} util.Response "未选课"
// @Router /courses/{courseId}/submissions [get]
func (c *QuizController) GetMyQuizSubmissions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	items, err := c.QuizService.GetMyQuizSubmissions(ctx.Request.Context(), claims.UserID, ctx.Param("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

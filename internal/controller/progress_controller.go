package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ProgressController 学习进度和学生仪表盘
type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// GetCourseContent godoc
// @Summary 课程内容及课时完成状态
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseContent}
// @Failure 404 {object} util.Response
// @Router /courses/{courseId}/content [get]
func (c *ProgressController) GetCourseContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	content, err := c.ProgressService.GetCourseContent(ctx.Request.Context(), claims.UserID, ctx.Param("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Course content fetched successfully", content)
}

// MarkLessonCompleted godoc
// @Summary 标记课时完成
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Param lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonCompletion}
// @Failure 404 {object} util.Response "课程或课时不存在"
// @Router /courses/{courseId}/lessons/{lessonId}/complete [post]
func (c *ProgressController) MarkLessonCompleted(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	result, err := c.ProgressService.MarkLessonCompleted(ctx.Request.Context(), claims.UserID, ctx.Param("courseId"), ctx.Param("lessonId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Lesson marked as completed", result)
}

// GetEnrolledCourses godoc
// @Summary 我的有效选课
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Enrollment}
// @Router /dashboard/enrollments [get]
func (c *ProgressController) GetEnrolledCourses(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	enrollments, err := c.ProgressService.GetEnrolledCourses(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Enrolled courses fetched successfully", enrollments)
}

// GetCourseProgress godoc
// @Summary 课程完成进度
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Failure 404 {object} util.Response
// @Router /dashboard/courses/{courseId}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.HandleError(ctx, util.ErrUnauthorized)
		return
	}

	progress, err := c.ProgressService.GetCourseProgress(ctx.Request.Context(), claims.UserID, ctx.Param("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Course progress fetched successfully", progress)
}

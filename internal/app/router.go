package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)

	// 2. 任意登录用户
	authGroup := router.Group("/api")
	authGroup.Use(auth)
	{
		authGroup.GET("/profile", c.auth.Profile)
		authGroup.GET("/quizzes/:quizId", c.quiz.GetQuiz)
	}

	// 3. 学生接口
	a.registerStudentRoutes(router, c, auth)

	// 4. 管理员接口
	a.registerAdminRoutes(router, c, auth)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/courses/:courseId", c.course.GetCourse)
	}
}

func (a *App) registerStudentRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	student := router.Group("/api")
	student.Use(auth, middleware.RoleMiddleware(model.RoleUser))
	{
		student.POST("/enroll", c.course.Enroll)

		student.POST("/quizzes/:quizId/submit", c.quiz.SubmitQuiz)
		student.GET("/quizzes/:quizId/submission", c.quiz.GetQuizSubmission)
		student.GET("/courses/:courseId/quizzes", c.quiz.GetQuizzesForCourse)
		student.GET("/courses/:courseId/submissions", c.quiz.GetMyQuizSubmissions)

		student.GET("/courses/:courseId/content", c.progress.GetCourseContent)
		student.POST("/courses/:courseId/lessons/:lessonId/complete", c.progress.MarkLessonCompleted)
		student.GET("/dashboard/enrollments", c.progress.GetEnrolledCourses)
		student.GET("/dashboard/courses/:courseId/progress", c.progress.GetCourseProgress)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, auth gin.HandlerFunc) {
	admin := router.Group("/api/admin")
	admin.Use(auth, middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/courses", c.course.CreateCourse)
		admin.GET("/courses/:courseId/quizzes", c.quiz.GetAdminQuizzesForCourse)

		admin.POST("/quizzes", c.quiz.CreateQuiz)
		admin.PUT("/quizzes/:quizId", c.quiz.UpdateQuiz)
		admin.DELETE("/quizzes/:quizId", c.quiz.DeleteQuiz)
	}
}

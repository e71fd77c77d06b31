package handlers

import (
	"errors"
	"log"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth         *AuthHandler
	Project      *ProjectHandler
	Member       *MemberHandler
	Task         *TaskHandler
	Comment      *CommentHandler
	Analytics    *AnalyticsHandler
	Notification *NotificationHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:         &AuthHandler{authService: services.Auth},
		Project:      &ProjectHandler{projectService: services.Project, hydrator: services.Hydrator},
		Member:       &MemberHandler{projectService: services.Project, hydrator: services.Hydrator},
		Task:         &TaskHandler{taskService: services.Task, hydrator: services.Hydrator},
		Comment:      &CommentHandler{commentService: services.Comment, hydrator: services.Hydrator},
		Analytics:    &AnalyticsHandler{analyticsService: services.Analytics},
		Notification: &NotificationHandler{notificationService: services.Notification},
	}
}

// Register mounts every route on the given group. Everything except register
// and login sits behind AuthMiddleware.
func (h *Handlers) Register(api *gin.RouterGroup, authService service.AuthService) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		protected.DELETE("/auth/logout", h.Auth.Logout)
		protected.GET("/auth/me", h.Auth.Me)
		protected.PATCH("/auth/password", h.Auth.ChangePassword)

		projects := protected.Group("/projects")
		{
			projects.POST("", h.Project.Create)
			projects.GET("", h.Project.List)
			projects.GET("/:id", h.Project.Get)
			projects.PATCH("/:id", h.Project.Update)
			projects.DELETE("/:id", h.Project.Delete)

			projects.GET("/:id/members", h.Member.List)
			projects.POST("/:id/members", h.Member.Add)
			projects.DELETE("/:id/members/:memberId", h.Member.Remove)
			projects.PATCH("/:id/members/:memberId/role", h.Member.UpdateRole)

			projects.POST("/:id/tasks", h.Task.Create)
			projects.GET("/:id/tasks", h.Task.List)

			projects.POST("/:id/comments", h.Comment.Create)
			projects.GET("/:id/comments", h.Comment.List)

			projects.GET("/:id/analytics/status-distribution", h.Analytics.StatusDistribution)
			projects.GET("/:id/analytics/completion", h.Analytics.Completion)
			projects.GET("/:id/analytics/due-dates", h.Analytics.DueDates)
			projects.GET("/:id/analytics/summary", h.Analytics.Summary)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("/:id", h.Task.Get)
			tasks.PATCH("/:id", h.Task.Update)
			tasks.DELETE("/:id", h.Task.Delete)
		}

		comments := protected.Group("/comments")
		{
			comments.PATCH("/:id", h.Comment.Update)
			comments.DELETE("/:id", h.Comment.Delete)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.Notification.List)
			notifications.GET("/count", h.Notification.Count)
			notifications.PATCH("/read-all", h.Notification.MarkAllRead)
			notifications.PATCH("/:id/read", h.Notification.MarkRead)
			notifications.DELETE("/:id", h.Notification.Delete)
		}
	}
}

// respondError writes the error body for err. Dependency failures are logged
// with their cause and reported without it.
func respondError(c *gin.Context, err error) {
	if apperrors.KindOf(err) == apperrors.KindDependency {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	status, body := apperrors.ToResponse(err)
	c.JSON(status, body)
}

// bind decodes the JSON body into req and reports binding failures as validation errors.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validation(lowerFirst(fe.Field()), fe.Error())
	}
	return apperrors.Validation("", "invalid request body")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}

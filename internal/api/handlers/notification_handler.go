package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Notification Handler
// ============================================

type NotificationHandler struct {
	notificationService service.NotificationService
}

// List - GET /notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notificationService.List(c.Request.Context(), ident, unreadOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.NotificationResponse, len(notifications))
	for i, n := range notifications {
		response[i] = service.ToNotificationResponse(n)
	}
	c.JSON(http.StatusOK, models.NotificationListResponse{Notifications: response, Count: len(response)})
}

// Count - GET /notifications/count
func (h *NotificationHandler) Count(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	total, unread, err := h.notificationService.Count(c.Request.Context(), ident)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NotificationCountResponse{
		Total:  total,
		Unread: unread,
	})
}

// MarkRead - PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), ident, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Notification marked as read"})
}

// MarkAllRead - PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	n, err := h.notificationService.MarkAllAsRead(c.Request.Context(), ident)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

// Delete - DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Notification deleted"})
}

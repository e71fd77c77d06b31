package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Comment Handler
// ============================================

type CommentHandler struct {
	commentService service.CommentService
	hydrator       *service.Hydrator
}

// Create - POST /projects/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if !bind(c, &req) {
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), ident, c.Param("id"), req.Body, req.ParentComment)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Comment(c.Request.Context(), comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List - GET /projects/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	threads, err := h.commentService.List(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Threads(c.Request.Context(), threads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CommentListResponse{Comments: resp, Count: len(resp)})
}

// Update - PATCH /comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.UpdateCommentRequest
	if !bind(c, &req) {
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), ident, c.Param("id"), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Comment(c.Request.Context(), comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete - DELETE /comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Comment deleted successfully"})
}

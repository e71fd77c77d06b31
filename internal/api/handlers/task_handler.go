package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Task Handler
// ============================================

type TaskHandler struct {
	taskService service.TaskService
	hydrator    *service.Hydrator
}

// Create - POST /projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if !bind(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), ident, c.Param("id"), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.Assignee,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Task(c.Request.Context(), task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List - GET /projects/:id/tasks?status=&priority=&assignee=
func (h *TaskHandler) List(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var q models.TaskListQuery
	if !bindQuery(c, &q) {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), ident, c.Param("id"), service.TaskQuery{
		Status:     q.Status,
		Priority:   q.Priority,
		AssigneeID: q.Assignee,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Tasks(c.Request.Context(), tasks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TaskListResponse{Tasks: resp, Count: len(resp)})
}

// Get - GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Task(c.Request.Context(), task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update - PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if !bind(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), ident, c.Param("id"), service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.Assignee,
		Version:     req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.hydrator.Task(c.Request.Context(), task)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete - DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Task deleted successfully"})
}

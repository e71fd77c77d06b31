package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/repository"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Project Handler
// ============================================

type ProjectHandler struct {
	projectService service.ProjectService
	hydrator       *service.Hydrator
}

// respondProject hydrates and writes a single project.
func respondProject(c *gin.Context, hydrator *service.Hydrator, status int, project *repository.Project, viewerID string) {
	resp, err := hydrator.Project(c.Request.Context(), project, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, resp)
}

// Create - POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), ident, service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Deadline:    req.Deadline,
		MemberIDs:   req.Members,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondProject(c, h.hydrator, http.StatusCreated, project, ident.UserID)
}

// List - GET /projects?page=&limit=&search=&status=
func (h *ProjectHandler) List(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var q models.ProjectListQuery
	if !bindQuery(c, &q) {
		return
	}

	page, err := h.projectService.List(c.Request.Context(), ident, service.ProjectQuery{
		Page:   q.Page,
		Limit:  q.Limit,
		Search: q.Search,
		Status: q.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	projects, err := h.hydrator.Projects(c.Request.Context(), page.Projects, ident.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProjectListResponse{
		Projects: projects,
		Pagination: models.Pagination{
			Total:       page.Total,
			Pages:       page.Pages,
			CurrentPage: page.Page,
			Limit:       page.Limit,
		},
	})
}

// Get - GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondProject(c, h.hydrator, http.StatusOK, project, ident.UserID)
}

// Update - PATCH /projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), ident, c.Param("id"), service.UpdateProjectInput{
		Name:          req.Name,
		Description:   req.Description,
		Status:        req.Status,
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
		Version:       req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondProject(c, h.hydrator, http.StatusOK, project, ident.UserID)
}

// Delete - DELETE /projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Project deleted successfully"})
}

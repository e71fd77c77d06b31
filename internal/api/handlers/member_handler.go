package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Member Handler
// ============================================

type MemberHandler struct {
	projectService service.ProjectService
	hydrator       *service.Hydrator
}

// List - GET /projects/:id/members
// Owner first with role "owner", then members in join order.
func (h *MemberHandler) List(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	team, err := h.hydrator.Team(c.Request.Context(), project)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// Add - POST /projects/:id/members
func (h *MemberHandler) Add(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.AddMemberRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.projectService.AddMember(c.Request.Context(), ident, c.Param("id"), service.AddMemberInput{
		UserID: req.UserID,
		Email:  req.Email,
		Role:   req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondProject(c, h.hydrator, http.StatusCreated, project, ident.UserID)
}

// Remove - DELETE /projects/:id/members/:memberId
func (h *MemberHandler) Remove(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	project, err := h.projectService.RemoveMember(c.Request.Context(), ident, c.Param("id"), c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondProject(c, h.hydrator, http.StatusOK, project, ident.UserID)
}

// UpdateRole - PATCH /projects/:id/members/:memberId/role
func (h *MemberHandler) UpdateRole(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.UpdateMemberRoleRequest
	if !bind(c, &req) {
		return
	}

	project, err := h.projectService.UpdateMemberRole(c.Request.Context(), ident, c.Param("id"), c.Param("memberId"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondProject(c, h.hydrator, http.StatusOK, project, ident.UserID)
}

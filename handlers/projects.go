package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projecto/projecto/internal/access"
	"github.com/projecto/projecto/internal/models"
	"github.com/projecto/projecto/internal/projects"
	"github.com/projecto/projecto/pkg/middleware"
)

// ProjectHandler exposes project lifecycle and membership endpoints.
type ProjectHandler struct {
	svc *projects.Service
}

func NewProjectHandler(svc *projects.Service) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

func (h *ProjectHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/projects", h.Create)
	rg.GET("/projects", h.ListMine)
	rg.GET("/projects/:project", h.Get)
	rg.GET("/projects/:project/members", h.Members)
	rg.POST("/projects/:project/addowners", h.membership((*projects.Service).AddOwners))
	rg.POST("/projects/:project/addcollaborators", h.membership((*projects.Service).AddCollaborators))
	rg.POST("/projects/:project/removeowners", h.membership((*projects.Service).RemoveOwners))
	rg.POST("/projects/:project/removecollaborators", h.membership((*projects.Service).RemoveCollaborators))
}

// projectJSON renders the full membership lists for owners only
func projectJSON(principal string, p *models.Project) map[string]interface{} {
	if access.Manager(principal, p) {
		return p.FullView()
	}
	return p.ClientView()
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Desc string `json:"desc"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	principal := middleware.Principal(c)
	p, err := h.svc.Create(c.Request.Context(), principal, req.Name, req.Desc)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, projectJSON(principal, p))
}

func (h *ProjectHandler) ListMine(c *gin.Context) {
	principal := middleware.Principal(c)
	owned, participating, err := h.svc.ListMine(c.Request.Context(), principal)
	if err != nil {
		abortErr(c, err)
		return
	}
	ownedOut := make([]map[string]interface{}, 0, len(owned))
	for _, p := range owned {
		ownedOut = append(ownedOut, projectJSON(principal, p))
	}
	partOut := make([]map[string]interface{}, 0, len(participating))
	for _, p := range participating {
		partOut = append(partOut, projectJSON(principal, p))
	}
	c.JSON(http.StatusOK, gin.H{"owned": ownedOut, "participating": partOut})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	principal := middleware.Principal(c)
	p, err := h.svc.Get(c.Request.Context(), principal, c.Param("project"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, projectJSON(principal, p))
}

func (h *ProjectHandler) Members(c *gin.Context) {
	owners, collaborators, unregOwners, unregCollaborators, err := h.svc.Members(c.Request.Context(), middleware.Principal(c), c.Param("project"))
	if err != nil {
		abortErr(c, err)
		return
	}
	if unregOwners == nil {
		unregOwners = []string{}
	}
	if unregCollaborators == nil {
		unregCollaborators = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"owners":                     owners,
		"collaborators":              collaborators,
		"unregistered_owners":        unregOwners,
		"unregistered_collaborators": unregCollaborators,
	})
}

// membership adapts the four add/remove service calls to one handler shape
func (h *ProjectHandler) membership(op func(*projects.Service, context.Context, string, string, []string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Emails []string `json:"emails" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := op(h.svc, c.Request.Context(), middleware.Principal(c), c.Param("project"), req.Emails); err != nil {
			abortErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "okay"})
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projecto/projecto/internal/feed"
	"github.com/projecto/projecto/pkg/middleware"
)

// FeedHandler exposes the project activity feed.
type FeedHandler struct {
	svc *feed.Service
}

func NewFeedHandler(svc *feed.Service) *FeedHandler {
	return &FeedHandler{svc: svc}
}

func (h *FeedHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/projects/:project/feed", h.Post)
	rg.GET("/projects/:project/feed", h.List)
	rg.GET("/projects/:project/feed/:item", h.Get)
	rg.DELETE("/projects/:project/feed/:item", h.Delete)
	rg.POST("/projects/:project/feed/:item/comments", h.PostComment)
	rg.DELETE("/projects/:project/feed/:item/comments/:comment", h.DeleteComment)
}

func (h *FeedHandler) Post(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		Type    string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.svc.Post(c.Request.Context(), middleware.Principal(c), c.Param("project"), req.Content, req.Type)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedItemJSON(v))
}

func (h *FeedHandler) List(c *gin.Context) {
	amount, err := intQuery(c, "amount", 0)
	if err != nil {
		abortErr(c, err)
		return
	}
	views, err := h.svc.List(c.Request.Context(), middleware.Principal(c), c.Param("project"), amount, c.Query("type"))
	if err != nil {
		abortErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(views))
	for _, v := range views {
		out = append(out, feedItemJSON(v))
	}
	c.JSON(http.StatusOK, gin.H{"feed": out})
}

func (h *FeedHandler) Get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("item"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, feedItemJSON(v))
}

func (h *FeedHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("item")); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

func (h *FeedHandler) PostComment(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.svc.PostComment(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("item"), req.Content)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedCommentJSON(*v))
}

func (h *FeedHandler) DeleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("comment")); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

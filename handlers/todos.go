package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/projecto/projecto/internal/todos"
	"github.com/projecto/projecto/pkg/middleware"
)

// TodoHandler exposes the project todo list.
type TodoHandler struct {
	svc *todos.Service
}

func NewTodoHandler(svc *todos.Service) *TodoHandler {
	return &TodoHandler{svc: svc}
}

func (h *TodoHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/projects/:project/todos", h.Create)
	rg.GET("/projects/:project/todos", h.List)
	rg.GET("/projects/:project/todos/filter", h.Filter)
	rg.GET("/projects/:project/todos/tags", h.Tags)
	rg.DELETE("/projects/:project/todos/done", h.ClearDone)
	rg.GET("/projects/:project/todos/:todo", h.Get)
	rg.PUT("/projects/:project/todos/:todo", h.Update)
	rg.DELETE("/projects/:project/todos/:todo", h.Delete)
	rg.POST("/projects/:project/todos/:todo/markdone", h.MarkDone)
	rg.POST("/projects/:project/todos/:todo/comments", h.PostComment)
	rg.DELETE("/projects/:project/todos/:todo/comments/:comment", h.DeleteComment)
}

type todoRequest struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Tags     []string   `json:"tags"`
	Due      *time.Time `json:"due"`
	Assigned string     `json:"assigned"`
}

func pageJSON(p *todos.Page) gin.H {
	out := make([]gin.H, 0, len(p.Todos))
	for _, v := range p.Todos {
		out = append(out, todoJSON(v))
	}
	return gin.H{
		"todos":        out,
		"currentPage":  p.CurrentPage,
		"totalTodos":   p.TotalTodos,
		"todosPerPage": p.PerPage,
	}
}

func (h *TodoHandler) Create(c *gin.Context) {
	var req todoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.svc.Create(c.Request.Context(), middleware.Principal(c), c.Param("project"), todos.CreateInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Due:      req.Due,
		Assigned: req.Assigned,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, todoJSON(v))
}

func (h *TodoHandler) List(c *gin.Context) {
	page, amount, err := pageParams(c)
	if err != nil {
		abortErr(c, err)
		return
	}
	p, err := h.svc.List(c.Request.Context(), middleware.Principal(c), c.Param("project"),
		page, amount, c.Query("showdone") == "1")
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, pageJSON(p))
}

func (h *TodoHandler) Filter(c *gin.Context) {
	page, amount, err := pageParams(c)
	if err != nil {
		abortErr(c, err)
		return
	}
	p, err := h.svc.Filter(c.Request.Context(), middleware.Principal(c), c.Param("project"),
		c.QueryArray("tags"), c.Query("showdone") == "1", c.Query("shownotdone") != "0",
		page, amount)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, pageJSON(p))
}

func pageParams(c *gin.Context) (page, amount int, err error) {
	if page, err = intQuery(c, "page", 1); err != nil {
		return 0, 0, err
	}
	if amount, err = intQuery(c, "amount", 0); err != nil {
		return 0, 0, err
	}
	return page, amount, nil
}

func (h *TodoHandler) Tags(c *gin.Context) {
	tags, err := h.svc.Tags(c.Request.Context(), middleware.Principal(c), c.Param("project"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *TodoHandler) Get(c *gin.Context) {
	v, err := h.svc.Get(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("todo"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, todoJSON(v))
}

// Update merges the provided fields; omitted fields keep their value
func (h *TodoHandler) Update(c *gin.Context) {
	var req struct {
		Title    *string    `json:"title"`
		Content  *string    `json:"content"`
		Tags     *[]string  `json:"tags"`
		Due      *time.Time `json:"due"`
		Assigned *string    `json:"assigned"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.svc.Update(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("todo"), todos.UpdateInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Due:      req.Due,
		Assigned: req.Assigned,
	})
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, todoJSON(v))
}

func (h *TodoHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("todo")); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

func (h *TodoHandler) MarkDone(c *gin.Context) {
	var req struct {
		Done *bool `json:"done" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.MarkDone(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("todo"), *req.Done); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

func (h *TodoHandler) ClearDone(c *gin.Context) {
	if err := h.svc.ClearDone(c.Request.Context(), middleware.Principal(c), c.Param("project")); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

func (h *TodoHandler) PostComment(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.svc.PostComment(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("todo"), req.Content)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, todoCommentJSON(*v))
}

func (h *TodoHandler) DeleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Param("comment")); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/projecto/projecto/internal/files"
	"github.com/projecto/projecto/pkg/middleware"
)

// presignExpiry bounds the lifetime of direct download URLs
const presignExpiry = 15 * time.Minute

// FileHandler exposes per-project file storage.
type FileHandler struct {
	svc *files.Service
}

func NewFileHandler(svc *files.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

func (h *FileHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/projects/:project/files", h.List)
	rg.PUT("/projects/:project/files/*path", h.Upload)
	rg.GET("/projects/:project/files/*path", h.Download)
	rg.DELETE("/projects/:project/files/*path", h.Delete)
}

func filePath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}

func (h *FileHandler) Upload(c *gin.Context) {
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := h.svc.Upload(c.Request.Context(), middleware.Principal(c), c.Param("project"), filePath(c),
		c.Request.Body, c.Request.ContentLength, contentType)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "okay", "path": filePath(c)})
}

// Download streams the file, or returns a presigned URL with ?url=1
func (h *FileHandler) Download(c *gin.Context) {
	principal := middleware.Principal(c)
	if c.Query("url") == "1" {
		u, err := h.svc.PresignedURL(c.Request.Context(), principal, c.Param("project"), filePath(c), presignExpiry)
		if err != nil {
			abortErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": u})
		return
	}
	rc, err := h.svc.Download(c.Request.Context(), principal, c.Param("project"), filePath(c))
	if err != nil {
		abortErr(c, err)
		return
	}
	defer rc.Close()
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *FileHandler) List(c *gin.Context) {
	infos, err := h.svc.List(c.Request.Context(), middleware.Principal(c), c.Param("project"), c.Query("prefix"))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": infos})
}

func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Principal(c), c.Param("project"), filePath(c)); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

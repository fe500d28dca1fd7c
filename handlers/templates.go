package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phishbowl/go-services/internal/storage"
	"github.com/phishbowl/go-services/pkg/logger"
)

// TemplatesHandler serves phishing email template assets out of MinIO. The
// frontend lists keys and fetches short-lived presigned URLs; the bucket
// itself stays private.
type TemplatesHandler struct {
	store *storage.TemplateStore
}

func NewTemplatesHandler(store *storage.TemplateStore) *TemplatesHandler {
	return &TemplatesHandler{store: store}
}

func (h *TemplatesHandler) Register(rg *gin.RouterGroup) {
	t := rg.Group("/templates")
	t.GET("", h.List)
	t.GET("/url", h.PresignedURL)
	t.POST("", h.Upload)
}

// List returns template asset keys, optionally filtered by ?prefix=
func (h *TemplatesHandler) List(c *gin.Context) {
	keys, err := h.store.List(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		logger.Errorf("templates list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

// PresignedURL returns a 15-minute download URL for ?key=
func (h *TemplatesHandler) PresignedURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	url, err := h.store.PresignedURL(c.Request.Context(), key, 15*time.Minute)
	if err != nil {
		logger.Errorf("templates url: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Upload stores a template asset from a multipart form ("file" field, key
// defaults to the filename).
func (h *TemplatesHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	key := c.PostForm("key")
	if key == "" {
		key = fh.Filename
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()
	contentType := fh.Header.Get("Content-Type")
	if err := h.store.Upload(c.Request.Context(), key, f, fh.Size, contentType); err != nil {
		logger.Errorf("templates upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "size": fh.Size})
}

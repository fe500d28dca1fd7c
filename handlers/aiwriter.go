package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phishbowl/go-services/internal/aiwriter"
	"github.com/phishbowl/go-services/pkg/logger"
)

// Draft is a generated training email kept in memory so game admins can
// review and reuse recent generations. Drafts are ephemeral; anything worth
// keeping gets promoted to a template asset.
type Draft struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AIWriterHandler proxies prompts to the generative email API and keeps the
// resulting drafts in an in-memory store.
type AIWriterHandler struct {
	client *aiwriter.Client

	mu     sync.RWMutex
	drafts map[string]*Draft
}

func NewAIWriterHandler(client *aiwriter.Client) *AIWriterHandler {
	return &AIWriterHandler{client: client, drafts: map[string]*Draft{}}
}

func (h *AIWriterHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/ai/emails")
	a.POST("", h.Generate)
	a.GET("", h.List)
	a.GET("/:id", h.Get)
	a.DELETE("/:id", h.Delete)
}

// Generate accepts { prompt } and returns the generated draft.
func (h *AIWriterHandler) Generate(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text, err := h.client.GenerateEmail(c.Request.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, aiwriter.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email generation is not configured"})
			return
		}
		logger.Errorf("aiwriter generate: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "email generation failed"})
		return
	}

	d := &Draft{
		ID:        fmt.Sprintf("draft_%d", time.Now().UnixNano()),
		Prompt:    req.Prompt,
		Body:      text,
		CreatedAt: time.Now(),
	}
	h.mu.Lock()
	h.drafts[d.ID] = d
	h.mu.Unlock()
	c.JSON(http.StatusCreated, d)
}

// List returns a short listing of drafts (id + prompt)
func (h *AIWriterHandler) List(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]map[string]string, 0, len(h.drafts))
	for id, d := range h.drafts {
		out = append(out, map[string]string{"id": id, "prompt": d.Prompt})
	}
	c.JSON(http.StatusOK, out)
}

// Get returns the draft including its generated body
func (h *AIWriterHandler) Get(c *gin.Context) {
	id := c.Param("id")
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.drafts[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Delete removes a draft from the in-memory store
func (h *AIWriterHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.drafts[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	delete(h.drafts, id)
	c.Status(http.StatusNoContent)
}

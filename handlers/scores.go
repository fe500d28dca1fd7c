package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phishbowl/go-services/internal/scores"
	"github.com/phishbowl/go-services/pkg/logger"
)

// ScoresHandler exposes game score submission, history and the leaderboard.
type ScoresHandler struct {
	svc *scores.Service
}

func NewScoresHandler(svc *scores.Service) *ScoresHandler {
	return &ScoresHandler{svc: svc}
}

func (h *ScoresHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/scores")
	s.POST("", h.Create)
	s.GET("", h.List)
	s.GET("/leaderboard", h.Leaderboard)
}

// Create records a finished game's score for the signed-in user.
func (h *ScoresHandler) Create(c *gin.Context) {
	_, email := claimStrings(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req struct {
		Value int `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sc, err := h.svc.Create(c.Request.Context(), email, req.Value)
	if err != nil {
		if errors.Is(err, scores.ErrInvalidEmail) || errors.Is(err, scores.ErrInvalidValue) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("scores create: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save score"})
		return
	}
	c.JSON(http.StatusCreated, sc)
}

// List returns the signed-in user's score history, newest first.
func (h *ScoresHandler) List(c *gin.Context) {
	_, email := claimStrings(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	list, err := h.svc.ListByEmail(c.Request.Context(), email)
	if err != nil {
		logger.Errorf("scores list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scores"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": list, "count": len(list)})
}

// Leaderboard returns the top scores. ?limit= caps the result (default 10).
func (h *ScoresHandler) Leaderboard(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	top, err := h.svc.Top(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("scores leaderboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": top, "count": len(top)})
}

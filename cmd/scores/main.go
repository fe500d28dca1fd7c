package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phishbowl/go-services/internal/database"
	"github.com/phishbowl/go-services/internal/scores"
)

// Standalone score service for game deployments that do not need the full
// API (no auth; callers supply the email). Prefers Mongo when MONGODB_URI is
// provided, falls back to the in-memory repository.
func main() {
	port := os.Getenv("SCORE_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	var repo scores.Repository
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI != "" {
		client, err := database.ConnectMongo(context.Background(), mongoURI, 10*time.Second)
		if err != nil {
			log.Printf("warning: cannot connect to MongoDB (%v), using memory-backed repo", err)
			repo = scores.NewMemoryRepository()
		} else {
			col := client.Database(os.Getenv("MONGODB_DATABASE")).Collection("scores")
			repo = scores.NewMongoRepository(col)
		}
	} else {
		repo = scores.NewMemoryRepository()
	}
	svc := scores.NewService(repo)

	r.POST("/scores", func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required"`
			Value int    `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sc, err := svc.Create(c.Request.Context(), req.Email, req.Value)
		if err != nil {
			if errors.Is(err, scores.ErrInvalidEmail) || errors.Is(err, scores.ErrInvalidValue) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save score"})
			return
		}
		c.JSON(http.StatusCreated, sc)
	})

	r.GET("/scores", func(c *gin.Context) {
		email := c.Query("email")
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
			return
		}
		list, err := svc.ListByEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scores"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scores": list, "count": len(list)})
	})

	r.GET("/scores/leaderboard", func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		top, err := svc.Top(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"scores": top, "count": len(top)})
	})

	log.Printf("score service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

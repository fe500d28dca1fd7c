package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phishbowl/go-services/handlers"
	"github.com/phishbowl/go-services/internal/account"
	"github.com/phishbowl/go-services/internal/aiwriter"
	"github.com/phishbowl/go-services/internal/config"
	"github.com/phishbowl/go-services/internal/database"
	"github.com/phishbowl/go-services/internal/gmail"
	"github.com/phishbowl/go-services/internal/googleauth"
	"github.com/phishbowl/go-services/internal/oidc"
	"github.com/phishbowl/go-services/internal/scores"
	"github.com/phishbowl/go-services/internal/sessions"
	"github.com/phishbowl/go-services/internal/storage"
	"github.com/phishbowl/go-services/internal/tokens"
	"github.com/phishbowl/go-services/internal/users"
	"github.com/phishbowl/go-services/pkg/logger"
	"github.com/phishbowl/go-services/pkg/metrics"
	"github.com/phishbowl/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: google=%v mongo=%v redis=%v", cfg.Google.ClientID != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS: the browser game runs on a separate origin
	allowOrigin := cfg.Google.AllowedOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// shared runtime vars used by handlers/readiness
	var (
		importedRedis *redis.Client
		userSvc       *users.Service
		usersRepo     users.Repository
		scoresRepo    scores.Repository
		sessionsSvc   *sessions.Service
	)

	// Connect to Redis early so the rate-limiter and token blacklist can use it
	if cfg.Redis.Host != "" {
		importedRedis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := importedRedis.Ping(context.Background()).Err(); err == nil {
			sessions.SetBlacklistClient(importedRedis)
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			importedRedis = nil
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && importedRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(importedRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["users"] = userSvc != nil
		deps["sessions"] = sessionsSvc != nil
		if userSvc == nil || sessionsSvc == nil {
			ready = false
		}
		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = importedRedis != nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	ctx := context.Background()

	// OIDC verifier for Google ID tokens (login flow only; API calls carry our
	// own HS256 access tokens)
	var idTokenVerifier middleware.Verifier
	if cfg.Google.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Google.Issuer, cfg.Google.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize Google OIDC verifier: %v", err)
		} else {
			idTokenVerifier = ver
		}
	}
	if idTokenVerifier == nil && os.Getenv("ALLOW_INSECURE_TOKEN") == "true" {
		logger.Warn("no ID token verifier; insecure claim parsing enabled (integration mode)")
	}

	// Prefer Redis-based sessions when available
	if importedRedis != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(importedRedis, "session:"))
		logger.Infof("using Redis for session storage")
	}

	// MongoDB-backed services (users + scores, sessions as fallback).
	// Retry with backoff to tolerate container startup races.
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var client *mongo.Client
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)
			usersRepo = users.NewMongoRepository(db.Collection("users"))
			userSvc = users.NewService(usersRepo)
			scoresRepo = scores.NewMongoRepository(db.Collection("scores"))
			if sessionsSvc == nil {
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
			}
		}
	}

	// OAuth clients: login and mailbox connect use separate redirect URIs
	loginProvider := googleauth.New(googleauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.LoginRedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
	})
	gmailProvider := googleauth.New(googleauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.GmailRedirectURI,
		Scopes:       []string{"openid", "email", "https://www.googleapis.com/auth/gmail.readonly"},
	})

	accessVerifier := tokens.NewVerifier(cfg.JWT.Secret)
	authmw := middleware.AuthMiddleware(accessVerifier)
	api := r.Group("/api/v1", authmw)

	if userSvc != nil && sessionsSvc != nil {
		handlers.NewAuthHandler(cfg, loginProvider, idTokenVerifier, userSvc, sessionsSvc).Register(r.Group("/"))

		gmailSvc := gmail.NewService(gmailProvider, usersRepo)
		gh := handlers.NewGmailHandler(gmailSvc, cfg)
		gh.Register(api)
		gh.RegisterCallback(r)
	} else {
		logger.Warnf("auth and gmail handlers not registered because user/sessions services are unavailable")
	}

	if scoresRepo != nil {
		scoresSvc := scores.NewService(scoresRepo)
		handlers.NewScoresHandler(scoresSvc).Register(api)
		if usersRepo != nil {
			eraser := account.NewEraser(usersRepo, scoresRepo, cfg.Analytics.ErasureURL)
			handlers.NewAccountHandler(eraser).Register(api)
		}
	}

	handlers.NewAIWriterHandler(aiwriter.NewClient(cfg.AI.URL, cfg.AI.APIKey)).Register(api)

	// template asset storage is optional; only mounted when MinIO is configured
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		store, err := storage.NewTemplateStore(mcfg)
		if err != nil {
			logger.Warnf("template storage unavailable: %v", err)
		} else {
			handlers.NewTemplatesHandler(store).Register(api)
		}
	}

	handlers.RegisterSwagger(r)

	api.GET("/me", func(c *gin.Context) {
		claims, _ := c.Get("claims")
		if userSvc != nil {
			if cm, ok := claims.(map[string]interface{}); ok {
				if sub, ok := cm["sub"].(string); ok && sub != "" {
					u, err := userSvc.GetByGoogleID(c.Request.Context(), sub)
					if err == nil && u != nil {
						c.JSON(http.StatusOK, gin.H{"user": u})
						return
					}
				}
			}
		}
		// fallback: return claims
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Debugf("services: users=%v sessions=%v scores=%v id_verifier=%v", userSvc != nil, sessionsSvc != nil, scoresRepo != nil, idTokenVerifier != nil)
	logger.Infof("starting phishbowl api on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

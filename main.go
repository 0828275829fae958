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

	"github.com/projecto/projecto/handlers"
	"github.com/projecto/projecto/internal/comments"
	"github.com/projecto/projecto/internal/config"
	"github.com/projecto/projecto/internal/database"
	"github.com/projecto/projecto/internal/feed"
	"github.com/projecto/projecto/internal/files"
	"github.com/projecto/projecto/internal/oidc"
	"github.com/projecto/projecto/internal/projects"
	"github.com/projecto/projecto/internal/todos"
	"github.com/projecto/projecto/internal/tokens"
	"github.com/projecto/projecto/internal/users"
	"github.com/projecto/projecto/pkg/logger"
	"github.com/projecto/projecto/pkg/metrics"
	"github.com/projecto/projecto/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple; production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Connect to Redis early so the rate limiter and tag cache can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Connect to MongoDB with retry/backoff to tolerate startup races. When
	// Mongo is not configured or unreachable the in-memory repositories keep
	// the API functional for dev and tests.
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
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
			mongoClient = nil
		}
	}

	var userRepo users.UserRepository
	var projectRepo projects.Repository
	var commentRepo comments.Repository
	var feedRepo feed.Repository
	var todoRepo todos.Repository
	if mongoClient != nil {
		defer func() { _ = mongoClient.Disconnect(ctx) }()
		db := mongoClient.Database(cfg.MongoDB.Database)
		userRepo = users.NewMongoUserRepository(db.Collection("users"))
		projectRepo = projects.NewMongoRepository(db.Collection("projects"))
		commentRepo = comments.NewMongoRepository(db.Collection("comments"))
		feedRepo = feed.NewMongoRepository(db.Collection("feed"))
		todoRepo = todos.NewMongoRepository(db.Collection("todos"))
		logger.Infof("using MongoDB database %q", cfg.MongoDB.Database)
	} else {
		userRepo = users.NewMemoryRepo()
		projectRepo = projects.NewMemoryRepo()
		commentRepo = comments.NewMemoryRepo()
		feedRepo = feed.NewMemoryRepo()
		todoRepo = todos.NewMemoryRepo()
		logger.Warnf("MongoDB unavailable, falling back to in-memory storage")
	}

	var tagCache todos.TagCache
	if redisClient != nil {
		tagCache = todos.NewRedisTagCache(redisClient, "tags:", cfg.Redis.TagCacheTTL)
	}

	userSvc := users.NewService(userRepo)
	projectSvc := projects.NewService(projectRepo, userSvc, userSvc)
	feedSvc := feed.NewService(feedRepo, commentRepo, projectSvc, userSvc)
	todoSvc := todos.NewService(todoRepo, commentRepo, projectSvc, userSvc, tagCache)

	var fileSvc *files.Service
	if cfg.MinIO.Endpoint != "" {
		store, err := files.NewMinIOStore(&cfg.MinIO)
		if err != nil {
			logger.Warnf("failed to initialize MinIO storage: %v", err)
		} else {
			fileSvc = files.NewService(store, projectSvc)
		}
	}

	// Token verification: prefer OIDC when configured, otherwise verify the
	// locally issued login tokens.
	var verifier middleware.Verifier
	if cfg.OIDC.IssuerURL != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil {
		verifier = tokens.NewJWTVerifier(cfg.JWT.Secret)
	}
	authed := middleware.AuthMiddleware(verifier)

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint: report dependency state
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"mongodb": mongoClient != nil,
			"redis":   redisClient != nil,
			"minio":   fileSvc != nil,
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	api := r.Group("/api/v1")
	handlers.NewAuthHandler(cfg, userSvc).Register(api, authed)
	protected := api.Group("", authed)
	handlers.NewProjectHandler(projectSvc).Register(protected)
	handlers.NewFeedHandler(feedSvc).Register(protected)
	handlers.NewTodoHandler(todoSvc).Register(protected)
	if fileSvc != nil {
		handlers.NewFileHandler(fileSvc).Register(protected)
	} else {
		logger.Warnf("file endpoints not registered because MinIO is unavailable")
	}

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting projecto API on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

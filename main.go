package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/noniixxxds/cartorio-teste-final/config"
	"github.com/noniixxxds/cartorio-teste-final/handler"
	"github.com/noniixxxds/cartorio-teste-final/middleware"
	"github.com/noniixxxds/cartorio-teste-final/pkg/logger"
	"github.com/noniixxxds/cartorio-teste-final/service"
)

func main() {
	// Local .env is optional; the environment wins either way
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// The Gemini credential is resolved once at startup; without it there is
	// nothing this service can do.
	ctx := context.Background()
	gemini, err := service.NewGeminiService(ctx, &cfg.Gemini, &cfg.Limits)
	if err != nil {
		slog.Error("failed to initialize Gemini service", "error", err)
		os.Exit(1)
	}

	session := service.NewSession(gemini)

	documentHandler := handler.NewDocumentHandler(session, &cfg.Limits)
	researchHandler := handler.NewResearchHandler(session)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	router.Use(middleware.RequestID())                // Request ID for tracing
	router.Use(middleware.Recovery())                 // Panic recovery
	router.Use(middleware.RequestLogger())            // Access logging
	router.Use(corsMiddleware())                      // CORS
	router.Use(cacheMiddleware())                     // Cache control
	router.Use(middleware.RateLimit(60, time.Minute)) // Rate limiting: 60 requests per minute

	// Determine static files directory
	staticDir := "./web/"
	if _, err := os.Stat(staticDir + "index.html"); os.IsNotExist(err) {
		staticDir = "../web/"
	}
	slog.Info("serving static files", "directory", staticDir)

	router.StaticFile("/", staticDir+"index.html")
	router.StaticFile("/index.html", staticDir+"index.html")
	router.StaticFile("/app.js", staticDir+"app.js")
	router.StaticFile("/styles.css", staticDir+"styles.css")

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/documents", documentHandler.Upload)
		api.GET("/documents/current", documentHandler.Get)
		api.GET("/documents/current/image", documentHandler.Image)
		api.DELETE("/documents/current", documentHandler.Reset)
		api.POST("/research", researchHandler.Submit)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// cacheMiddleware sets cache control headers for static files
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Skip caching for API routes
		if strings.HasPrefix(path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
			return
		}

		// Set cache headers for static files (1 hour)
		if strings.HasSuffix(path, ".js") ||
			strings.HasSuffix(path, ".css") ||
			strings.HasSuffix(path, ".html") ||
			path == "/" {
			c.Header("Cache-Control", "public, max-age=3600, must-revalidate")
		}

		c.Next()
	}
}

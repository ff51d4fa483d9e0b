package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bz888/solver/internal/api/server/client"
	"github.com/bz888/solver/internal/api/server/handlers"
	"github.com/bz888/solver/internal/config"
	"github.com/bz888/solver/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var LocalLogger = logger.NewLogger("server")

// NewGenerator builds the LLM backend selected in cfg.
func NewGenerator(cfg config.ServerConfig) (client.Generator, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return client.NewOllamaClient(cfg.OllamaHost, cfg.Model, cfg.Temperature), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, errors.New("OpenAI API key not provided")
		}
		return client.NewOpenAIClient(cfg.OpenAIHost, cfg.OpenAIKey, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// LoadPrompt reads the system prompt. A missing file means an empty prompt.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		LocalLogger.Warn("prompt file not found, using an empty prompt: ", path)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return string(data), nil
}

// NewRouter wires the handlers, CORS and metrics into a gin engine.
func NewRouter(handler *handlers.Handler, reg *prometheus.Registry, dev bool) *gin.Engine {
	if !dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())
	registerRoutes(router, handler, reg)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config) error {
	generator, err := NewGenerator(cfg.Server)
	if err != nil {
		return err
	}
	prompt, err := LoadPrompt(cfg.Server.PromptFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler := handlers.NewHandler(generator, prompt, handlers.NewMetrics(reg))
	if cfg.Server.Extract {
		extractPrompt, err := LoadPrompt(cfg.Server.ExtractPromptFile)
		if err != nil {
			return err
		}
		handler.EnableExtraction(extractPrompt)
		LocalLogger.Info("Problem extraction enabled")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(handler, reg, cfg.Dev),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		LocalLogger.Info("Server started on ", cfg.Server.Addr, " using ", generator.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	LocalLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	LocalLogger.Info("Server exited")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		LocalLogger.Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// cors allows any origin, mirroring the origin back so credentials work.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if headers := c.GetHeader("Access-Control-Request-Headers"); headers != "" {
			c.Header("Access-Control-Allow-Headers", headers)
		} else {
			c.Header("Access-Control-Allow-Headers", "*")
		}
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujith-mp/healthlens-ai/internal/api"
	"github.com/sujith-mp/healthlens-ai/internal/chat"
	"github.com/sujith-mp/healthlens-ai/internal/clinical"
	"github.com/sujith-mp/healthlens-ai/internal/config"
	"github.com/sujith-mp/healthlens-ai/internal/logger"
	"github.com/sujith-mp/healthlens-ai/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	logr, logCloser, err := logger.New(logger.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()
	app, err := build(ctx, cfg, logr)
	if err != nil {
		logr.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logr.Info("server listening", "port", cfg.Server.Port, "db", cfg.Database.Enabled, "redis", cfg.Redis.Enabled, "llm", cfg.LLMEnabled())
	waitForShutdown(server, logr)
}

// application owns the router and the connections behind it.
type application struct {
	router  *gin.Engine
	closers []io.Closer
	store   store.Store
}

func (a *application) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.store.Close()
	return nil
}

// build connects the configured backends and wires the router. Postgres and
// Redis are optional; without them records and chat sessions live in memory.
func build(ctx context.Context, cfg *config.Config, logr *slog.Logger) (*application, error) {
	app := &application{}
	checks := map[string]api.HealthChecker{}

	if cfg.Database.Enabled {
		db, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		app.store = db
		checks["db"] = db
	} else {
		logr.Warn("database disabled, records are kept in memory")
		app.store = store.NewMemory()
	}

	var sessions chat.SessionStore
	if cfg.Redis.Enabled {
		client, err := chat.OpenRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		app.closers = append(app.closers, client)
		redisSessions := chat.NewRedisSessions(client, cfg.Chat.SessionTTL, cfg.Chat.MaxHistory)
		sessions = redisSessions
		checks["redis"] = redisSessions
	} else {
		sessions = chat.NewMemorySessions(cfg.Chat.SessionTTL, cfg.Chat.MaxHistory)
	}

	tools := chat.NewToolbox(clinical.NewSymptomMatcher(nil), clinical.NewRiskScorer())
	var llm chat.Responder
	if cfg.LLMEnabled() {
		llm = chat.NewGemini(chat.GeminiConfig{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			BaseURL:    cfg.Gemini.BaseURL,
			Timeout:    cfg.Gemini.Timeout,
			MaxRetries: cfg.Gemini.MaxRetries,
		}, tools, logr)
	} else {
		logr.Info("GEMINI_API_KEY not set, chat uses keyword replies")
	}
	chatSvc := chat.NewService(sessions, llm, chat.NewFallback(tools), logr)

	app.router = api.NewRouter(api.NewHandler(app.store, chatSvc, logr), api.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Checks:       checks,
	})
	return app, nil
}

func waitForShutdown(server *http.Server, logr *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logr.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", "error", err)
	}
}

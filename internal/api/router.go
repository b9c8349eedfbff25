// Package api exposes the assessments, trackers and chat over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sujith-mp/healthlens-ai/internal/chat"
	"github.com/sujith-mp/healthlens-ai/internal/clinical"
	"github.com/sujith-mp/healthlens-ai/internal/store"
)

// UserHeader carries the authenticated user id set by the gateway.
const UserHeader = "X-User-ID"

const userKey = "user_id"

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	MaxBodyBytes int64
	CORSOrigins  []string
	// Checks are pinged by /readyz, keyed by the name reported in the body.
	Checks map[string]HealthChecker
}

// Handler holds the dependencies shared by every route.
type Handler struct {
	store   store.Store
	matcher *clinical.SymptomMatcher
	scorer  *clinical.RiskScorer
	chat    *chat.Service
	log     *slog.Logger
}

func NewHandler(st store.Store, chatSvc *chat.Service, log *slog.Logger) *Handler {
	return &Handler{
		store:   st,
		matcher: clinical.NewSymptomMatcher(nil),
		scorer:  clinical.NewRiskScorer(),
		chat:    chatSvc,
		log:     log,
	}
}

var registerTagNames sync.Once

// NewRouter wires middleware, probes and the /api/v1 routes.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	registerTagNames.Do(useJSONFieldNames)

	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(opts.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", UserHeader},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readiness(opts.Checks))

	v1 := router.Group("/api/v1", requireUser())
	{
		v1.POST("/symptoms/analyze", h.analyzeSymptoms)
		v1.GET("/symptoms/history", h.symptomHistory)

		v1.POST("/risk/:disease", h.predictRisk)
		v1.GET("/risk/history", h.riskHistory)

		v1.POST("/nutrition/plan", h.nutritionPlan)
		v1.GET("/nutrition/latest", h.latestNutritionPlan)

		v1.POST("/chat/message", h.chatMessage)
		v1.DELETE("/chat/history", h.clearChat)

		v1.POST("/vitals", h.recordVitals)
		v1.GET("/vitals", h.listVitals)
		v1.GET("/vitals/latest", h.latestVitals)

		v1.GET("/medications", h.listMedications)
		v1.POST("/medications", h.addMedication)
		v1.DELETE("/medications/:id", h.removeMedication)
		v1.POST("/medications/log", h.logMedication)
		v1.GET("/medications/history", h.medicationHistory)
		v1.GET("/medications/interactions", h.medicationInteractions)

		v1.GET("/dashboard/summary", h.dashboardSummary)
	}

	return router
}

func readiness(checks map[string]HealthChecker) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				body[name] = fmt.Sprintf("unhealthy: %v", err)
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		c.JSON(status, body)
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// requireUser rejects requests that did not pass through the auth gateway.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + UserHeader + " header"})
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}

// useJSONFieldNames makes validation errors report json field names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

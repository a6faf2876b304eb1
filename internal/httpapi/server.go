// Package httpapi exposes the thin HTTP surface in front of the sandbox
// subsystem: submit-code, a forced orphan sweep, health, and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nekroagent/sandboxd/internal/logging"
	"nekroagent/sandboxd/internal/metrics"
	"nekroagent/sandboxd/internal/sandbox"
)

// Server wraps the gin engine and its dependencies.
type Server struct {
	engine     *gin.Engine
	manager    *sandbox.Manager
	sweep      func(ctx context.Context) error
	adminToken string
	limiter    *keyLimiter
}

// NewServer builds the HTTP surface. sweep is called by the admin sweep
// route; it is the same function cmd/sandboxd calls at startup/shutdown.
func NewServer(manager *sandbox.Manager, sweep func(ctx context.Context) error, adminToken string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:     gin.New(),
		manager:    manager,
		sweep:      sweep,
		adminToken: adminToken,
		limiter:    newKeyLimiter(rate.Limit(2), 10),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", metrics.PrometheusHandler())
	s.engine.POST("/v1/executions", s.handleSubmit)
	s.engine.POST("/v1/admin/sweep", s.requireAdmin, s.handleSweep)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type submitRequestBody struct {
	ChatKey            string `json:"chat_key" binding:"required"`
	CodeText           string `json:"code_text" binding:"required"`
	CotContent         string `json:"cot_content"`
	OutputLimit        int    `json:"output_limit"`
	GenerationTimeMs   int64  `json:"generation_time_ms"`
	TriggerSenderID    int64  `json:"trigger_sender_id"`
	TriggerSenderName  string `json:"trigger_sender_real_nickname"`
}

type submitResponseBody struct {
	DisplayOutput string `json:"display_output"`
	StopCode      int    `json:"stop_code"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.limiter.allow(body.ChatKey) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded for chat_key"})
		return
	}

	req := sandbox.SubmitRequest{
		ChatKey:           body.ChatKey,
		CodeText:          body.CodeText,
		CotContent:        body.CotContent,
		OutputLimit:       body.OutputLimit,
		GenerationTimeMs:  body.GenerationTimeMs,
		TriggerSenderID:   body.TriggerSenderID,
		TriggerSenderName: body.TriggerSenderName,
	}

	start := time.Now()
	result, err := s.manager.Submit(c.Request.Context(), req)
	duration := time.Since(start)

	if err != nil {
		logging.L().Error("submit failed", zap.String("chat_key", body.ChatKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	m := metrics.Get()
	m.CodeExecutionsTotal.WithLabelValues(result.StopType.String()).Inc()
	m.CodeExecutionDuration.WithLabelValues(result.StopType.String()).Observe(duration.Seconds())

	c.JSON(http.StatusOK, submitResponseBody{
		DisplayOutput: result.DisplayOutput,
		StopCode:      int(result.StopType),
	})
}

func (s *Server) requireAdmin(c *gin.Context) {
	if s.adminToken == "" || c.GetHeader("Authorization") != "Bearer "+s.adminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) handleSweep(c *gin.Context) {
	if err := s.sweep(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "swept"})
}

// SPDX-License-Identifier: AGPL-3.0-only

// Package server exposes the orchestrator over HTTP: a JSON request/response
// endpoint and an SSE streaming variant of the same operation.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sriram687/adya-mcp-hackathon/internal/config"
	"github.com/sriram687/adya-mcp-hackathon/internal/engine"
	"github.com/sriram687/adya-mcp-hackathon/internal/errors"
	"github.com/sriram687/adya-mcp-hackathon/internal/logging"
	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// Server is the HTTP surface of the orchestrator.
type Server struct {
	cfg        *config.Config
	engine     *engine.Engine
	validator  *engine.Validator
	store      model.RunStore
	logger     *logging.Logger
	httpServer *http.Server
	done       chan struct{}
}

// New creates the server and wires its routes. store may be nil.
func New(cfg *config.Config, eng *engine.Engine, validator *engine.Validator, store model.RunStore, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	s := &Server{
		cfg:       cfg,
		engine:    eng,
		validator: validator,
		store:     store,
		logger:    logger,
		done:      make(chan struct{}),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1/mcp")
	api.POST("/process_message", s.handleProcessMessage)
	api.POST("/process_message_stream", s.handleProcessMessageStream)
	api.GET("/runs", s.handleRuns)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler: router,
	}
	return s
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		defer close(s.done)
		s.logger.Infof("HTTP server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("HTTP server error: %v", err)
		}
	}()
}

// Done is closed when the listener exits.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.cfg.Server.Name,
		"version": s.cfg.Server.Version,
	})
}

// handleProcessMessage runs one orchestration request and returns the full
// response. Validation failures still answer 200 with Status=false; only a
// malformed body is a transport-level error.
func (s *Server) handleProcessMessage(c *gin.Context) {
	var req model.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusInternalServerError, &model.ExecutionResponse{
			Error: model.ErrString(errors.InvalidInput(err.Error()).Error()),
		})
		return
	}
	req.ClientDetails.IsStream = false

	if err := s.validator.Validate(c.Request.Context(), &req); err != nil {
		s.logger.Warnf("Request validation failed: %v", err)
		c.JSON(http.StatusOK, &model.ExecutionResponse{
			Error: model.ErrString(err.Error()),
		})
		return
	}

	resp := s.engine.Execute(c.Request.Context(), &req, nil)
	c.JSON(http.StatusOK, resp)
}

const runsDefaultLimit = 20

func (s *Server) handleRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, []*model.RunRecord{})
		return
	}
	limit := runsDefaultLimit
	if v := c.Query("limit"); v != "" {
		var parsed int
		if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	runs, err := s.store.GetRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errors.Internal(err).Error()})
		return
	}
	if runs == nil {
		runs = []*model.RunRecord{}
	}
	c.JSON(http.StatusOK, runs)
}

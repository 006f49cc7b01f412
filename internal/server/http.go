// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/AccelByte/extend-habit-challenge/pkg/handler"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Port           int
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// HTTPServer manages the REST API lifecycle.
type HTTPServer struct {
	server  *http.Server
	cfg     HTTPConfig
	handler *handler.ChallengeHandler
	limiter *RateLimiter
	stop    chan struct{}
}

// NewHTTPServer creates a new API server instance.
func NewHTTPServer(cfg HTTPConfig, h *handler.ChallengeHandler) *HTTPServer {
	return &HTTPServer{
		cfg:     cfg,
		handler: h,
		stop:    make(chan struct{}),
	}
}

// Setup builds the router and middleware chain.
func (s *HTTPServer) Setup() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return nil
}

// Router returns the fully wrapped API handler.
func (s *HTTPServer) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(MonitorMiddleware)
	if s.cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)
		r.Use(s.limiter.Middleware)
	}
	s.handler.RegisterRoutes(r)

	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(s.cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)
	recovery := gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(logrus.StandardLogger()),
		gorillaHandlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

// Start begins serving the API.
func (s *HTTPServer) Start(ctx context.Context) error {
	if s.limiter != nil {
		go s.cleanupVisitors()
	}

	go func() {
		logrus.Infof("HTTP server listening on port %d", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

func (s *HTTPServer) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if n := s.limiter.Cleanup(now); n > 0 {
				logrus.Debugf("dropped %d idle rate limit entries", n)
			}
		}
	}
}

// Shutdown gracefully stops the API server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	close(s.stop)
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}

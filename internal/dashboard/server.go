// Package dashboard exposes the runtime health surface over HTTP: per-book
// sync status including the desynced flag, channel statistics and process
// uptime.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	appconfig "canonflow/config"
	"canonflow/internal/channel"
	"canonflow/internal/orderbook"
	"canonflow/logger"
)

// Server hosts the monitoring endpoints. A nil *Server (dashboard disabled)
// is safe to Start and Stop.
type Server struct {
	cfg        appconfig.DashboardConfig
	books      *orderbook.Manager
	chans      *channel.Channels
	httpServer *http.Server
	startedAt  time.Time
	log        *logger.Log
}

// NewServer returns nil when the dashboard is disabled.
func NewServer(cfg appconfig.DashboardConfig, books *orderbook.Manager, chans *channel.Channels) *Server {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	return &Server{
		cfg:   cfg,
		books: books,
		chans: chans,
		log:   logger.GetLogger(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.startedAt = time.Now()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/api/books", s.handleBooks)
	router.GET("/api/stats", s.handleStats)

	s.httpServer = &http.Server{Addr: s.cfg.Address, Handler: router}

	go func() {
		s.log.WithComponent("dashboard").WithFields(logger.Fields{
			"address": s.cfg.Address,
		}).Info("dashboard listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithComponent("dashboard").WithError(err).Error("dashboard server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Server) Stop() {
	if s == nil || s.httpServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(shutdownCtx)
	s.log.WithComponent("dashboard").Info("dashboard stopped")
}

// handleHealthz reports overall liveness: 503 when any book is desynced, so
// orchestration probes notice a stuck snapshot source.
func (s *Server) handleHealthz(c *gin.Context) {
	books := s.books.Health()
	desynced := 0
	for _, h := range books {
		if h.Desynced {
			desynced++
		}
	}

	status := http.StatusOK
	state := "ok"
	if desynced > 0 {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":   state,
		"books":    len(books),
		"desynced": desynced,
		"uptime":   time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleBooks(c *gin.Context) {
	c.JSON(http.StatusOK, s.books.Health())
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.chans.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"raw_sent":       stats.RawSent,
		"raw_dropped":    stats.RawDropped,
		"record_sent":    stats.RecordSent,
		"record_dropped": stats.RecordDropped,
		"goroutines":     runtime.NumGoroutine(),
		"uptime":         time.Since(s.startedAt).String(),
	})
}

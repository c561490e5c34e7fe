// Package server exposes health, prometheus metrics and the current ledger over
// HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khoirulanam-dev/CTF-Polije/internal/config"
	"github.com/khoirulanam-dev/CTF-Polije/internal/model"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// LedgerFunc returns a copy of the ledger, oldest first.
type LedgerFunc func() []model.Event

type Server struct {
	engine *gin.Engine
	http   *http.Server
	ledger LedgerFunc
}

func New(cfg config.ServerConfig, gatherer prometheus.Gatherer, ledger LedgerFunc) *Server {
	s := &Server{engine: gin.New(), ledger: ledger}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	s.engine.GET("/firstbloods", s.firstBloods)

	s.http = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Serve blocks until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.http.Shutdown(ctx) }

// firstBloods lists the newest ledger entries first.
func (s *Server) firstBloods(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultFeedLimit)))
	if err != nil || limit <= 0 || limit > maxFeedLimit {
		limit = defaultFeedLimit
	}

	var ledger []model.Event
	if s.ledger != nil {
		ledger = s.ledger()
	}
	out := make([]model.Event, 0, limit)
	for i := len(ledger) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, ledger[i])
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "events": out})
}

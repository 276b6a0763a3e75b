// Package server is a reference Remote Result Service: per-player
// progress documents, win/loss counters and stats over JSON, a puzzle
// proxy that validates upstream payloads, and a Strands word checker.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/dailies/internal/game"
	"github.com/roach88/dailies/internal/progress"
	"github.com/roach88/dailies/internal/remote"
	"github.com/roach88/dailies/internal/stats"
	"github.com/roach88/dailies/internal/strands"
)

// Store persists results and progress per player.
type Store interface {
	RecordResult(ctx context.Context, userID, eventID string, r game.Result) (bool, error)
	Counters(ctx context.Context, userID string, kind game.Kind) (stats.Counters, error)
	SaveProgress(ctx context.Context, userID string, snap progress.Snapshot) error
	Progress(ctx context.Context, userID string, kind game.Kind, date string) (progress.Snapshot, bool, error)
}

// Puzzles is the validated upstream puzzle feed.
type Puzzles interface {
	Raw(ctx context.Context, kind game.Kind, date string) ([]byte, error)
	Strands(ctx context.Context, date string) (strands.Puzzle, error)
	StrandsAnswers(ctx context.Context, date string) (strands.Answers, error)
}

// maxProgressBody caps the size of a progress document.
const maxProgressBody = 64 << 10

// Server wires the handlers onto a gin engine.
type Server struct {
	store   Store
	puzzles Puzzles
	tokens  *Tokens
	logger  *slog.Logger
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the service.
func New(store Store, puzzles Puzzles, tokens *Tokens, opts ...Option) *Server {
	s := &Server{
		store:   store,
		puzzles: puzzles,
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.observe())
	s.setupRoutes(r)
	s.engine = r
	return s
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/auth/me", s.me)
		api.POST("/strands/submit", s.submitStrands)

		for _, kind := range game.Kinds {
			g := api.Group("/" + string(kind))
			authed := g.Group("", s.requireUser())
			{
				authed.GET("/progress", s.getProgress(kind))
				authed.POST("/progress", s.postProgress(kind))
				authed.POST("/win", s.postResult(kind, game.Win))
				authed.POST("/loss", s.postResult(kind, game.Loss))
				authed.GET("/stats", s.getStats(kind))
			}
			g.GET("/:date", s.getPuzzle(kind))
		}
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("result service listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("result service shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) me(c *gin.Context) {
	id, err := s.userFrom(c)
	if err != nil {
		abortJSON(c, http.StatusUnauthorized, ErrNoSession)
		return
	}
	c.JSON(http.StatusOK, remote.MeResponse{User: &remote.User{ID: id}})
}

func (s *Server) getProgress(kind game.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		if !game.ValidDate(date) {
			abortJSON(c, http.StatusBadRequest, fmt.Errorf("invalid date %q", date))
			return
		}
		snap, ok, err := s.store.Progress(c.Request.Context(), userID(c), kind, date)
		if err != nil {
			s.fail(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"progress": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"progress": snap})
	}
}

func (s *Server) postProgress(kind game.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProgressBody+1))
		if err != nil {
			abortJSON(c, http.StatusBadRequest, err)
			return
		}
		if len(body) > maxProgressBody {
			abortJSON(c, http.StatusRequestEntityTooLarge, fmt.Errorf("progress document too large"))
			return
		}
		snap, err := progress.Decode(kind, body)
		if err != nil {
			abortJSON(c, http.StatusBadRequest, err)
			return
		}
		if err := s.store.SaveProgress(c.Request.Context(), userID(c), snap); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (s *Server) postResult(kind game.Kind, outcome game.Outcome) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req remote.ResultRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abortJSON(c, http.StatusBadRequest, err)
			return
		}
		r, err := req.Result(kind, outcome)
		if err != nil {
			abortJSON(c, http.StatusBadRequest, err)
			return
		}
		key := strings.TrimSpace(c.GetHeader(remote.IdempotencyHeader))
		applied, err := s.store.RecordResult(c.Request.Context(), userID(c), key, r)
		if err != nil {
			s.fail(c, err)
			return
		}
		resultsApplied.WithLabelValues(string(kind), string(outcome), strconv.FormatBool(applied)).Inc()
		if !applied {
			s.logger.Info("duplicate result delivery", "kind", kind, "user", userID(c), "key", key)
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "applied": applied})
	}
}

func (s *Server) getStats(kind game.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		counters, err := s.store.Counters(c.Request.Context(), userID(c), kind)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats.Summarize(kind, counters))
	}
}

func (s *Server) submitStrands(c *gin.Context) {
	var req remote.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, err)
		return
	}
	if !game.ValidDate(req.Date) {
		abortJSON(c, http.StatusBadRequest, fmt.Errorf("invalid date %q", req.Date))
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		abortJSON(c, http.StatusBadRequest, fmt.Errorf("word is required"))
		return
	}
	answers, err := s.puzzles.StrandsAnswers(c.Request.Context(), req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answers.Classify(req.Word))
}

// getPuzzle proxies the upstream definition for a date. Strands answers
// never leave the server.
func (s *Server) getPuzzle(kind game.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Param("date")
		if !game.ValidDate(date) {
			abortJSON(c, http.StatusBadRequest, fmt.Errorf("invalid date %q", date))
			return
		}
		ctx := c.Request.Context()
		if kind == game.Strands {
			p, err := s.puzzles.Strands(ctx, date)
			if err != nil {
				puzzleFetches.WithLabelValues(string(kind), "error").Inc()
				s.fail(c, err)
				return
			}
			puzzleFetches.WithLabelValues(string(kind), "ok").Inc()
			c.JSON(http.StatusOK, p)
			return
		}
		data, err := s.puzzles.Raw(ctx, kind, date)
		if err != nil {
			puzzleFetches.WithLabelValues(string(kind), "error").Inc()
			s.fail(c, err)
			return
		}
		puzzleFetches.WithLabelValues(string(kind), "ok").Inc()
		c.Data(http.StatusOK, "application/json", data)
	}
}

// fail maps err onto a status code.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case game.IsInputInvalid(err):
		abortJSON(c, http.StatusBadRequest, err)
	case game.IsUpstream(err):
		abortJSON(c, http.StatusBadGateway, err)
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		abortJSON(c, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func abortJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, remote.ErrorResponse{Error: err.Error()})
}

// Package server exposes game sessions over HTTP and WebSockets.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dqtoy/crazy-eights/engine"
	"github.com/dqtoy/crazy-eights/internal/auth"
	"github.com/dqtoy/crazy-eights/internal/cache"
	"github.com/dqtoy/crazy-eights/internal/config"
	"github.com/dqtoy/crazy-eights/internal/database"
	"github.com/dqtoy/crazy-eights/internal/game"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// History is the action log and snapshot cache. *cache.Historian implements it.
type History interface {
	game.Historian
	Actions(ctx context.Context, gameID uuid.UUID) ([]cache.GameActionRecord, error)
	DeleteSnapshot(ctx context.Context, gameID uuid.UUID) error
}

// Archive is the results store. *database.Store implements it.
type Archive interface {
	game.ResultStore
	LoadTally(ctx context.Context) (database.Tally, error)
}

// Server owns the live sessions.
type Server struct {
	cfg     config.Config
	log     *logrus.Logger
	history History
	archive Archive

	mu      sync.Mutex
	tables  map[uuid.UUID]*table
	deleted map[uuid.UUID]struct{} // closed by DELETE; never resumed
}

// Option configures a Server.
type Option func(*Server)

// WithHistory records actions and snapshots, and lets sessions be resumed after a restart.
func WithHistory(h History) Option { return func(s *Server) { s.history = h } }

// WithArchive stores deals and results.
func WithArchive(a Archive) Option { return func(s *Server) { s.archive = a } }

func New(cfg config.Config, log *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		tables:  make(map[uuid.UUID]*table),
		deleted: make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/stats", s.getStats)
	r.POST("/sessions", s.createSession)

	seat := r.Group("/sessions/:id", s.requireSeat)
	seat.GET("", s.getState)
	seat.DELETE("", s.deleteSession)
	seat.GET("/history", s.getHistory)
	seat.GET("/ws", s.serveWS)
	return r
}

// Shutdown closes every live session, waiting for their pending writes.
func (s *Server) Shutdown() {
	s.mu.Lock()
	tables := make([]*table, 0, len(s.tables))
	for id, t := range s.tables {
		tables = append(tables, t)
		delete(s.tables, id)
	}
	s.mu.Unlock()
	for _, t := range tables {
		t.close()
	}
}

func (s *Server) sessionConfig(rules engine.HouseRules) game.Config {
	return game.Config{
		Rules:       rules,
		Timing:      s.cfg.Timing,
		Seed:        s.cfg.Seed,
		TurnTimeout: s.cfg.TurnTimeout,
	}
}

func (s *Server) sessionOptions() []game.Option {
	opts := []game.Option{game.WithLogger(s.log)}
	if s.history != nil {
		opts = append(opts, game.WithHistorian(s.history))
	}
	if s.archive != nil {
		opts = append(opts, game.WithStore(s.archive))
	}
	return opts
}

// register wraps sess in a table and makes it reachable by id.
func (s *Server) register(sess *game.Session) *table {
	t := newTable(sess, s.log.WithField("session", sess.ID))
	s.mu.Lock()
	s.tables[sess.ID] = t
	s.mu.Unlock()
	return t
}

// lookup finds a live session, resuming it from the history cache when it
// is not in memory.
func (s *Server) lookup(ctx context.Context, id uuid.UUID) (*table, error) {
	s.mu.Lock()
	t, ok := s.tables[id]
	_, gone := s.deleted[id]
	s.mu.Unlock()
	if ok {
		return t, nil
	}
	if gone || s.history == nil {
		return nil, ErrSessionNotFound
	}

	sess, err := game.LoadSession(ctx, s.history, id, s.sessionConfig(s.cfg.Rules), s.sessionOptions()...)
	if game.IsNoSnapshot(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resume session %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.deleted[id]; gone {
		go sess.Close()
		return nil, ErrSessionNotFound
	}
	if existing, ok := s.tables[id]; ok {
		// Another request resumed it first.
		go sess.Close()
		return existing, nil
	}
	t = newTable(sess, s.log.WithField("session", id))
	s.tables[id] = t
	s.log.WithField("session", id).Info("session resumed from cache")
	return t, nil
}

// remove unregisters a session for good; lookup will not resume it.
func (s *Server) remove(id uuid.UUID) (*table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	delete(s.tables, id)
	if ok {
		s.deleted[id] = struct{}{}
	}
	return t, ok
}

const claimsKey = "claims"

// requireSeat checks the seat token against the :id path parameter.
func (s *Server) requireSeat(c *gin.Context) {
	token := tokenFromRequest(c)
	if token == "" {
		writeAPIError(c, s.log, ErrMissingToken)
		return
	}
	claims, err := auth.ParseSeatToken(token, s.cfg)
	if err != nil {
		writeAPIError(c, s.log, err)
		return
	}
	if c.Param("id") != claims.SessionID.String() {
		writeAPIError(c, s.log, ErrSeatMismatch)
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

// tokenFromRequest reads a bearer token from the Authorization header, or
// from the token query parameter for WebSocket clients that cannot set headers.
func tokenFromRequest(c *gin.Context) string {
	if authz := c.GetHeader("Authorization"); authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(c.Query("token"))
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

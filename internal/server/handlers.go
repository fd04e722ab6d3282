package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/dqtoy/crazy-eights/engine"
	"github.com/dqtoy/crazy-eights/internal/auth"
	"github.com/dqtoy/crazy-eights/internal/game"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type createSessionRequest struct {
	Name           string `json:"name"`
	NumPlayers     uint8  `json:"numPlayers"`
	CardsPerPlayer uint8  `json:"cardsPerPlayer"`
	Start          bool   `json:"start"`
}

type createSessionResponse struct {
	SessionID string            `json:"sessionId"`
	SeatID    string            `json:"seatId"`
	Token     string            `json:"token"`
	State     game.ObfGameState `json:"state"`
}

func (r createSessionRequest) rules(def engine.HouseRules) (engine.HouseRules, error) {
	rules := def
	if r.NumPlayers != 0 {
		rules.NumPlayers = r.NumPlayers
	}
	if r.CardsPerPlayer != 0 {
		rules.CardsPerPlayer = r.CardsPerPlayer
	}
	n := int(rules.NumPlayers)
	if n == 0 {
		n = 2
	}
	if n < 2 || n > engine.MaxPlayers {
		return rules, fmt.Errorf("%w: numPlayers must be 2..%d", ErrInvalidRules, engine.MaxPlayers)
	}
	if rules.CardsPerPlayer == 0 || int(rules.CardsPerPlayer)*n+1 > engine.DeckSize {
		return rules, fmt.Errorf("%w: cannot deal %d cards to %d players", ErrInvalidRules, rules.CardsPerPlayer, n)
	}
	return rules, nil
}

// POST /sessions
func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeAPIError(c, s.log, ErrInvalidJSON)
		return
	}
	rules, err := req.rules(s.cfg.Rules)
	if err != nil {
		writeAPIError(c, s.log, err)
		return
	}

	sess := game.NewSession(s.sessionConfig(rules), s.sessionOptions()...)
	if req.Name != "" {
		sess.Seats[0].Name = req.Name
	}
	seat := sess.HumanSeat()
	token, err := auth.IssueSeatToken(sess.ID, seat, s.cfg)
	if err != nil {
		sess.Close()
		writeAPIError(c, s.log, err)
		return
	}
	s.register(sess)
	s.log.WithFields(logrus.Fields{"session": sess.ID, "players": len(sess.Seats)}).Info("session created")

	if req.Start {
		if _, err := sess.Start(); err != nil {
			writeAPIError(c, s.log, err)
			return
		}
	}
	c.JSON(http.StatusCreated, createSessionResponse{
		SessionID: sess.ID.String(),
		SeatID:    seat.String(),
		Token:     token,
		State:     sess.State(seat),
	})
}

func claimsFrom(c *gin.Context) *auth.Claims {
	return c.MustGet(claimsKey).(*auth.Claims)
}

// GET /sessions/:id
func (s *Server) getState(c *gin.Context) {
	claims := claimsFrom(c)
	t, err := s.lookup(c.Request.Context(), claims.SessionID)
	if err != nil {
		writeAPIError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, t.session.State(claims.SeatID))
}

// DELETE /sessions/:id
func (s *Server) deleteSession(c *gin.Context) {
	claims := claimsFrom(c)
	// lookup resumes a session that only exists in the cache, so it can be deleted too.
	if _, err := s.lookup(c.Request.Context(), claims.SessionID); err != nil {
		writeAPIError(c, s.log, err)
		return
	}
	t, ok := s.remove(claims.SessionID)
	if !ok {
		writeAPIError(c, s.log, ErrSessionNotFound)
		return
	}
	// Close flushes queued snapshot writes, so the delete below is the last word.
	t.close()
	if s.history != nil {
		if err := s.history.DeleteSnapshot(c.Request.Context(), claims.SessionID); err != nil {
			writeAPIError(c, s.log, err)
			return
		}
	}
	s.log.WithField("session", claims.SessionID).Info("session closed")
	c.Status(http.StatusNoContent)
}

// GET /sessions/:id/history
func (s *Server) getHistory(c *gin.Context) {
	if s.history == nil {
		writeAPIError(c, s.log, ErrUnavailable)
		return
	}
	claims := claimsFrom(c)
	recs, err := s.history.Actions(c.Request.Context(), claims.SessionID)
	if err != nil {
		writeAPIError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": recs})
}

// GET /stats
func (s *Server) getStats(c *gin.Context) {
	if s.archive == nil {
		writeAPIError(c, s.log, ErrUnavailable)
		return
	}
	tally, err := s.archive.LoadTally(c.Request.Context())
	if err != nil {
		writeAPIError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

// GET /sessions/:id/ws
func (s *Server) serveWS(c *gin.Context) {
	claims := claimsFrom(c)
	t, err := s.lookup(c.Request.Context(), claims.SessionID)
	if err != nil {
		writeAPIError(c, s.log, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.WSAllowedOrigins,
	})
	if err != nil {
		// Accept has already written the response.
		t.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.CloseNow()

	log := t.log.WithField("seat", claims.SeatID)
	cl := newClient(conn, claims.SeatID)
	t.add(cl)
	defer t.remove(cl)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go cl.writeLoop(ctx, log)

	if err := t.session.Connect(claims.SeatID); err != nil {
		log.WithError(err).Warn("seat rejected")
		_ = conn.Close(websocket.StatusPolicyViolation, "unknown seat")
		return
	}
	cl.readLoop(ctx, log, func(a game.Action) error {
		return t.session.HandleAction(claims.SeatID, a)
	})
}

package server

import (
	"encoding/json"
	"sync"

	"github.com/dqtoy/crazy-eights/internal/game"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// table fans a session's events out to the WebSocket clients attached to it.
// Lock order is session.Mu before table.mu.
type table struct {
	session *game.Session
	log     *logrus.Entry

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newTable(sess *game.Session, log *logrus.Entry) *table {
	t := &table{session: sess, log: log, clients: make(map[*client]struct{})}
	sess.Mu.Lock()
	sess.BroadcastFn = t.broadcast
	sess.BroadcastToPlayerFn = t.sendTo
	sess.OnGameEnd = func(_ uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int) {
		log.WithFields(logrus.Fields{"winner": winner, "scores": scores}).Info("game finished")
	}
	sess.Mu.Unlock()
	return t
}

// broadcast runs with the session lock held.
func (t *table) broadcast(ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		t.log.WithError(err).Errorf("encode %s event", ev.Type)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.clients {
		c.enqueue(data, t.log)
	}
}

// sendTo runs with the session lock held.
func (t *table) sendTo(seatID uuid.UUID, ev game.GameEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		t.log.WithError(err).Errorf("encode %s event", ev.Type)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.clients {
		if c.seat == seatID {
			c.enqueue(data, t.log)
		}
	}
}

func (t *table) add(c *client) {
	t.mu.Lock()
	t.clients[c] = struct{}{}
	t.mu.Unlock()
}

// remove detaches c and marks its seat disconnected once no other client holds it.
func (t *table) remove(c *client) {
	t.mu.Lock()
	if _, ok := t.clients[c]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.clients, c)
	close(c.send)
	seatHeld := false
	for other := range t.clients {
		if other.seat == c.seat {
			seatHeld = true
			break
		}
	}
	t.mu.Unlock()

	if !seatHeld {
		t.session.Disconnect(c.seat)
	}
}

// close detaches every client and stops the session.
func (t *table) close() {
	t.mu.Lock()
	for c := range t.clients {
		delete(t.clients, c)
		close(c.send)
	}
	t.mu.Unlock()
	t.session.Close()
}

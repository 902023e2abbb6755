// Package session serializes every client intent against the single game room and fans
// the resulting events out to the connected clients.
package session

import (
	"context"
	"errors"

	"github.com/jason-s-yu/flip/internal/cache"
	"github.com/jason-s-yu/flip/internal/game"
	"github.com/jason-s-yu/flip/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("session coordinator stopped")

// AdminChecker verifies the admin shared secret.
type AdminChecker interface {
	Verify(password string) bool
}

// SeatTokens issues and checks reconnection tokens.
type SeatTokens interface {
	Issue(seat int) (string, error)
	Verify(token string, seat int) error
	Rotate()
}

// Publisher receives the audit trail. Publishing happens off the intent loop.
type Publisher interface {
	Publish(ctx context.Context, rec cache.AuditRecord) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher enables the audit trail.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.audit = p }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = l }
}

type requestKind int

const (
	reqAttach requestKind = iota
	reqDetach
	reqIntent
	reqSnapshot
)

type request struct {
	kind   requestKind
	connID string
	action models.GameAction
	client *client
	reply  chan game.GameState
}

// client is one attached connection. out is never closed by the coordinator; kick asks
// the transport to hang up.
type client struct {
	id   string
	out  chan<- []byte
	kick func(reason string)
}

// Coordinator is the single writer of the game state. All fields below requests are
// owned by the Run goroutine.
type Coordinator struct {
	game   *game.FlipGame
	admin  AdminChecker
	tokens SeatTokens
	audit  Publisher
	log    logrus.FieldLogger

	requests chan request
	done     chan struct{}
	auditCh  chan cache.AuditRecord

	conns map[string]*client
	seq   int64
}

// NewCoordinator wires a coordinator around g. Call Run before submitting anything.
func NewCoordinator(g *game.FlipGame, admin AdminChecker, tokens SeatTokens, opts ...Option) *Coordinator {
	c := &Coordinator{
		game:     g,
		admin:    admin,
		tokens:   tokens,
		log:      logrus.StandardLogger(),
		requests: make(chan request, 64),
		done:     make(chan struct{}),
		auditCh:  make(chan cache.AuditRecord, 256),
		conns:    make(map[string]*client),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes requests one at a time until ctx is cancelled. Every attached client is
// kicked on the way out.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	if c.audit != nil {
		go c.auditLoop(ctx)
	}
	c.log.Info("session coordinator running")
	for {
		select {
		case <-ctx.Done():
			for id, cl := range c.conns {
				cl.kick("server shutting down")
				delete(c.conns, id)
			}
			c.log.Info("session coordinator stopped")
			return
		case r := <-c.requests:
			c.handle(r)
		}
	}
}

func (c *Coordinator) enqueue(ctx context.Context, r request) error {
	select {
	case c.requests <- r:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach registers a connection. It immediately receives the current game-state.
func (c *Coordinator) Attach(ctx context.Context, connID string, out chan<- []byte, kick func(reason string)) error {
	return c.enqueue(ctx, request{kind: reqAttach, connID: connID, client: &client{id: connID, out: out, kick: kick}})
}

// Detach forgets a connection and marks its seat disconnected.
func (c *Coordinator) Detach(ctx context.Context, connID string) error {
	return c.enqueue(ctx, request{kind: reqDetach, connID: connID})
}

// Submit queues an intent from connID.
func (c *Coordinator) Submit(ctx context.Context, connID string, a models.GameAction) error {
	return c.enqueue(ctx, request{kind: reqIntent, connID: connID, action: a})
}

// Snapshot returns the state as of every request queued before it.
func (c *Coordinator) Snapshot(ctx context.Context) (game.GameState, error) {
	reply := make(chan game.GameState, 1)
	if err := c.enqueue(ctx, request{kind: reqSnapshot, reply: reply}); err != nil {
		return game.GameState{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-c.done:
		return game.GameState{}, ErrStopped
	case <-ctx.Done():
		return game.GameState{}, ctx.Err()
	}
}

func (c *Coordinator) handle(r request) {
	switch r.kind {
	case reqAttach:
		c.conns[r.connID] = r.client
		c.log.WithField("conn", r.connID).Debug("connection attached")
		c.send(r.client, c.game.StateEvent())
	case reqDetach:
		delete(c.conns, r.connID)
		c.deliver(c.game.Disconnect(r.connID))
	case reqSnapshot:
		r.reply <- c.game.Snapshot()
	case reqIntent:
		c.handleIntent(r.connID, r.action)
	}
}

func isAdminIntent(t string) bool {
	switch t {
	case models.IntentAdminRestart, models.IntentAdminDropPlayer,
		models.IntentAdminKickAllRestart, models.IntentAdminUpdateRules:
		return true
	}
	return false
}

func (c *Coordinator) handleIntent(connID string, a models.GameAction) {
	admin := isAdminIntent(a.Type)
	if admin && !c.admin.Verify(a.Password) {
		err := &game.Error{Class: game.ErrAuthorization, Message: "invalid admin password"}
		c.reject(connID, a.Type, err)
		c.record(connID, a, nil, err)
		return
	}

	var evs []game.GameEvent
	var err error
	if a.Type == models.IntentReconnectPlayer && a.Token != "" {
		if verr := c.tokens.Verify(a.Token, a.PlayerNumber); verr != nil {
			c.log.WithError(verr).WithField("conn", connID).Info("seat token rejected")
			err = game.ErrReconnectFailed
		} else {
			evs, err = c.game.Connect(connID, a.PlayerNumber)
		}
	} else {
		evs, err = c.game.Apply(connID, a)
	}

	c.attachTokens(evs)
	c.deliver(evs)
	switch {
	case err != nil:
		c.reject(connID, a.Type, err)
	case admin:
		c.sendTo(connID, game.EventAdminSuccess, map[string]interface{}{"intent": a.Type})
	}
	c.record(connID, a, evs, err)

	if a.Type == models.IntentAdminKickAllRestart && err == nil {
		c.tokens.Rotate()
		for id, cl := range c.conns {
			cl.kick("game reset")
			delete(c.conns, id)
		}
	}
}

// attachTokens adds a fresh seat token to every player-assigned event.
func (c *Coordinator) attachTokens(evs []game.GameEvent) {
	for i := range evs {
		if evs[i].Type != game.EventPlayerAssigned {
			continue
		}
		seat, _ := evs[i].Payload["playerNumber"].(int)
		tok, err := c.tokens.Issue(seat)
		if err != nil {
			c.log.WithError(err).WithField("seat", seat).Error("issue seat token")
			continue
		}
		evs[i].Payload["token"] = tok
	}
}

// deliver sends evs in order, then a fresh game-state if anything happened.
func (c *Coordinator) deliver(evs []game.GameEvent) {
	if len(evs) == 0 {
		return
	}
	for _, ev := range evs {
		if ev.Unicast() {
			if cl, ok := c.conns[ev.ConnID]; ok {
				c.send(cl, ev)
			}
			continue
		}
		c.broadcast(ev)
	}
	c.broadcast(c.game.StateEvent())
}

func (c *Coordinator) broadcast(ev game.GameEvent) {
	data := game.EncodeEvent(ev)
	for _, cl := range c.conns {
		c.push(cl, data)
	}
}

func (c *Coordinator) send(cl *client, ev game.GameEvent) {
	c.push(cl, game.EncodeEvent(ev))
}

// push never blocks the loop: a client that cannot keep up is disconnected.
func (c *Coordinator) push(cl *client, data []byte) {
	select {
	case cl.out <- data:
	default:
		c.log.WithField("conn", cl.id).Warn("outbound queue full; dropping connection")
		delete(c.conns, cl.id)
		cl.kick("too slow")
	}
}

func (c *Coordinator) sendTo(connID string, t game.GameEventType, payload map[string]interface{}) {
	if cl, ok := c.conns[connID]; ok {
		c.send(cl, game.GameEvent{Type: t, Payload: payload})
	}
}

// reject reports err to the originating connection with the event its class maps to.
func (c *Coordinator) reject(connID, intent string, err error) {
	log := c.log.WithFields(logrus.Fields{"conn": connID, "intent": intent})
	ev, ok := errorEvent(intent, err)
	switch {
	case errors.Is(err, game.ErrProtocol):
		log.WithError(err).Warn("protocol error; intent ignored")
	case errors.Is(err, game.ErrResource):
		log.WithError(err).Error("round stalled")
	default:
		log.WithError(err).Debug("intent rejected")
	}
	if ok {
		c.sendTo(connID, ev, map[string]interface{}{"message": game.Message(err)})
	}
}

// errorEvent maps an error to the wire event reporting it, if any.
func errorEvent(intent string, err error) (game.GameEventType, bool) {
	switch {
	case errors.Is(err, game.ErrGameFull):
		return game.EventGameFull, true
	case errors.Is(err, game.ErrReconnectFailed):
		return game.EventReconnectFailed, true
	case errors.Is(err, game.ErrProtocol), errors.Is(err, game.ErrResource):
		// resource failures are already announced by round-stalled
		return "", false
	case errors.Is(err, game.ErrAuthorization), isAdminIntent(intent):
		return game.EventAdminError, true
	case intent == models.IntentStartGame || intent == models.IntentStartNextRound:
		return game.EventStartError, true
	}
	return game.EventInvalidMove, true
}

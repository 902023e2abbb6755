// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/flip/internal/game"
	"github.com/jason-s-yu/flip/internal/middleware"
	"github.com/jason-s-yu/flip/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Subprotocol is the websocket subprotocol spoken on /ws.
const Subprotocol = "flip"

const (
	outboxSize   = 64
	writeTimeout = 5 * time.Second
)

// Room is the part of the session coordinator the transport needs.
type Room interface {
	Attach(ctx context.Context, connID string, out chan<- []byte, kick func(reason string)) error
	Submit(ctx context.Context, connID string, a models.GameAction) error
	Detach(ctx context.Context, connID string) error
	Snapshot(ctx context.Context) (game.GameState, error)
}

// envelope is the shape of every inbound frame.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GameWSHandler upgrades the request to a websocket and relays intents to the room.
// Each connection gets its own writer goroutine and an inbound rate limit of limit
// frames per second with the given burst.
func GameWSHandler(logger logrus.FieldLogger, room Room, limit rate.Limit, burst int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).Warn("websocket accept failed")
			return
		}
		defer c.CloseNow()

		if r.Header.Get("Sec-WebSocket-Protocol") != "" && c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the 'flip' subprotocol")
			return
		}

		connID := uuid.NewString()
		log := logger.WithField("conn", connID)
		middleware.LogWebSocketConnect(log, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, outboxSize)
		kicked := make(chan string, 1)
		kick := func(reason string) {
			select {
			case kicked <- reason:
			default:
			}
		}

		if err := room.Attach(ctx, connID, out, kick); err != nil {
			log.WithError(err).Warn("room unavailable")
			c.Close(websocket.StatusTryAgainLater, "game room unavailable")
			return
		}

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			writeLoop(ctx, c, out, kicked, log)
		}()

		err = readLoop(ctx, c, room, connID, out, rate.NewLimiter(limit, burst), log)

		// Detach must reach the room even though ctx may be done.
		detachCtx, detachCancel := context.WithTimeout(context.Background(), time.Second)
		if derr := room.Detach(detachCtx, connID); derr != nil {
			log.WithError(derr).Debug("detach after close")
		}
		detachCancel()

		cancel()
		<-writerDone
		middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)
	}
}

// writeLoop is the only goroutine writing to c. A kick flushes what is already queued
// and then closes the connection, which also ends the read loop.
func writeLoop(ctx context.Context, c *websocket.Conn, out <-chan []byte, kicked <-chan string, log logrus.FieldLogger) {
	write := func(data []byte) bool {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		if err := c.Write(wctx, websocket.MessageText, data); err != nil {
			log.WithError(err).Debug("websocket write failed")
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-kicked:
			for pending := true; pending; {
				select {
				case data := <-out:
					pending = write(data)
				default:
					pending = false
				}
			}
			log.WithField("reason", reason).Info("closing connection")
			c.Close(closeCode(reason), reason)
			return
		case data := <-out:
			if !write(data) {
				return
			}
		}
	}
}

// readLoop decodes frames until the connection closes or ctx ends.
func readLoop(ctx context.Context, c *websocket.Conn, room Room, connID string, out chan<- []byte, l *rate.Limiter, log logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Warn("ignoring non-text frame")
			continue
		}
		if !l.Allow() {
			reply(out, game.EventInvalidMove, "rate limited")
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			reply(out, game.EventInvalidMove, "malformed message")
			continue
		}
		if env.Type == "ping" {
			reply(out, "pong", "")
			continue
		}

		var a models.GameAction
		if len(env.Payload) > 0 && string(env.Payload) != "null" {
			if err := json.Unmarshal(env.Payload, &a); err != nil {
				reply(out, game.EventInvalidMove, "malformed payload")
				continue
			}
		}
		a.Type = env.Type
		log.WithField("intent", a.Type).Debug("intent received")

		if err := room.Submit(ctx, connID, a); err != nil {
			return nil
		}
	}
}

// reply queues a transport-level answer without blocking the read loop.
func reply(out chan<- []byte, t game.GameEventType, message string) {
	ev := game.GameEvent{Type: t}
	if message != "" {
		ev.Payload = map[string]interface{}{"message": message}
	}
	select {
	case out <- game.EncodeEvent(ev):
	default:
	}
}

package session

import (
	"context"
	"time"

	"github.com/jason-s-yu/flip/internal/cache"
	"github.com/jason-s-yu/flip/internal/game"
	"github.com/jason-s-yu/flip/internal/models"
)

// outcome events are recorded on their own besides the intent that caused them
var outcomeEvents = map[game.GameEventType]bool{
	game.EventRoundEnded:          true,
	game.EventGameCompleted:       true,
	game.EventRoundStalled:        true,
	game.EventGameCompletelyReset: true,
}

// record queues the audit entries for one processed intent. Secrets never leave here.
func (c *Coordinator) record(connID string, a models.GameAction, evs []game.GameEvent, err error) {
	if c.audit == nil {
		return
	}
	seat := 0
	if p := c.game.Players.ByConn(connID); p != nil {
		seat = p.Number
	}

	types := make([]string, 0, len(evs))
	for _, ev := range evs {
		types = append(types, string(ev.Type))
	}
	payload := map[string]interface{}{"events": types}
	if a.Action != "" {
		payload["action"] = a.Action
	}
	if a.PlayerNumber != 0 {
		payload["playerNumber"] = a.PlayerNumber
	}
	if a.TargetPlayerNumber != 0 {
		payload["targetPlayerNumber"] = a.TargetPlayerNumber
	}
	if a.PlayerName != "" {
		payload["playerName"] = a.PlayerName
	}
	if a.Rules != nil {
		payload["rules"] = a.Rules
	}
	if err != nil {
		payload["error"] = game.Message(err)
	}
	c.queueAudit(seat, a.Type, payload)

	for _, ev := range evs {
		if outcomeEvents[ev.Type] {
			c.queueAudit(0, string(ev.Type), ev.Payload)
		}
	}
}

func (c *Coordinator) queueAudit(seat int, kind string, payload map[string]interface{}) {
	c.seq++
	rec := cache.AuditRecord{
		GameID:    c.game.ID,
		Seq:       c.seq,
		Seat:      seat,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case c.auditCh <- rec:
	default:
		c.log.WithField("kind", kind).Warn("audit queue full; record dropped")
	}
}

func (c *Coordinator) auditLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-c.auditCh:
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := c.audit.Publish(pctx, rec); err != nil {
				c.log.WithError(err).WithField("kind", rec.Kind).Warn("publish audit record")
			}
			cancel()
		}
	}
}

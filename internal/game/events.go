package game

// GameEventType names an outbound event. The strings are part of the wire contract.
type GameEventType string

const (
	EventPlayerAssigned      GameEventType = "player-assigned" // unicast to the joining connection
	EventPlayerJoined        GameEventType = "player-joined"
	EventPlayerReconnected   GameEventType = "player-reconnected"
	EventPlayerDisconnected  GameEventType = "player-disconnected"
	EventPlayerDropped       GameEventType = "player-dropped"
	EventGameState           GameEventType = "game-state"
	EventGameStarted         GameEventType = "game-started"
	EventRoundStarted        GameEventType = "round-started"
	EventCardDrawn           GameEventType = "card-drawn"
	EventPlayerStuck         GameEventType = "player-stuck"
	EventPlayerBust          GameEventType = "player-bust"
	EventFlipSeven           GameEventType = "flip-seven"
	EventFreezeCardDrawn     GameEventType = "freeze-card-drawn"
	EventFreezeEffectApplied GameEventType = "freeze-effect-applied"
	EventFlipThreeCardDrawn  GameEventType = "flip-3-card-drawn"
	EventFlipThreeAssigned   GameEventType = "flip-3-assigned"
	EventFlipThreeCompleted  GameEventType = "flip-3-completed"
	EventSecondChanceActive  GameEventType = "second-chance-activated"
	EventSecondChanceSurplus GameEventType = "second-chance-surplus"
	EventSecondChanceGiven   GameEventType = "second-chance-given"
	EventSecondChanceDiscard GameEventType = "second-chance-discarded"
	EventRoundEnded          GameEventType = "round-ended"
	EventGameCompleted       GameEventType = "game-completed"
	EventDeckReplenished     GameEventType = "deck-replenished"
	EventRoundStalled        GameEventType = "round-stalled"
	EventGameRestarted       GameEventType = "game-restarted"
	EventGameCompletelyReset GameEventType = "game-completely-reset"
	EventRulesUpdated        GameEventType = "rules-updated"
	EventInvalidMove         GameEventType = "invalid-move"
	EventStartError          GameEventType = "start-error"
	EventAdminError          GameEventType = "admin-error"
	EventAdminSuccess        GameEventType = "admin-success"
	EventGameFull            GameEventType = "game-full"
	EventReconnectFailed     GameEventType = "reconnect-failed"
)

// GameEvent is one notification produced by a state transition.
// ConnID, when set, restricts delivery to that connection.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	ConnID  string                 `json:"-"`
}

// Unicast reports whether the event targets a single connection.
func (ev GameEvent) Unicast() bool {
	return ev.ConnID != ""
}

func (g *FlipGame) emit(t GameEventType, payload map[string]interface{}) {
	g.events = append(g.events, GameEvent{Type: t, Payload: payload})
}

func (g *FlipGame) emitTo(connID string, t GameEventType, payload map[string]interface{}) {
	g.events = append(g.events, GameEvent{Type: t, Payload: payload, ConnID: connID})
}

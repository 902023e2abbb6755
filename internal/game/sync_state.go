// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/flip/internal/models"
)

// PlayerState is one seat in a game-state snapshot. Flip hands are face up, so every
// client receives the same view.
type PlayerState struct {
	PlayerNumber      int                 `json:"playerNumber"`
	Name              string              `json:"name"`
	Connected         bool                `json:"connected"`
	Status            models.PlayerStatus `json:"status"`
	Points            int                 `json:"points"`
	Hand              []models.Card       `json:"hand"`
	HandValue         int                 `json:"handValue"`
	UniqueValueCount  int                 `json:"uniqueValueCount"`
	HasDrawnFirstCard bool                `json:"hasDrawnFirstCard"`
	IsCurrentTurn     bool                `json:"isCurrentTurn"`
}

// PendingState describes an action waiting for a target.
type PendingState struct {
	PlayerNumber int             `json:"playerNumber"`
	CardType     models.CardKind `json:"cardType"`
}

// GameState is the full snapshot broadcast after every mutation.
type GameState struct {
	GameID          uuid.UUID      `json:"gameId"`
	GameStarted     bool           `json:"gameStarted"`
	RoundActive     bool           `json:"roundActive"`
	GameOver        bool           `json:"gameOver"`
	Stalled         bool           `json:"stalled"`
	RoundNumber     int            `json:"roundNumber"`
	CurrentPlayer   int            `json:"currentPlayer"`
	DrawPileSize    int            `json:"drawPileSize"`
	DiscardPileSize int            `json:"discardPileSize"`
	DiscardTop      *models.Card   `json:"discardTop,omitempty"`
	Players         []PlayerState  `json:"players"`
	Pending         *PendingState  `json:"pending,omitempty"`
	Compelled       *CompelledDraw `json:"flipThree,omitempty"`
	Winners         []int          `json:"winners,omitempty"`
	Rules           HouseRules     `json:"rules"`
}

// Snapshot copies the current state. The result shares nothing mutable with the game.
func (g *FlipGame) Snapshot() GameState {
	st := GameState{
		GameID:          g.ID,
		GameStarted:     g.Started,
		RoundActive:     g.RoundActive,
		GameOver:        g.GameOver,
		Stalled:         g.Stalled,
		RoundNumber:     g.RoundNumber,
		CurrentPlayer:   g.CurrentPlayer,
		DrawPileSize:    g.Deck.DrawSize(),
		DiscardPileSize: g.Deck.DiscardSize(),
		Players:         []PlayerState{},
		Winners:         append([]int(nil), g.Winners...),
		Rules:           g.HouseRules,
	}
	if top := g.Deck.DiscardTop(); top != nil {
		c := *top
		st.DiscardTop = &c
	}
	if g.Pending != nil {
		st.Pending = &PendingState{PlayerNumber: g.Pending.Seat, CardType: g.Pending.Card.Kind}
	}
	if g.Compelled != nil {
		cd := *g.Compelled
		cd.deferred = nil
		st.Compelled = &cd
	}

	for _, p := range g.Players.Players() {
		hand := make([]models.Card, len(p.Hand))
		for i, c := range p.Hand {
			hand[i] = *c
		}
		st.Players = append(st.Players, PlayerState{
			PlayerNumber:      p.Number,
			Name:              p.Name,
			Connected:         p.Connected,
			Status:            p.Status,
			Points:            p.Points,
			Hand:              hand,
			HandValue:         HandValue(p.Hand),
			UniqueValueCount:  ComputeHandStats(p.Hand).UniqueValueCount,
			HasDrawnFirstCard: p.HasDrawnFirstCard,
			IsCurrentTurn:     g.RoundActive && p.Number == g.CurrentPlayer,
		})
	}
	return st
}

// StateEvent wraps a snapshot as a game-state broadcast.
func (g *FlipGame) StateEvent() GameEvent {
	st := g.Snapshot()
	return GameEvent{Type: EventGameState, Payload: map[string]interface{}{"state": st}}
}

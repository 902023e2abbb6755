// internal/game/game_test.go
package game

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/jason-s-yu/flip/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func freezeCard() *models.Card       { return models.NewCard(models.KindFreeze, 0) }
func flipThreeCard() *models.Card    { return models.NewCard(models.KindFlipThree, 0) }
func secondChanceCard() *models.Card { return models.NewCard(models.KindSecondChance, 0) }

func connFor(seat int) string { return fmt.Sprintf("c%d", seat) }

// setupTestGame seats numPlayers players (connections c1..cN) in a room whose deck is
// exactly cards, in order.
func setupTestGame(t *testing.T, numPlayers int, rules *HouseRules, cards ...*models.Card) *FlipGame {
	t.Helper()
	opts := []Option{
		WithLogger(quietLogger()),
		WithDeckFactory(func() *Deck { return NewStackedDeck(cards...) }),
	}
	if rules != nil {
		opts = append(opts, WithHouseRules(*rules))
	}
	g := NewFlipGame(opts...)
	for i := 1; i <= numPlayers; i++ {
		evs, err := g.Apply(connFor(i), models.GameAction{Type: models.IntentJoinGame, PlayerName: fmt.Sprintf("P%d", i)})
		require.NoError(t, err)
		require.NotEmpty(t, evs)
	}
	return g
}

// act applies a from seat's connection and requires success.
func act(t *testing.T, g *FlipGame, seat int, a models.GameAction) []GameEvent {
	t.Helper()
	evs, err := g.Apply(connFor(seat), a)
	require.NoError(t, err, "intent %s from seat %d", a.Type, seat)
	return evs
}

func drawAs(t *testing.T, g *FlipGame, seat int) []GameEvent {
	t.Helper()
	return act(t, g, seat, models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionDraw})
}

func stickAs(t *testing.T, g *FlipGame, seat int) []GameEvent {
	t.Helper()
	return act(t, g, seat, models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionStick})
}

func startGame(t *testing.T, g *FlipGame) []GameEvent {
	t.Helper()
	return act(t, g, 1, models.GameAction{Type: models.IntentStartGame})
}

func eventTypes(evs []GameEvent) []GameEventType {
	out := make([]GameEventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func findEvent(evs []GameEvent, typ GameEventType) *GameEvent {
	for i := range evs {
		if evs[i].Type == typ {
			return &evs[i]
		}
	}
	return nil
}

func TestJoinAssignsSeats(t *testing.T) {
	g := setupTestGame(t, 0, nil)

	evs := act(t, g, 1, models.GameAction{Type: models.IntentJoinGame, PlayerName: "  Alice "})
	require.Len(t, evs, 2)
	assert.Equal(t, EventPlayerAssigned, evs[0].Type)
	assert.Equal(t, "c1", evs[0].ConnID, "assignment is unicast")
	assert.Equal(t, 1, evs[0].Payload["playerNumber"])
	assert.Equal(t, EventPlayerJoined, evs[1].Type)
	assert.False(t, evs[1].Unicast())

	evs = act(t, g, 2, models.GameAction{Type: models.IntentJoinGame, PlayerName: "Bob", PlayerNumber: 5})
	assert.Equal(t, 5, evs[0].Payload["playerNumber"])
	assert.Equal(t, "Alice", g.Players.Get(1).Name)

	_, err := g.Apply("c1", models.GameAction{Type: models.IntentJoinGame, PlayerName: "Again"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestJoinFull(t *testing.T) {
	rules := DefaultHouseRules()
	rules.MaxPlayers = 2
	g := setupTestGame(t, 2, &rules)

	evs, err := g.Apply("c3", models.GameAction{Type: models.IntentJoinGame, PlayerName: "Late"})
	assert.ErrorIs(t, err, ErrGameFull)
	assert.Empty(t, evs)
	assert.Equal(t, 2, g.Players.Count())
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	g := setupTestGame(t, 1, nil, models.Number(1))
	_, err := g.Apply("c1", models.GameAction{Type: models.IntentStartGame})
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, g.Started)

	_, err = g.Apply("nobody", models.GameAction{Type: models.IntentStartGame})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestStartGame(t *testing.T) {
	g := setupTestGame(t, 3, nil, models.Number(1))
	evs := startGame(t, g)

	assert.Equal(t, []GameEventType{EventGameStarted, EventRoundStarted}, eventTypes(evs))
	assert.Equal(t, 1, evs[1].Payload["roundNumber"])
	assert.Equal(t, 1, evs[1].Payload["startingPlayer"])
	assert.Equal(t, 1, g.CurrentPlayer)
	for _, p := range g.Players.Players() {
		assert.Equal(t, models.StatusPlaying, p.Status)
		assert.Empty(t, p.Hand)
	}

	_, err := g.Apply("c2", models.GameAction{Type: models.IntentStartGame})
	assert.ErrorIs(t, err, ErrValidation, "a running game cannot be started again")
}

func TestTurnOrderAndWrongTurn(t *testing.T) {
	g := setupTestGame(t, 3, nil, models.Number(1), models.Number(2), models.Number(3))
	startGame(t, g)

	evs, err := g.Apply("c2", models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionDraw})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, evs)

	_, err = g.Apply("c1", models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionStick})
	assert.ErrorIs(t, err, ErrValidation, "sticking before the first draw is rejected")

	_, err = g.Apply("c1", models.GameAction{Type: models.IntentPlayerAction, Action: "peek"})
	assert.ErrorIs(t, err, ErrValidation)

	evs = drawAs(t, g, 1)
	drawn := findEvent(evs, EventCardDrawn)
	require.NotNil(t, drawn)
	assert.Equal(t, true, drawn.Payload["isFirstCard"])
	assert.Equal(t, 2, g.CurrentPlayer)

	drawAs(t, g, 2)
	assert.Equal(t, 3, g.CurrentPlayer)
	drawAs(t, g, 3)
	assert.Equal(t, 1, g.CurrentPlayer)
}

func TestDuplicateBust(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(5), models.Number(7), models.Number(5))
	startGame(t, g)

	drawAs(t, g, 1)
	drawAs(t, g, 2)
	evs := drawAs(t, g, 1)

	drawn := findEvent(evs, EventCardDrawn)
	require.NotNil(t, drawn)
	assert.Equal(t, true, drawn.Payload["isDuplicate"])
	assert.Equal(t, true, drawn.Payload["isBust"])
	require.NotNil(t, findEvent(evs, EventPlayerBust))
	assert.Equal(t, models.StatusBust, g.Players.Get(1).Status)
	assert.Equal(t, 2, g.CurrentPlayer)

	evs = stickAs(t, g, 2)
	assert.Equal(t, []GameEventType{EventPlayerStuck, EventRoundEnded}, eventTypes(evs))
	ended := evs[1]
	assert.Equal(t, false, ended.Payload["gameComplete"])
	assert.Equal(t, 1, ended.Payload["nextRoundStarter"], "lowest score starts next")

	results := ended.Payload["results"].([]RoundResult)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].RoundScore)
	assert.Equal(t, 7, results[1].RoundScore)
	assert.Equal(t, 0, g.Players.Get(1).Points)
	assert.Equal(t, 7, g.Players.Get(2).Points)
	assert.False(t, g.RoundActive)
	assert.Equal(t, 0, g.CurrentPlayer)
}

func TestSecondChanceCancelsDuplicate(t *testing.T) {
	g := setupTestGame(t, 2, nil,
		secondChanceCard(), models.Number(4), models.Number(5), models.Number(9), models.Number(5))
	startGame(t, g)

	drawAs(t, g, 1)
	drawAs(t, g, 2)
	drawAs(t, g, 1)
	stickAs(t, g, 2)

	drawAs(t, g, 1) // 9
	evs := drawAs(t, g, 1)
	require.NotNil(t, findEvent(evs, EventSecondChanceActive))

	p1 := g.Players.Get(1)
	assert.Equal(t, models.StatusPlaying, p1.Status)
	assert.Nil(t, p1.SecondChance())
	assert.Equal(t, 14, HandValue(p1.Hand))
	assert.Len(t, p1.Hand, 2)
	assert.Equal(t, 2, g.Deck.DiscardSize())
	assert.Equal(t, 1, g.CurrentPlayer, "only player 1 is still playing")
}

func TestFlipSeven(t *testing.T) {
	g := setupTestGame(t, 2, nil,
		models.Number(1), models.Number(12), models.Number(2),
		models.Number(3), models.Number(4), models.Number(5), models.Number(6), models.Number(7))
	startGame(t, g)

	drawAs(t, g, 1)
	drawAs(t, g, 2)
	drawAs(t, g, 1)
	stickAs(t, g, 2)
	for i := 0; i < 4; i++ {
		drawAs(t, g, 1)
	}
	evs := drawAs(t, g, 1)

	flip := findEvent(evs, EventFlipSeven)
	require.NotNil(t, flip)
	assert.Equal(t, 28, flip.Payload["handValue"])
	assert.Equal(t, 43, flip.Payload["totalPoints"])
	require.NotNil(t, findEvent(evs, EventRoundEnded))
	assert.Equal(t, models.StatusFlip7, g.Players.Get(1).Status)
	assert.Equal(t, 43, g.Players.Get(1).Points)
	assert.Equal(t, 12, g.Players.Get(2).Points)
	assert.Equal(t, 2, g.NextStarter)
}

func TestFlip7EndsRoundSticksOthers(t *testing.T) {
	rules := DefaultHouseRules()
	rules.Flip7EndsRound = true
	g := setupTestGame(t, 2, &rules,
		models.Number(1), models.Number(12),
		models.Number(2), models.Number(11),
		models.Number(3), models.Number(10),
		models.Number(4), models.Number(9),
		models.Number(5), models.Number(8),
		models.Number(6), models.Number(0),
		models.Number(7))
	startGame(t, g)

	for i := 0; i < 6; i++ {
		drawAs(t, g, 1)
		drawAs(t, g, 2)
	}
	evs := drawAs(t, g, 1)

	assert.Equal(t, models.StatusFlip7, g.Players.Get(1).Status)
	assert.Equal(t, models.StatusStuck, g.Players.Get(2).Status)
	require.NotNil(t, findEvent(evs, EventPlayerStuck))
	require.NotNil(t, findEvent(evs, EventRoundEnded))
	assert.Equal(t, 50, g.Players.Get(2).Points)
}

func TestTieAboveTargetContinues(t *testing.T) {
	rules := DefaultHouseRules()
	rules.TargetScore = 10
	g := setupTestGame(t, 2, &rules,
		models.Number(10), models.Number(10), models.Number(3), models.Number(1))
	startGame(t, g)

	drawAs(t, g, 1)
	drawAs(t, g, 2)
	stickAs(t, g, 1)
	evs := stickAs(t, g, 2)

	ended := findEvent(evs, EventRoundEnded)
	require.NotNil(t, ended)
	assert.Equal(t, false, ended.Payload["gameComplete"])
	assert.False(t, g.GameOver)
	assert.Nil(t, findEvent(evs, EventGameCompleted))

	evs = act(t, g, 2, models.GameAction{Type: models.IntentStartNextRound})
	started := findEvent(evs, EventRoundStarted)
	require.NotNil(t, started)
	assert.Equal(t, 2, started.Payload["roundNumber"])
	assert.Equal(t, 1, g.CurrentPlayer)

	drawAs(t, g, 1)
	drawAs(t, g, 2)
	stickAs(t, g, 1)
	evs = stickAs(t, g, 2)

	assert.True(t, g.GameOver)
	assert.Equal(t, []int{1}, g.Winners)
	completed := findEvent(evs, EventGameCompleted)
	require.NotNil(t, completed)
	scores := completed.Payload["finalScores"].([]map[string]interface{})
	assert.Equal(t, 13, scores[0]["points"])
	assert.Equal(t, 11, scores[1]["points"])

	_, err := g.Apply("c1", models.GameAction{Type: models.IntentStartNextRound})
	assert.ErrorIs(t, err, ErrValidation)

	// a finished game may be started afresh
	evs = startGame(t, g)
	require.NotNil(t, findEvent(evs, EventGameStarted))
	assert.Equal(t, 0, g.Players.Get(1).Points)
}

func TestStartNextRoundValidation(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(1))
	_, err := g.Apply("c1", models.GameAction{Type: models.IntentStartNextRound})
	assert.ErrorIs(t, err, ErrValidation)

	startGame(t, g)
	_, err = g.Apply("c1", models.GameAction{Type: models.IntentStartNextRound})
	assert.ErrorIs(t, err, ErrValidation, "round still in progress")
}

func TestDroppedSeatSkippedInRotation(t *testing.T) {
	g := setupTestGame(t, 4, nil, models.Number(1), models.Number(2), models.Number(3))
	startGame(t, g)

	drawAs(t, g, 1)
	evs, err := g.Apply("", models.GameAction{Type: models.IntentAdminDropPlayer, PlayerNumber: 3})
	require.NoError(t, err)
	require.NotNil(t, findEvent(evs, EventPlayerDropped))
	assert.Nil(t, g.Players.Get(3))

	drawAs(t, g, 2)
	assert.Equal(t, 4, g.CurrentPlayer)

	_, err = g.Apply("", models.GameAction{Type: models.IntentAdminDropPlayer, PlayerNumber: 3})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDropCurrentPlayerPassesTurn(t *testing.T) {
	g := setupTestGame(t, 3, nil, models.Number(1), models.Number(2))
	startGame(t, g)
	drawAs(t, g, 1)
	require.Equal(t, 2, g.CurrentPlayer)

	_, err := g.Apply("", models.GameAction{Type: models.IntentAdminDropPlayer, PlayerNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, g.CurrentPlayer)
}

func TestDropLastOpponentEndsRound(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(6), models.Number(2))
	startGame(t, g)
	drawAs(t, g, 1)
	drawAs(t, g, 2)
	stickAs(t, g, 1)

	evs, err := g.Apply("", models.GameAction{Type: models.IntentAdminDropPlayer, PlayerNumber: 2})
	require.NoError(t, err)
	require.NotNil(t, findEvent(evs, EventRoundEnded))
	assert.Equal(t, 6, g.Players.Get(1).Points)
	assert.Len(t, g.AllCards(), 2, "the dropped hand goes to the discard pile")
}

func TestDisconnectedPlayerSkipped(t *testing.T) {
	g := setupTestGame(t, 3, nil, models.Number(1), models.Number(2), models.Number(3))
	startGame(t, g)

	evs := g.Disconnect("c2")
	require.Len(t, evs, 1)
	assert.Equal(t, EventPlayerDisconnected, evs[0].Type)
	assert.Equal(t, models.StatusPlaying, g.Players.Get(2).Status, "disconnect keeps the round status")

	drawAs(t, g, 1)
	assert.Equal(t, 3, g.CurrentPlayer)

	assert.Nil(t, g.Disconnect("c2"), "already disconnected")
}

func TestDisconnectedPlayerWaitedOn(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(1), models.Number(2))
	startGame(t, g)
	drawAs(t, g, 1)
	drawAs(t, g, 2)
	stickAs(t, g, 1)
	require.Equal(t, 2, g.CurrentPlayer)

	g.Disconnect("c2")
	assert.True(t, g.RoundActive)
	assert.Equal(t, 2, g.CurrentPlayer, "the only playing seat keeps the turn")

	evs, err := g.Apply("c9", models.GameAction{Type: models.IntentReconnectPlayer, PlayerNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, []GameEventType{EventPlayerAssigned, EventPlayerReconnected}, eventTypes(evs))
	assert.Equal(t, "c9", evs[0].ConnID)

	_, err = g.Apply("c9", models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionStick})
	require.NoError(t, err)
	assert.False(t, g.RoundActive)
}

func TestReconnectRejected(t *testing.T) {
	g := setupTestGame(t, 2, nil)

	_, err := g.Apply("c9", models.GameAction{Type: models.IntentReconnectPlayer, PlayerNumber: 2})
	assert.ErrorIs(t, err, ErrReconnectFailed, "seat 2 is still connected")

	_, err = g.Apply("c9", models.GameAction{Type: models.IntentReconnectPlayer, PlayerNumber: 7})
	assert.ErrorIs(t, err, ErrReconnectFailed)

	evs, err := g.Connect("c9", 2)
	require.NoError(t, err, "a verified transport reconnect takes the seat over")
	assert.Equal(t, "c9", evs[0].ConnID)
	assert.Nil(t, g.Players.ByConn("c2"))
}

func TestDisconnectedPlayerNotDealtIn(t *testing.T) {
	g := setupTestGame(t, 3, nil, models.Number(1))
	g.Disconnect("c3")
	startGame(t, g)
	assert.Equal(t, models.StatusWaiting, g.Players.Get(3).Status)

	g.Disconnect("c2")
	_, err := g.Apply("c1", models.GameAction{Type: models.IntentAdminRestart})
	require.NoError(t, err)
	_, err = g.Apply("c1", models.GameAction{Type: models.IntentStartGame})
	assert.ErrorIs(t, err, ErrValidation, "only one connected player")
}

func TestDeckExhaustionStallsRound(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(5))
	startGame(t, g)
	drawAs(t, g, 1)

	evs, err := g.Apply("c2", models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionDraw})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResource))
	assert.ErrorIs(t, err, ErrDeckExhausted)
	require.NotNil(t, findEvent(evs, EventRoundStalled))
	assert.True(t, g.Stalled)

	_, err = g.Apply("c2", models.GameAction{Type: models.IntentPlayerAction, Action: models.ActionDraw})
	assert.ErrorIs(t, err, ErrValidation, "a stalled round rejects play")

	_, err = g.Apply("", models.GameAction{Type: models.IntentAdminRestart})
	require.NoError(t, err)
	assert.False(t, g.Stalled)
}

func TestDrawReplenishesFromDiscards(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(5), models.Number(6))
	startGame(t, g)
	drawAs(t, g, 1)
	drawAs(t, g, 2)
	stickAs(t, g, 1)
	stickAs(t, g, 2)
	act(t, g, 1, models.GameAction{Type: models.IntentStartNextRound})

	// both hands were discarded; the top one seeds the new discard pile
	require.Equal(t, 1, g.CurrentPlayer)
	evs := drawAs(t, g, 1)
	replenished := findEvent(evs, EventDeckReplenished)
	require.NotNil(t, replenished)
	assert.Equal(t, 1, replenished.Payload["newDeckSize"])
	assert.Equal(t, 1, g.Deck.DiscardSize())
}

func TestOpeningCards(t *testing.T) {
	rules := DefaultHouseRules()
	rules.OpeningCards = 1
	g := setupTestGame(t, 2, &rules, freezeCard(), models.Number(4), models.Number(8))
	evs := startGame(t, g)

	dealt := 0
	for _, ev := range evs {
		if ev.Type == EventCardDrawn {
			dealt++
			assert.Equal(t, true, ev.Payload["dealt"])
		}
	}
	assert.Equal(t, 2, dealt)
	assert.Empty(t, g.Players.Get(1).Hand, "a dealt freeze has no effect")
	assert.Equal(t, 4, HandValue(g.Players.Get(2).Hand))
	assert.Nil(t, g.Pending)

	stickAs(t, g, 1)
	assert.Equal(t, 2, g.CurrentPlayer)
}

func TestAdminRestartKeepsSeats(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(5), models.Number(6))
	startGame(t, g)
	drawAs(t, g, 1)
	oldID := g.ID

	evs, err := g.Apply("", models.GameAction{Type: models.IntentAdminRestart})
	require.NoError(t, err)
	assert.Equal(t, []GameEventType{EventGameRestarted}, eventTypes(evs))
	assert.NotEqual(t, oldID, g.ID, "a restart starts a new game id")
	assert.False(t, g.Started)
	assert.Equal(t, 2, g.Players.Count())
	assert.Equal(t, 2, g.Deck.DrawSize(), "fresh deck")
	for _, p := range g.Players.Players() {
		assert.Equal(t, models.StatusWaiting, p.Status)
		assert.Empty(t, p.Hand)
	}
}

func TestAdminKickAllRestart(t *testing.T) {
	g := setupTestGame(t, 3, nil, models.Number(5))
	startGame(t, g)

	evs, err := g.Apply("", models.GameAction{Type: models.IntentAdminKickAllRestart})
	require.NoError(t, err)
	assert.Equal(t, []GameEventType{EventGameCompletelyReset}, eventTypes(evs))
	assert.Zero(t, g.Players.Count())
	assert.False(t, g.Started)
}

func TestUpdateRules(t *testing.T) {
	g := setupTestGame(t, 3, nil)

	evs, err := g.Apply("", models.GameAction{Type: models.IntentAdminUpdateRules, Rules: map[string]interface{}{
		"targetScore": float64(150),
		"maxPlayers":  float64(3),
	}})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, EventRulesUpdated, evs[0].Type)
	assert.Equal(t, 150, g.HouseRules.TargetScore)

	_, err = g.Apply("c4", models.GameAction{Type: models.IntentJoinGame, PlayerName: "Four"})
	assert.ErrorIs(t, err, ErrGameFull)

	_, err = g.Apply("", models.GameAction{Type: models.IntentAdminUpdateRules, Rules: map[string]interface{}{
		"targetScore": "lots",
	}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 150, g.HouseRules.TargetScore)
}

func TestSecondChanceCompleteIsNoop(t *testing.T) {
	g := setupTestGame(t, 2, nil)
	evs, err := g.Apply("c1", models.GameAction{Type: models.IntentSecondChanceDone})
	assert.NoError(t, err)
	assert.Empty(t, evs)
}

func TestSnapshot(t *testing.T) {
	g := setupTestGame(t, 2, nil, models.Number(5), models.NewCard(models.KindMultiplier, 2))
	startGame(t, g)
	drawAs(t, g, 1)
	drawAs(t, g, 2)

	st := g.Snapshot()
	assert.Equal(t, g.ID, st.GameID)
	assert.True(t, st.RoundActive)
	assert.Equal(t, 1, st.CurrentPlayer)
	require.Len(t, st.Players, 2)
	assert.True(t, st.Players[0].IsCurrentTurn)
	assert.False(t, st.Players[1].IsCurrentTurn)
	assert.Equal(t, 5, st.Players[0].HandValue)
	assert.Equal(t, 1, st.Players[0].UniqueValueCount)
	assert.Equal(t, 0, st.Players[1].HandValue)

	// mutating the snapshot leaves the game alone
	st.Players[0].Hand[0].Value = 99
	assert.Equal(t, 5, g.Players.Get(1).Hand[0].Value)

	ev := g.StateEvent()
	assert.Equal(t, EventGameState, ev.Type)
	assert.Contains(t, string(EncodeEvent(ev)), `"type":"game-state"`)
}

// TestRandomRoundConservesCards plays a whole round on a seeded standard deck with a
// simple strategy and checks that no card is ever lost or duplicated.
func TestRandomRoundConservesCards(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			g := NewFlipGame(WithLogger(quietLogger()), WithDeckFactory(func() *Deck { return NewDeck(seededRand(seed)) }))
			for i := 1; i <= 4; i++ {
				_, err := g.Apply(connFor(i), models.GameAction{Type: models.IntentJoinGame, PlayerName: fmt.Sprintf("P%d", i)})
				require.NoError(t, err)
			}
			startGame(t, g)

			for step := 0; step < 500 && g.RoundActive; step++ {
				switch {
				case g.Pending != nil:
					pa := g.Pending
					intent := models.IntentFreezeTarget
					targets := g.eligibleTargets(func(*models.Player) bool { return true })
					switch pa.Card.Kind {
					case models.KindFlipThree:
						intent = models.IntentFlipThreeAssignment
					case models.KindSecondChance:
						intent = models.IntentGiveSecondChance
						targets = g.eligibleTargets(func(p *models.Player) bool {
							return p.Number != pa.Seat && p.SecondChance() == nil
						})
					}
					require.NotEmpty(t, targets)
					act(t, g, pa.Seat, models.GameAction{Type: intent, TargetPlayerNumber: targets[len(targets)-1]})
				case g.Compelled != nil:
					drawAs(t, g, g.Compelled.Target)
				default:
					p := g.Players.Get(g.CurrentPlayer)
					require.NotNil(t, p)
					if len(p.Hand) < 3 || !p.HasDrawnFirstCard {
						drawAs(t, g, p.Number)
					} else {
						stickAs(t, g, p.Number)
					}
				}

				cards := g.AllCards()
				require.Len(t, cards, 94)
				seen := make(map[string]bool, len(cards))
				for _, c := range cards {
					require.False(t, seen[c.ID.String()], "card %s appears twice", c)
					seen[c.ID.String()] = true
				}
			}
			assert.False(t, g.RoundActive, "the round finishes")
		})
	}
}

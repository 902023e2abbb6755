// internal/game/game.go
package game

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/flip/internal/models"
	"github.com/sirupsen/logrus"
)

// FlipGame holds the entire state of the single game room in memory.
// It is not safe for concurrent use: the session coordinator is its only caller.
type FlipGame struct {
	ID         uuid.UUID
	HouseRules HouseRules
	Players    *Registry
	Deck       *Deck

	RoundNumber   int
	CurrentPlayer int // seat whose turn it is; 0 outside a round

	Started     bool // a game has been started and not reset
	RoundActive bool
	GameOver    bool
	Stalled     bool // the deck ran dry mid-round; only an admin restart recovers
	Winners     []int
	NextStarter int

	// Pending and Compelled are mutually exclusive.
	Pending   *PendingAction
	Compelled *CompelledDraw

	deferred   []deferredAction
	resumeFrom int
	bustOrder  []int

	newDeck func() *Deck
	baseLog logrus.FieldLogger
	log     logrus.FieldLogger
	events  []GameEvent
}

// Option configures a FlipGame.
type Option func(*FlipGame)

// WithHouseRules overrides the default rules.
func WithHouseRules(r HouseRules) Option {
	return func(g *FlipGame) { g.HouseRules = r }
}

// WithDeckFactory sets how fresh decks are built, at creation and on every restart.
func WithDeckFactory(f func() *Deck) Option {
	return func(g *FlipGame) { g.newDeck = f }
}

// WithLogger sets the logger used by the game.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *FlipGame) { g.baseLog = l }
}

// NewFlipGame builds an empty room with a freshly shuffled deck.
func NewFlipGame(opts ...Option) *FlipGame {
	g := &FlipGame{
		ID:         uuid.New(),
		HouseRules: DefaultHouseRules(),
		newDeck:    func() *Deck { return NewDeck(nil) },
		baseLog:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.baseLog.WithField("game", g.ID)
	g.Players = NewRegistry(g.HouseRules.MaxPlayers)
	g.Deck = g.newDeck()
	return g
}

// Apply runs one client intent to completion and returns the events it produced.
// Validation and protocol errors leave the state untouched. A ResourceError stalls the
// round and may follow partial progress, so the returned events must still be delivered.
// Admin intents must be authorized by the caller before they reach Apply.
func (g *FlipGame) Apply(connID string, a models.GameAction) ([]GameEvent, error) {
	g.events = nil
	err := g.apply(connID, a)
	evs := g.events
	g.events = nil
	return evs, err
}

func (g *FlipGame) apply(connID string, a models.GameAction) error {
	switch a.Type {
	case models.IntentJoinGame:
		return g.join(connID, a.PlayerName, a.PlayerNumber)
	case models.IntentReconnectPlayer:
		return g.reconnect(connID, a.PlayerNumber, false)
	case models.IntentAdminRestart:
		g.restart()
		return nil
	case models.IntentAdminKickAllRestart:
		g.Players.Clear()
		g.restart()
		g.events = nil
		g.emit(EventGameCompletelyReset, nil)
		return nil
	case models.IntentAdminDropPlayer:
		return g.dropPlayer(a.PlayerNumber)
	case models.IntentAdminUpdateRules:
		return g.updateRules(a.Rules)
	case models.IntentSecondChanceDone:
		return nil
	}

	p := g.Players.ByConn(connID)
	if p == nil {
		return protocolf("connection %s holds no seat", connID)
	}

	switch a.Type {
	case models.IntentStartGame:
		return g.startGame()
	case models.IntentStartNextRound:
		return g.startNextRound()
	case models.IntentPlayerAction:
		switch a.Action {
		case models.ActionDraw:
			return g.draw(p)
		case models.ActionStick:
			return g.stick(p)
		default:
			return invalidf("unknown action %q", a.Action)
		}
	case models.IntentFreezeTarget:
		return g.resolveFreeze(p, a.TargetPlayerNumber)
	case models.IntentFlipThreeAssignment:
		return g.resolveFlipThree(p, a.TargetPlayerNumber)
	case models.IntentGiveSecondChance:
		return g.resolveGift(p, a.TargetPlayerNumber)
	}
	return invalidf("unknown intent %q", a.Type)
}

// Connect forwards a transport-level reconnection with a verified seat token; the seat
// is rebound even if the registry still believes it is connected.
func (g *FlipGame) Connect(connID string, seat int) ([]GameEvent, error) {
	g.events = nil
	err := g.reconnect(connID, seat, true)
	evs := g.events
	g.events = nil
	return evs, err
}

// Disconnect marks the seat bound to connID as disconnected. Turn order is not touched:
// the player keeps their status and the round waits for them or for an admin drop.
func (g *FlipGame) Disconnect(connID string) []GameEvent {
	p := g.Players.Disconnect(connID)
	if p == nil {
		return nil
	}
	g.log.WithField("seat", p.Number).Info("player disconnected")
	return []GameEvent{{Type: EventPlayerDisconnected, Payload: map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
	}}}
}

func (g *FlipGame) join(connID, name string, preferred int) error {
	if g.Players.ByConn(connID) != nil {
		return invalidf("this connection already holds a seat")
	}
	p, err := g.Players.Join(name, preferred, connID)
	if err != nil {
		return err
	}
	g.log.WithFields(logrus.Fields{"seat": p.Number, "name": p.Name}).Info("player joined")
	g.emitTo(connID, EventPlayerAssigned, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
	})
	g.emit(EventPlayerJoined, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
	})
	return nil
}

func (g *FlipGame) reconnect(connID string, seat int, force bool) error {
	if cur := g.Players.ByConn(connID); cur != nil && cur.Number != seat {
		return invalidf("this connection already holds seat %d", cur.Number)
	}
	p, err := g.Players.Reconnect(seat, connID, force)
	if err != nil {
		return err
	}
	g.log.WithField("seat", seat).Info("player reconnected")
	g.emitTo(connID, EventPlayerAssigned, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
		"reconnected":  true,
	})
	g.emit(EventPlayerReconnected, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
	})
	return nil
}

func (g *FlipGame) connectedCount() int {
	n := 0
	for _, p := range g.Players.Players() {
		if p.Connected {
			n++
		}
	}
	return n
}

func (g *FlipGame) startGame() error {
	if g.Started && !g.GameOver {
		return invalidf("a game is already in progress")
	}
	if g.connectedCount() < 2 {
		return invalidf("at least 2 connected players are needed to start")
	}
	for _, p := range g.Players.Players() {
		p.Points = 0
	}
	g.Started = true
	g.GameOver = false
	g.Winners = nil
	g.RoundNumber = 0
	g.NextStarter = 0
	g.log.Info("game started")
	g.emit(EventGameStarted, map[string]interface{}{"playerCount": g.Players.Count()})
	return g.startRound()
}

func (g *FlipGame) startNextRound() error {
	switch {
	case !g.Started:
		return invalidf("the game has not started")
	case g.GameOver:
		return invalidf("the game is complete; start a new game")
	case g.RoundActive:
		return invalidf("round %d is still in progress", g.RoundNumber)
	case g.connectedCount() < 2:
		return invalidf("at least 2 connected players are needed to start a round")
	}
	return g.startRound()
}

// startRound clears last round's hands onto the discard pile, resets every connected
// player to playing and hands the first turn to the designated starter.
func (g *FlipGame) startRound() error {
	for _, p := range g.Players.Players() {
		g.Deck.Discard(p.Hand...)
		p.Hand = []*models.Card{}
		p.HasDrawnFirstCard = false
		if p.Connected {
			p.Status = models.StatusPlaying
		} else {
			p.Status = models.StatusWaiting
		}
	}
	g.Pending = nil
	g.Compelled = nil
	g.deferred = nil
	g.bustOrder = nil
	g.Stalled = false
	g.RoundNumber++
	g.RoundActive = true

	starter := g.NextStarter
	if starter < 1 {
		starter = 1
	}
	g.CurrentPlayer = g.Players.NextSeat(starter-1, isPlaying)

	g.log.WithFields(logrus.Fields{"round": g.RoundNumber, "starter": g.CurrentPlayer}).Info("round started")
	g.emit(EventRoundStarted, map[string]interface{}{
		"roundNumber":    g.RoundNumber,
		"startingPlayer": g.CurrentPlayer,
	})

	if g.HouseRules.OpeningCards > 0 {
		return g.dealOpeningCards()
	}
	return nil
}

// dealOpeningCards gives each playing seat its opening card(s). Freeze and Flip Three
// cards dealt this way are discarded without effect.
func (g *FlipGame) dealOpeningCards() error {
	var seats []int
	for _, p := range g.Players.Players() {
		if p.Status == models.StatusPlaying {
			seats = append(seats, p.Number)
		}
	}
	if g.Deck.DrawSize() < len(seats)*g.HouseRules.OpeningCards && g.Deck.DiscardSize() > 0 {
		g.Deck.replenish()
		g.emit(EventDeckReplenished, map[string]interface{}{"newDeckSize": g.Deck.DrawSize()})
	}
	hands, err := g.Deck.Deal(seats, g.HouseRules.OpeningCards)
	if err != nil {
		g.stall(err)
		return err
	}
	for _, s := range seats {
		p := g.Players.Get(s)
		for _, c := range hands[s] {
			p.HasDrawnFirstCard = true
			if c.IsAction() {
				g.Deck.Discard(c)
			} else {
				p.Hand = append(p.Hand, c)
			}
			g.emit(EventCardDrawn, map[string]interface{}{
				"playerNumber": s,
				"card":         c,
				"isFirstCard":  true,
				"dealt":        true,
			})
		}
	}
	return nil
}

func (g *FlipGame) checkTurn(p *models.Player) error {
	switch {
	case !g.RoundActive:
		return invalidf("no round is in progress")
	case g.Stalled:
		return invalidf("the round is stalled")
	case g.Pending != nil:
		return invalidf("waiting for player %d to resolve %s", g.Pending.Seat, g.Pending.Card.Kind)
	case g.Compelled != nil && g.Compelled.Target != p.Number:
		return invalidf("player %d is completing a Flip Three", g.Compelled.Target)
	case g.Compelled == nil && g.CurrentPlayer != p.Number:
		return invalidf("it is not your turn")
	case p.Status != models.StatusPlaying:
		return invalidf("you are %s this round", p.Status)
	}
	return nil
}

func (g *FlipGame) draw(p *models.Player) error {
	if err := g.checkTurn(p); err != nil {
		return err
	}
	if g.Compelled != nil {
		return g.compelledDraw(p)
	}
	card, err := g.drawCard()
	if err != nil {
		return err
	}
	g.resolveCard(p, card)
	if g.Pending == nil {
		g.afterTurn(p.Number)
	}
	return nil
}

func (g *FlipGame) stick(p *models.Player) error {
	if err := g.checkTurn(p); err != nil {
		return err
	}
	if g.Compelled != nil {
		return invalidf("you must finish your Flip Three draws")
	}
	if !p.HasDrawnFirstCard {
		return invalidf("you must draw at least one card before sticking")
	}
	p.Status = models.StatusStuck
	g.emit(EventPlayerStuck, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
		"handValue":    HandValue(p.Hand),
	})
	g.afterTurn(p.Number)
	return nil
}

// drawCard pops a card, announcing a replenish. Exhaustion stalls the round.
func (g *FlipGame) drawCard() (*models.Card, error) {
	if g.Deck.DrawSize() == 0 && g.Deck.DiscardSize() > 0 {
		g.Deck.replenish()
		g.log.WithField("size", g.Deck.DrawSize()).Info("draw pile replenished from discards")
		g.emit(EventDeckReplenished, map[string]interface{}{"newDeckSize": g.Deck.DrawSize()})
	}
	card, _, err := g.Deck.Draw()
	if err != nil {
		g.stall(err)
		return nil, err
	}
	return card, nil
}

func (g *FlipGame) stall(err error) {
	g.Stalled = true
	g.log.WithError(err).Error("round stalled")
	g.emit(EventRoundStalled, map[string]interface{}{"message": Message(err)})
}

// resolveCard places a freshly drawn card and applies its immediate consequences.
func (g *FlipGame) resolveCard(p *models.Player, c *models.Card) {
	first := !p.HasDrawnFirstCard
	p.HasDrawnFirstCard = true
	drawn := map[string]interface{}{
		"playerNumber": p.Number,
		"card":         c,
		"isFirstCard":  first,
		"isBust":       false,
		"isFlip7":      false,
		"isDuplicate":  false,
	}
	if g.Compelled != nil {
		drawn["twistsRemaining"] = g.Compelled.Remaining
	}

	if !c.IsNumber() {
		g.emit(EventCardDrawn, drawn)
		g.resolveSpecial(p, c)
		return
	}

	if IsDuplicate(p.Hand, c) {
		drawn["isDuplicate"] = true
		if sc := p.SecondChance(); sc != nil {
			p.Hand = append(p.Hand, c)
			g.emit(EventCardDrawn, drawn)
			g.consumeSecondChance(p, c, sc)
			return
		}
		p.Hand = append(p.Hand, c)
		p.Status = models.StatusBust
		g.bustOrder = append(g.bustOrder, p.Number)
		drawn["isBust"] = true
		g.emit(EventCardDrawn, drawn)
		g.log.WithFields(logrus.Fields{"seat": p.Number, "card": c.String()}).Info("player bust")
		g.emit(EventPlayerBust, map[string]interface{}{
			"playerNumber": p.Number,
			"playerName":   p.Name,
			"drawnCard":    c,
		})
		return
	}

	p.Hand = append(p.Hand, c)
	if ComputeHandStats(p.Hand).UniqueValueCount < Flip7Count {
		g.emit(EventCardDrawn, drawn)
		return
	}

	p.Status = models.StatusFlip7
	drawn["isFlip7"] = true
	g.emit(EventCardDrawn, drawn)
	value := HandValue(p.Hand)
	g.log.WithField("seat", p.Number).Info("flip seven")
	g.emit(EventFlipSeven, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
		"handValue":    value,
		"totalPoints":  p.Points + value + g.HouseRules.Flip7Bonus,
	})
	if g.HouseRules.Flip7EndsRound {
		for _, other := range g.Players.Players() {
			if other.Status == models.StatusPlaying {
				other.Status = models.StatusStuck
				g.emit(EventPlayerStuck, map[string]interface{}{
					"playerNumber": other.Number,
					"playerName":   other.Name,
					"handValue":    HandValue(other.Hand),
				})
			}
		}
	}
}

func isPlaying(p *models.Player) bool {
	return p.Status == models.StatusPlaying
}

func isPlayingConnected(p *models.Player) bool {
	return p.Status == models.StatusPlaying && p.Connected
}

// afterTurn ends the current turn: the round closes if nobody is playing, otherwise the
// turn passes to the next playing seat after from. Disconnected players are skipped while
// anyone connected can still act.
func (g *FlipGame) afterTurn(from int) {
	if !g.RoundActive {
		return
	}
	if g.roundComplete() {
		g.endRound()
		return
	}
	next := g.Players.NextSeat(from, isPlayingConnected)
	if next == 0 {
		next = g.Players.NextSeat(from, isPlaying)
	}
	g.CurrentPlayer = next
}

func (g *FlipGame) roundComplete() bool {
	if g.Pending != nil || g.Compelled != nil {
		return false
	}
	for _, p := range g.Players.Players() {
		if p.Status == models.StatusPlaying {
			return false
		}
	}
	return true
}

// RoundResult is one row of a round-ended payload.
type RoundResult struct {
	PlayerNumber int                 `json:"playerNumber"`
	PlayerName   string              `json:"playerName"`
	Status       models.PlayerStatus `json:"status"`
	HandValue    int                 `json:"handValue"`
	RoundScore   int                 `json:"roundScore"`
	TotalPoints  int                 `json:"totalPoints"`
}

// endRound banks every participant's round score and decides whether the game is over.
func (g *FlipGame) endRound() {
	g.RoundActive = false
	g.CurrentPlayer = 0

	var results []RoundResult
	for _, p := range g.Players.Players() {
		if p.Status == models.StatusWaiting {
			continue
		}
		score := RoundScore(p, g.HouseRules.Flip7Bonus)
		p.Points += score
		results = append(results, RoundResult{
			PlayerNumber: p.Number,
			PlayerName:   p.Name,
			Status:       p.Status,
			HandValue:    HandValue(p.Hand),
			RoundScore:   score,
			TotalPoints:  p.Points,
		})
	}

	payload := map[string]interface{}{
		"roundNumber": g.RoundNumber,
		"results":     results,
	}
	winners := g.leaders()
	if len(winners) == 1 {
		g.GameOver = true
		g.Winners = winners
		payload["gameComplete"] = true
		payload["winners"] = winners
	} else {
		g.NextStarter = g.pickStarter()
		payload["gameComplete"] = false
		payload["nextRoundStarter"] = g.NextStarter
	}
	g.log.WithFields(logrus.Fields{"round": g.RoundNumber, "gameOver": g.GameOver}).Info("round ended")
	g.emit(EventRoundEnded, payload)

	if g.GameOver {
		g.emitGameCompleted()
	}
}

// leaders returns the seats tied for the highest total when that total reaches the
// target score. A single entry means the game is won.
func (g *FlipGame) leaders() []int {
	best := -1
	var seats []int
	for _, p := range g.Players.Players() {
		switch {
		case p.Points > best:
			best = p.Points
			seats = []int{p.Number}
		case p.Points == best:
			seats = append(seats, p.Number)
		}
	}
	if best < g.HouseRules.TargetScore {
		return nil
	}
	return seats
}

// pickStarter chooses who opens the next round: the lowest cumulative score, ties going to
// whoever busted earliest this round, then to the lowest seat. The same rule applies to a
// tie-break round after several players pass the target together.
func (g *FlipGame) pickStarter() int {
	bustRank := make(map[int]int, len(g.bustOrder))
	for i, s := range g.bustOrder {
		bustRank[s] = i
	}
	rank := func(seat int) int {
		if r, ok := bustRank[seat]; ok {
			return r
		}
		return len(g.bustOrder)
	}
	players := g.Players.Players()
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Points != b.Points {
			return a.Points < b.Points
		}
		if rank(a.Number) != rank(b.Number) {
			return rank(a.Number) < rank(b.Number)
		}
		return a.Number < b.Number
	})
	if len(players) == 0 {
		return 0
	}
	return players[0].Number
}

func (g *FlipGame) emitGameCompleted() {
	var winners []map[string]interface{}
	var scores []map[string]interface{}
	for _, p := range g.Players.Players() {
		row := map[string]interface{}{
			"playerNumber": p.Number,
			"playerName":   p.Name,
			"points":       p.Points,
		}
		scores = append(scores, row)
		for _, w := range g.Winners {
			if w == p.Number {
				winners = append(winners, row)
			}
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i]["points"].(int) > scores[j]["points"].(int)
	})
	g.log.WithField("winners", g.Winners).Info("game completed")
	g.emit(EventGameCompleted, map[string]interface{}{
		"winners":     winners,
		"finalScores": scores,
	})
}

// dropPlayer frees a seat mid-game. The player's cards go to the discard pile and any
// action waiting on them is abandoned so the round can move on.
func (g *FlipGame) dropPlayer(seat int) error {
	p, err := g.Players.Drop(seat)
	if err != nil {
		return err
	}
	g.Deck.Discard(p.Hand...)
	p.Hand = nil
	g.log.WithField("seat", seat).Warn("player dropped by admin")
	g.emit(EventPlayerDropped, map[string]interface{}{
		"playerNumber": p.Number,
		"playerName":   p.Name,
	})
	if !g.RoundActive {
		return nil
	}

	switch {
	case g.Pending != nil && g.Pending.Seat == seat:
		resume := g.Pending.ResumeFrom
		g.Pending = nil
		g.continueTurn(resume)
	case g.Compelled != nil && g.Compelled.Target == seat:
		g.finishCompelled()
	case g.Pending == nil && g.Compelled == nil && g.CurrentPlayer == seat:
		g.afterTurn(seat)
	case g.roundComplete():
		g.endRound()
	}
	return nil
}

// restart returns the room to its pre-game state with a fresh deck and a new game id,
// keeping the seats.
func (g *FlipGame) restart() {
	g.log.Warn("game restarted")
	g.ID = uuid.New()
	g.log = g.baseLog.WithField("game", g.ID)
	g.Deck = g.newDeck()
	for _, p := range g.Players.Players() {
		p.Hand = []*models.Card{}
		p.Points = 0
		p.Status = models.StatusWaiting
		p.HasDrawnFirstCard = false
	}
	g.RoundNumber = 0
	g.CurrentPlayer = 0
	g.Started = false
	g.RoundActive = false
	g.GameOver = false
	g.Stalled = false
	g.Winners = nil
	g.NextStarter = 0
	g.Pending = nil
	g.Compelled = nil
	g.deferred = nil
	g.bustOrder = nil
	g.emit(EventGameRestarted, map[string]interface{}{"gameId": g.ID})
}

func (g *FlipGame) updateRules(rules map[string]interface{}) error {
	next, err := ParseRules(rules, g.HouseRules)
	if err != nil {
		return invalidf("%v", err)
	}
	g.HouseRules = next
	g.Players.SetCapacity(next.MaxPlayers)
	g.emit(EventRulesUpdated, map[string]interface{}{"rules": next})
	return nil
}

// AllCards returns every card in the room: draw pile, discard pile, then hands.
func (g *FlipGame) AllCards() []*models.Card {
	cards := g.Deck.Cards()
	for _, p := range g.Players.Players() {
		cards = append(cards, p.Hand...)
	}
	return cards
}

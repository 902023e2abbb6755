package game

import (
	"github.com/jason-s-yu/flip/internal/models"
	"github.com/sirupsen/logrus"
)

// FlipThreeDraws is the length of a compelled-draw sequence.
const FlipThreeDraws = 3

// PendingAction is a drawn card waiting for its holder to nominate a target.
// While one is set, no draw or stick is accepted from anyone.
type PendingAction struct {
	Seat       int          `json:"playerNumber"`
	Card       *models.Card `json:"card"`
	ResumeFrom int          `json:"-"` // seat the turn rotation continues after once resolved
}

// CompelledDraw tracks a Flip Three in progress. Normal turn rotation is suspended and
// only Target may draw.
type CompelledDraw struct {
	Origin    int `json:"originPlayerNumber"`
	Target    int `json:"targetPlayerNumber"`
	Remaining int `json:"twistsRemaining"`
	Drawn     int `json:"cardsDrawn"`

	deferred []deferredAction
}

// deferredAction is an action card drawn during a compelled sequence. It is resolved by
// the drawer once the sequence is over, if they are still playing.
type deferredAction struct {
	Seat int
	Card *models.Card
}

// resolveSpecial handles every non-numeric card. The card is already announced.
func (g *FlipGame) resolveSpecial(p *models.Player, c *models.Card) {
	switch c.Kind {
	case models.KindBonus, models.KindMultiplier:
		p.Hand = append(p.Hand, c)

	case models.KindSecondChance:
		held := p.SecondChance()
		p.Hand = append(p.Hand, c)
		if held == nil {
			return
		}
		if g.Compelled != nil {
			g.Compelled.deferred = append(g.Compelled.deferred, deferredAction{Seat: p.Number, Card: c})
			return
		}
		g.surplusSecondChance(p, c, p.Number)

	case models.KindFreeze, models.KindFlipThree:
		p.Hand = append(p.Hand, c)
		if g.Compelled != nil {
			g.Compelled.deferred = append(g.Compelled.deferred, deferredAction{Seat: p.Number, Card: c})
			return
		}
		g.requestTarget(p, c, p.Number)
	}
}

// requestTarget suspends play until p nominates a target for c.
func (g *FlipGame) requestTarget(p *models.Player, c *models.Card, resumeFrom int) {
	g.Pending = &PendingAction{Seat: p.Number, Card: c, ResumeFrom: resumeFrom}
	ev := EventFreezeCardDrawn
	if c.Kind == models.KindFlipThree {
		ev = EventFlipThreeCardDrawn
	}
	g.emit(ev, map[string]interface{}{
		"playerNumber":    p.Number,
		"playerName":      p.Name,
		"eligibleTargets": g.eligibleTargets(func(*models.Player) bool { return true }),
	})
}

func (g *FlipGame) eligibleTargets(extra func(*models.Player) bool) []int {
	seats := []int{}
	for _, t := range g.Players.Players() {
		if t.Status == models.StatusPlaying && extra(t) {
			seats = append(seats, t.Number)
		}
	}
	return seats
}

// consumeSecondChance neutralizes dup and the held Second Chance and discards both.
func (g *FlipGame) consumeSecondChance(p *models.Player, dup, sc *models.Card) {
	dup.Ignore("duplicate cancelled by second chance")
	sc.Ignore("used")
	p.RemoveCard(dup)
	p.RemoveCard(sc)
	g.Deck.Discard(dup, sc)
	g.log.WithFields(logrus.Fields{"seat": p.Number, "card": dup.String()}).Info("second chance used")
	g.emit(EventSecondChanceActive, map[string]interface{}{
		"playerNumber":     p.Number,
		"playerName":       p.Name,
		"duplicateCard":    dup,
		"secondChanceCard": sc,
	})
}

// surplusSecondChance deals with a second Second Chance in one hand. When gifting is
// allowed and someone can take it, the holder must choose a recipient; otherwise the
// card is discarded. It reports whether a choice is now pending.
func (g *FlipGame) surplusSecondChance(p *models.Player, c *models.Card, resumeFrom int) bool {
	recipients := g.eligibleTargets(func(t *models.Player) bool {
		return t.Number != p.Number && t.SecondChance() == nil
	})
	if g.HouseRules.AllowSecondChanceGift && len(recipients) > 0 {
		g.Pending = &PendingAction{Seat: p.Number, Card: c, ResumeFrom: resumeFrom}
		g.emit(EventSecondChanceSurplus, map[string]interface{}{
			"playerNumber":    p.Number,
			"playerName":      p.Name,
			"eligibleTargets": recipients,
		})
		return true
	}
	p.RemoveCard(c)
	g.Deck.Discard(c)
	g.emit(EventSecondChanceDiscard, map[string]interface{}{
		"playerNumber": p.Number,
		"card":         c,
	})
	return false
}

func (g *FlipGame) pendingFor(p *models.Player, kind models.CardKind) (*PendingAction, error) {
	pa := g.Pending
	if pa == nil || pa.Card.Kind != kind {
		return nil, invalidf("there is no %s waiting for a target", kind)
	}
	if pa.Seat != p.Number {
		return nil, invalidf("player %d must choose the target", pa.Seat)
	}
	return pa, nil
}

func (g *FlipGame) playingTarget(seat int) (*models.Player, error) {
	t := g.Players.Get(seat)
	if t == nil {
		return nil, invalidf("seat %d is empty", seat)
	}
	if t.Status != models.StatusPlaying {
		return nil, invalidf("player %d is not playing this round", seat)
	}
	return t, nil
}

// resolveFreeze sticks the nominated player with their current hand.
func (g *FlipGame) resolveFreeze(p *models.Player, target int) error {
	pa, err := g.pendingFor(p, models.KindFreeze)
	if err != nil {
		return err
	}
	t, err := g.playingTarget(target)
	if err != nil {
		return err
	}
	p.RemoveCard(pa.Card)
	g.Deck.Discard(pa.Card)
	g.Pending = nil

	t.Status = models.StatusStuck
	value := HandValue(t.Hand)
	g.log.WithFields(logrus.Fields{"seat": p.Number, "target": t.Number}).Info("freeze applied")
	g.emit(EventFreezeEffectApplied, map[string]interface{}{
		"playerNumber":       p.Number,
		"targetPlayerNumber": t.Number,
		"targetPlayerName":   t.Name,
		"handValue":          value,
	})
	g.emit(EventPlayerStuck, map[string]interface{}{
		"playerNumber": t.Number,
		"playerName":   t.Name,
		"handValue":    value,
		"frozen":       true,
	})
	g.continueTurn(pa.ResumeFrom)
	return nil
}

// resolveFlipThree starts a compelled-draw sequence for the nominated player.
func (g *FlipGame) resolveFlipThree(p *models.Player, target int) error {
	pa, err := g.pendingFor(p, models.KindFlipThree)
	if err != nil {
		return err
	}
	t, err := g.playingTarget(target)
	if err != nil {
		return err
	}
	p.RemoveCard(pa.Card)
	g.Deck.Discard(pa.Card)
	g.Pending = nil

	g.Compelled = &CompelledDraw{Origin: pa.ResumeFrom, Target: t.Number, Remaining: FlipThreeDraws}
	g.log.WithFields(logrus.Fields{"seat": p.Number, "target": t.Number}).Info("flip three assigned")
	g.emit(EventFlipThreeAssigned, map[string]interface{}{
		"playerNumber":       p.Number,
		"targetPlayerNumber": t.Number,
		"targetPlayerName":   t.Name,
		"twistsRemaining":    FlipThreeDraws,
	})

	if g.HouseRules.AutoCompelledDraws {
		for g.Compelled != nil && g.Compelled.Target == t.Number {
			if err := g.compelledDraw(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveGift moves the surplus Second Chance to another playing player who has none.
func (g *FlipGame) resolveGift(p *models.Player, target int) error {
	pa, err := g.pendingFor(p, models.KindSecondChance)
	if err != nil {
		return err
	}
	t, err := g.playingTarget(target)
	if err != nil {
		return err
	}
	if t.Number == p.Number {
		return invalidf("you cannot give a Second Chance to yourself")
	}
	if t.SecondChance() != nil {
		return invalidf("player %d already holds a Second Chance", t.Number)
	}
	p.RemoveCard(pa.Card)
	t.Hand = append(t.Hand, pa.Card)
	g.Pending = nil
	g.emit(EventSecondChanceGiven, map[string]interface{}{
		"playerNumber":       p.Number,
		"targetPlayerNumber": t.Number,
		"targetPlayerName":   t.Name,
	})
	g.continueTurn(pa.ResumeFrom)
	return nil
}

// compelledDraw performs one draw of the running Flip Three for its target.
func (g *FlipGame) compelledDraw(p *models.Player) error {
	card, err := g.drawCard()
	if err != nil {
		return err
	}
	cd := g.Compelled
	cd.Remaining--
	cd.Drawn++
	g.resolveCard(p, card)
	if cd.Remaining == 0 || p.Status.Terminal() {
		g.finishCompelled()
	}
	return nil
}

// finishCompelled closes the running sequence, queues the actions its target drew along
// the way and carries on from the seat after the player who drew the Flip Three.
func (g *FlipGame) finishCompelled() {
	cd := g.Compelled
	g.Compelled = nil
	g.emit(EventFlipThreeCompleted, map[string]interface{}{
		"targetPlayerNumber": cd.Target,
		"cardsDrawn":         cd.Drawn,
	})
	g.deferred = append(g.deferred, cd.deferred...)
	g.continueTurn(cd.Origin)
}

// continueTurn resolves queued actions one at a time, then ends the turn of from.
func (g *FlipGame) continueTurn(from int) {
	g.resumeFrom = from
	for len(g.deferred) > 0 {
		d := g.deferred[0]
		g.deferred = g.deferred[1:]
		p := g.Players.Get(d.Seat)
		if p == nil || p.Status != models.StatusPlaying {
			continue
		}
		if d.Card.Kind == models.KindSecondChance {
			// a duplicate may have used one of the two in the meantime
			if !holdsCard(p, d.Card) || liveSecondChances(p) < 2 {
				continue
			}
			if g.surplusSecondChance(p, d.Card, from) {
				return
			}
			continue
		}
		g.requestTarget(p, d.Card, from)
		return
	}
	g.deferred = nil
	g.afterTurn(from)
}

func holdsCard(p *models.Player, c *models.Card) bool {
	for _, hc := range p.Hand {
		if hc.ID == c.ID {
			return true
		}
	}
	return false
}

func liveSecondChances(p *models.Player) int {
	n := 0
	for _, c := range p.Hand {
		if c.Kind == models.KindSecondChance && !c.Ignored {
			n++
		}
	}
	return n
}

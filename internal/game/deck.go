package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/flip/internal/models"
)

// Deck composition constants.
const (
	HighestNumber     = 12
	freezeCount       = 3
	flipThreeCount    = 3
	secondChanceCount = 3
)

var (
	bonusValues      = []int{2, 4, 6, 8, 10}
	multiplierValues = []int{2}
)

// StandardCards builds the full Flip population: one 0, and n copies of each number n
// from 1 to 12, plus the action and modifier cards. Every call returns fresh card ids.
func StandardCards() []*models.Card {
	cards := []*models.Card{models.Number(0)}
	for n := 1; n <= HighestNumber; n++ {
		for i := 0; i < n; i++ {
			cards = append(cards, models.Number(n))
		}
	}
	for i := 0; i < freezeCount; i++ {
		cards = append(cards, models.NewCard(models.KindFreeze, 0))
	}
	for i := 0; i < flipThreeCount; i++ {
		cards = append(cards, models.NewCard(models.KindFlipThree, 0))
	}
	for i := 0; i < secondChanceCount; i++ {
		cards = append(cards, models.NewCard(models.KindSecondChance, 0))
	}
	for _, v := range bonusValues {
		cards = append(cards, models.NewCard(models.KindBonus, v))
	}
	for _, v := range multiplierValues {
		cards = append(cards, models.NewCard(models.KindMultiplier, v))
	}
	return cards
}

// Deck owns the draw pile and the discard pile. Cards are drawn from the front of the
// draw pile and discarded onto the end of the discard pile.
type Deck struct {
	draw    []*models.Card
	discard []*models.Card
	rng     *rand.Rand
}

// NewDeck returns a shuffled standard deck. A nil rng falls back to a time-seeded source.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d := &Deck{draw: StandardCards(), rng: rng}
	d.shuffle(d.draw)
	return d
}

// NewStackedDeck returns a deck whose draw pile is exactly cards, in order, unshuffled.
// Replenishing still shuffles with a time-seeded source.
func NewStackedDeck(cards ...*models.Card) *Deck {
	return &Deck{
		draw: append([]*models.Card(nil), cards...),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *Deck) shuffle(cards []*models.Card) {
	d.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Deal removes perPlayer cards per seat from the front of the draw pile, round-robin.
// It never replenishes; callers must make sure the pile is large enough.
func (d *Deck) Deal(seats []int, perPlayer int) (map[int][]*models.Card, error) {
	hands := make(map[int][]*models.Card, len(seats))
	if perPlayer <= 0 {
		return hands, nil
	}
	if len(d.draw) < perPlayer*len(seats) {
		return nil, ErrInsufficientCards
	}
	for i := 0; i < perPlayer; i++ {
		for _, s := range seats {
			hands[s] = append(hands[s], d.draw[0])
			d.draw = d.draw[1:]
		}
	}
	return hands, nil
}

// Draw pops the front card. If the draw pile is empty it is first rebuilt from the discard
// pile; replenished reports whether that happened.
func (d *Deck) Draw() (card *models.Card, replenished bool, err error) {
	if len(d.draw) == 0 {
		if len(d.discard) == 0 {
			return nil, false, ErrDeckExhausted
		}
		d.replenish()
		replenished = true
	}
	card = d.draw[0]
	d.draw = d.draw[1:]
	return card, replenished, nil
}

// replenish shuffles every discarded card except the top one back into the draw pile.
// The top card stays behind to seed the new discard pile, unless it is the only card.
func (d *Deck) replenish() {
	var keep []*models.Card
	pool := d.discard
	if len(pool) > 1 {
		keep = []*models.Card{pool[len(pool)-1]}
		pool = pool[:len(pool)-1]
	}
	for _, c := range pool {
		c.Ignored = false
		c.IgnoredReason = ""
	}
	d.draw = append(d.draw, pool...)
	d.shuffle(d.draw)
	d.discard = keep
}

// Discard puts cards on top of the discard pile, in order.
func (d *Deck) Discard(cards ...*models.Card) {
	d.discard = append(d.discard, cards...)
}

// DiscardTop returns the top of the discard pile or nil.
func (d *Deck) DiscardTop() *models.Card {
	if len(d.discard) == 0 {
		return nil
	}
	return d.discard[len(d.discard)-1]
}

// DrawSize is the number of cards left in the draw pile.
func (d *Deck) DrawSize() int { return len(d.draw) }

// DiscardSize is the number of cards in the discard pile.
func (d *Deck) DiscardSize() int { return len(d.discard) }

// Cards returns every card held by the deck, draw pile first.
func (d *Deck) Cards() []*models.Card {
	out := make([]*models.Card, 0, len(d.draw)+len(d.discard))
	out = append(out, d.draw...)
	return append(out, d.discard...)
}

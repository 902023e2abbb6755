package models

// PlayerStatus is a player's per-round state.
type PlayerStatus string

const (
	StatusWaiting PlayerStatus = "waiting"
	StatusPlaying PlayerStatus = "playing"
	StatusStuck   PlayerStatus = "stuck"
	StatusBust    PlayerStatus = "bust"
	StatusFlip7   PlayerStatus = "flip7"
)

// Terminal reports whether the status ends the player's round.
func (s PlayerStatus) Terminal() bool {
	return s == StatusStuck || s == StatusBust || s == StatusFlip7
}

// Player is one occupied seat. The registry owns Number, Name, ConnID and Connected;
// the turn state machine owns everything else.
type Player struct {
	Number    int    `json:"playerNumber"`
	Name      string `json:"name"`
	ConnID    string `json:"-"`
	Connected bool   `json:"connected"`

	Hand              []*Card      `json:"hand"`
	Status            PlayerStatus `json:"status"`
	Points            int          `json:"points"`
	HasDrawnFirstCard bool         `json:"hasDrawnFirstCard"`
}

// SecondChance returns the unused Second Chance card held by the player, if any.
func (p *Player) SecondChance() *Card {
	for _, c := range p.Hand {
		if c.Kind == KindSecondChance && !c.Ignored {
			return c
		}
	}
	return nil
}

// RemoveCard takes the card with the given id out of the hand. It reports whether the card was found.
func (p *Player) RemoveCard(c *Card) bool {
	for i, hc := range p.Hand {
		if hc.ID == c.ID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

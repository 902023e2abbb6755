package models

import (
	"fmt"

	"github.com/google/uuid"
)

// CardKind identifies what a card does when drawn.
type CardKind string

const (
	KindNumber       CardKind = "number"
	KindFreeze       CardKind = "freeze"
	KindSecondChance CardKind = "second-chance"
	KindFlipThree    CardKind = "flip-three"
	KindBonus        CardKind = "bonus"
	KindMultiplier   CardKind = "multiplier"
)

// Card is a single card in the Flip deck. Value carries the kind-dependent payload:
// the face value for numbers, the points for a bonus, the factor for a multiplier.
// Everything except the Ignored marker is fixed once the deck is built.
type Card struct {
	ID            uuid.UUID `json:"id"`
	Kind          CardKind  `json:"type"`
	Value         int       `json:"value"`
	Ignored       bool      `json:"ignored,omitempty"`
	IgnoredReason string    `json:"ignoredReason,omitempty"`
}

// NewCard builds a card with a fresh id.
func NewCard(kind CardKind, value int) *Card {
	return &Card{ID: uuid.New(), Kind: kind, Value: value}
}

// Number is shorthand for NewCard(KindNumber, v).
func Number(v int) *Card {
	return NewCard(KindNumber, v)
}

// IsNumber reports whether the card is a numeric card.
func (c *Card) IsNumber() bool {
	return c.Kind == KindNumber
}

// IsAction reports whether the card needs a target nomination before play continues.
func (c *Card) IsAction() bool {
	return c.Kind == KindFreeze || c.Kind == KindFlipThree
}

// Ignore neutralizes the card for scoring and duplicate detection.
func (c *Card) Ignore(reason string) {
	c.Ignored = true
	c.IgnoredReason = reason
}

func (c *Card) String() string {
	switch c.Kind {
	case KindNumber:
		return fmt.Sprintf("%d", c.Value)
	case KindBonus:
		return fmt.Sprintf("+%d", c.Value)
	case KindMultiplier:
		return fmt.Sprintf("x%d", c.Value)
	default:
		return string(c.Kind)
	}
}

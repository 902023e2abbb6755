package game

import (
	"testing"

	"github.com/jason-s-yu/flip/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHandValue(t *testing.T) {
	tests := []struct {
		name string
		hand []*models.Card
		want int
	}{
		{"empty", nil, 0},
		{"numbers", []*models.Card{models.Number(3), models.Number(9), models.Number(0)}, 12},
		{"bonus then multiplier", []*models.Card{
			models.Number(3),
			models.NewCard(models.KindMultiplier, 3),
			models.NewCard(models.KindBonus, 5),
		}, 24},
		{"multipliers compound", []*models.Card{
			models.Number(4),
			models.NewCard(models.KindMultiplier, 2),
			models.NewCard(models.KindMultiplier, 2),
		}, 16},
		{"actions are worthless", []*models.Card{
			models.Number(6),
			models.NewCard(models.KindFreeze, 0),
			models.NewCard(models.KindSecondChance, 0),
		}, 6},
		{"ignored cards skipped", func() []*models.Card {
			dup := models.Number(8)
			dup.Ignore("duplicate")
			return []*models.Card{models.Number(8), dup}
		}(), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HandValue(tt.hand))
		})
	}
}

func TestComputeHandStats(t *testing.T) {
	hand := []*models.Card{models.Number(2), models.Number(5), models.NewCard(models.KindBonus, 10), models.Number(0)}
	st := ComputeHandStats(hand)
	assert.Equal(t, 3, st.UniqueValueCount)
	assert.Equal(t, 7, st.NumericSum)
}

func TestIsDuplicate(t *testing.T) {
	five := models.Number(5)
	hand := []*models.Card{five, models.NewCard(models.KindBonus, 5)}

	assert.True(t, IsDuplicate(hand, models.Number(5)))
	assert.False(t, IsDuplicate(hand, models.Number(6)))
	assert.False(t, IsDuplicate(hand, five), "a card never duplicates itself")
	assert.False(t, IsDuplicate(hand, models.NewCard(models.KindBonus, 5)))

	five.Ignore("used")
	assert.False(t, IsDuplicate(hand, models.Number(5)))
}

func TestRoundScore(t *testing.T) {
	p := &models.Player{Points: 30, Hand: []*models.Card{models.Number(10), models.Number(2)}}

	p.Status = models.StatusStuck
	assert.Equal(t, 12, RoundScore(p, 15))
	assert.Equal(t, 42, FinalRoundScore(p, 15))

	p.Status = models.StatusFlip7
	assert.Equal(t, 27, RoundScore(p, 15))

	p.Status = models.StatusBust
	assert.Zero(t, RoundScore(p, 15))
	assert.Equal(t, 30, FinalRoundScore(p, 15))
}

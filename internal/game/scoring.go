package game

import "github.com/jason-s-yu/flip/internal/models"

// Flip7Count is the number of distinct numbers that completes a Flip 7.
const Flip7Count = 7

// HandStats summarizes the live numeric cards of a hand.
type HandStats struct {
	UniqueValueCount int `json:"uniqueValueCount"`
	NumericSum       int `json:"numericSum"`
}

// ComputeHandStats counts distinct values and sums the non-ignored numeric cards.
// Special cards never count.
func ComputeHandStats(hand []*models.Card) HandStats {
	var st HandStats
	seen := make(map[int]bool)
	for _, c := range hand {
		if !c.IsNumber() || c.Ignored {
			continue
		}
		st.NumericSum += c.Value
		if !seen[c.Value] {
			seen[c.Value] = true
			st.UniqueValueCount++
		}
	}
	return st
}

// IsDuplicate reports whether a live numeric card with newCard's value is already in hand.
func IsDuplicate(hand []*models.Card, newCard *models.Card) bool {
	if !newCard.IsNumber() {
		return false
	}
	for _, c := range hand {
		if c.ID == newCard.ID {
			continue
		}
		if c.IsNumber() && !c.Ignored && c.Value == newCard.Value {
			return true
		}
	}
	return false
}

// HandValue is (numeric sum + bonuses) x multiplier. Several multipliers compound.
func HandValue(hand []*models.Card) int {
	st := ComputeHandStats(hand)
	bonus, mult := 0, 1
	for _, c := range hand {
		if c.Ignored {
			continue
		}
		switch c.Kind {
		case models.KindBonus:
			bonus += c.Value
		case models.KindMultiplier:
			mult *= c.Value
		}
	}
	return (st.NumericSum + bonus) * mult
}

// RoundScore is what the player earns this round given their terminal status.
func RoundScore(p *models.Player, flip7Bonus int) int {
	switch p.Status {
	case models.StatusStuck:
		return HandValue(p.Hand)
	case models.StatusFlip7:
		return HandValue(p.Hand) + flip7Bonus
	default:
		return 0
	}
}

// FinalRoundScore is the player's cumulative total once this round is banked.
func FinalRoundScore(p *models.Player, flip7Bonus int) int {
	return p.Points + RoundScore(p, flip7Bonus)
}

// internal/game/rules.go
package game

import "fmt"

// MaxSeats is the hard seat limit of a room.
const MaxSeats = 18

// HouseRules holds the tunable parts of a Flip game.
type HouseRules struct {
	TargetScore           int  `json:"targetScore"`           // cumulative points that end the game
	Flip7Bonus            int  `json:"flip7Bonus"`            // extra points for a Flip 7
	MaxPlayers            int  `json:"maxPlayers"`            // seat capacity, at most MaxSeats
	OpeningCards          int  `json:"openingCards"`          // cards dealt to each player at round start (0 or 1)
	AllowSecondChanceGift bool `json:"allowSecondChanceGift"` // a surplus Second Chance may be handed to another player
	AutoCompelledDraws    bool `json:"autoCompelledDraws"`    // the server performs Flip Three draws without waiting for the target
	Flip7EndsRound        bool `json:"flip7EndsRound"`        // a Flip 7 sticks every other playing player
}

// DefaultHouseRules returns the standard rule set.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		TargetScore:           200,
		Flip7Bonus:            15,
		MaxPlayers:            MaxSeats,
		OpeningCards:          0,
		AllowSecondChanceGift: true,
	}
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
// Nothing is modified when any value fails validation.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	next := *rules

	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		if val, exists := newRules[key]; exists && val != nil {
			// JSON numbers decode as float64
			var n int
			switch v := val.(type) {
			case float64:
				n = int(v)
			case int:
				n = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
			if n < minVal || n > maxVal {
				return fmt.Errorf("%s must be between %d and %d", key, minVal, maxVal)
			}
			*field = n
		}
		return nil
	}

	if err := assignInt(&next.TargetScore, "targetScore", 1, 10000); err != nil {
		return err
	}
	if err := assignInt(&next.Flip7Bonus, "flip7Bonus", 0, 1000); err != nil {
		return err
	}
	if err := assignInt(&next.MaxPlayers, "maxPlayers", 2, MaxSeats); err != nil {
		return err
	}
	if err := assignInt(&next.OpeningCards, "openingCards", 0, 1); err != nil {
		return err
	}
	if err := assignBool(&next.AllowSecondChanceGift, "allowSecondChanceGift"); err != nil {
		return err
	}
	if err := assignBool(&next.AutoCompelledDraws, "autoCompelledDraws"); err != nil {
		return err
	}
	if err := assignBool(&next.Flip7EndsRound, "flip7EndsRound"); err != nil {
		return err
	}

	*rules = next
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}

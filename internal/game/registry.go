package game

import (
	"strings"

	"github.com/jason-s-yu/flip/internal/models"
)

var (
	ErrGameFull        = &Error{Class: ErrValidation, Message: "game is full"}
	ErrReconnectFailed = &Error{Class: ErrValidation, Message: "no disconnected player holds that seat"}
)

// Registry maps seat numbers 1..capacity to players. Seat numbers are stable for the
// session; a seat is freed only by Drop or Clear.
type Registry struct {
	seats    [MaxSeats + 1]*models.Player
	capacity int
}

// NewRegistry returns an empty registry with the given seat capacity (clamped to MaxSeats).
func NewRegistry(capacity int) *Registry {
	r := &Registry{}
	r.SetCapacity(capacity)
	return r
}

// SetCapacity changes how many seats may be occupied. Already seated players keep their seats.
func (r *Registry) SetCapacity(capacity int) {
	if capacity <= 0 || capacity > MaxSeats {
		capacity = MaxSeats
	}
	r.capacity = capacity
}

// Join seats a new player. The preferred seat is used when it is free and in range,
// otherwise the lowest free seat is assigned.
func (r *Registry) Join(name string, preferred int, connID string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidf("player name is required")
	}
	seat := 0
	if preferred >= 1 && preferred <= r.capacity && r.seats[preferred] == nil {
		seat = preferred
	} else {
		for s := 1; s <= r.capacity; s++ {
			if r.seats[s] == nil {
				seat = s
				break
			}
		}
	}
	if seat == 0 {
		return nil, ErrGameFull
	}
	p := &models.Player{
		Number:    seat,
		Name:      name,
		ConnID:    connID,
		Connected: true,
		Hand:      []*models.Card{},
		Status:    models.StatusWaiting,
	}
	r.seats[seat] = p
	return p, nil
}

// Reconnect binds connID to an existing seat. Unless force is set the seat must be disconnected.
func (r *Registry) Reconnect(seat int, connID string, force bool) (*models.Player, error) {
	p := r.Get(seat)
	if p == nil || (p.Connected && !force) {
		return nil, ErrReconnectFailed
	}
	p.ConnID = connID
	p.Connected = true
	return p, nil
}

// Disconnect marks the seat bound to connID as disconnected and returns it.
func (r *Registry) Disconnect(connID string) *models.Player {
	p := r.ByConn(connID)
	if p == nil {
		return nil
	}
	p.Connected = false
	p.ConnID = ""
	return p
}

// Drop frees a seat and returns the player that held it.
func (r *Registry) Drop(seat int) (*models.Player, error) {
	p := r.Get(seat)
	if p == nil {
		return nil, invalidf("seat %d is empty", seat)
	}
	r.seats[seat] = nil
	return p, nil
}

// Clear frees every seat.
func (r *Registry) Clear() {
	r.seats = [MaxSeats + 1]*models.Player{}
}

// Get returns the player in seat, or nil.
func (r *Registry) Get(seat int) *models.Player {
	if seat < 1 || seat > MaxSeats {
		return nil
	}
	return r.seats[seat]
}

// ByConn returns the player bound to connID, or nil.
func (r *Registry) ByConn(connID string) *models.Player {
	if connID == "" {
		return nil
	}
	for _, p := range r.seats {
		if p != nil && p.ConnID == connID {
			return p
		}
	}
	return nil
}

// Players returns the seated players in ascending seat order.
func (r *Registry) Players() []*models.Player {
	var out []*models.Player
	for _, p := range r.seats {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Count is the number of occupied seats.
func (r *Registry) Count() int {
	n := 0
	for _, p := range r.seats {
		if p != nil {
			n++
		}
	}
	return n
}

// NextSeat returns the first seat after from (wrapping) whose player satisfies ok, or 0.
// from itself is checked last.
func (r *Registry) NextSeat(from int, ok func(*models.Player) bool) int {
	for i := 1; i <= MaxSeats; i++ {
		s := (from-1+i)%MaxSeats + 1
		if p := r.seats[s]; p != nil && ok(p) {
			return s
		}
	}
	return 0
}

// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidSeatToken is returned for any token that does not prove ownership of the seat.
var ErrInvalidSeatToken = errors.New("invalid seat token")

// SeatTokens issues and verifies the signed tokens handed out with player-assigned.
// A token binds a seat number to the current room session; rotating the session
// invalidates every token issued before.
type SeatTokens struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration // 0 => no exp claim

	mu      sync.RWMutex
	session string
}

// NewSeatTokens generates a fresh ed25519 key pair at runtime.
func NewSeatTokens(ttl time.Duration) (*SeatTokens, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &SeatTokens{privateKey: priv, publicKey: pub, ttl: ttl, session: uuid.NewString()}, nil
}

// Rotate starts a new session.
func (s *SeatTokens) Rotate() {
	s.mu.Lock()
	s.session = uuid.NewString()
	s.mu.Unlock()
}

func (s *SeatTokens) currentSession() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Issue creates a signed JWT with "sub" = seat and "sid" = current session.
func (s *SeatTokens) Issue(seat int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.Itoa(seat),
		"sid": s.currentSession(),
		"iat": now.Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks that tokenString was issued for seat in the current session.
func (s *SeatTokens) Verify(tokenString string, seat int) error {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeatToken, err)
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return ErrInvalidSeatToken
	}
	if sub, _ := claims["sub"].(string); sub != strconv.Itoa(seat) {
		return fmt.Errorf("%w: issued for another seat", ErrInvalidSeatToken)
	}
	if sid, _ := claims["sid"].(string); sid != s.currentSession() {
		return fmt.Errorf("%w: session has been reset", ErrInvalidSeatToken)
	}
	return nil
}

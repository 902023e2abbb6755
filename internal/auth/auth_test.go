package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
var testParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("s3cret", testParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := ComparePasswordAndHash("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	p, _, _, err := DecodeHash(hash)
	require.NoError(t, err)
	assert.Equal(t, testParams, p)
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x$c2FsdA$a2V5",
	} {
		_, _, _, err := DecodeHash(h)
		assert.Error(t, err, h)
	}
}

func TestAdminVerifierPlain(t *testing.T) {
	v, err := NewAdminVerifier("admin", "")
	require.NoError(t, err)
	assert.True(t, v.Verify("admin"))
	assert.False(t, v.Verify("Admin"))
	assert.False(t, v.Verify(""))

	_, err = NewAdminVerifier("", "")
	assert.Error(t, err)
}

func TestAdminVerifierHash(t *testing.T) {
	hash, err := CreateHash("letmein", testParams)
	require.NoError(t, err)

	v, err := NewAdminVerifier("ignored", hash)
	require.NoError(t, err)
	assert.True(t, v.Verify("letmein"))
	assert.False(t, v.Verify("ignored"), "the hash takes precedence")

	_, err = NewAdminVerifier("", "$argon2id$broken")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestSeatTokens(t *testing.T) {
	s, err := NewSeatTokens(time.Hour)
	require.NoError(t, err)

	tok, err := s.Issue(3)
	require.NoError(t, err)
	assert.NoError(t, s.Verify(tok, 3))
	assert.ErrorIs(t, s.Verify(tok, 4), ErrInvalidSeatToken)
	assert.ErrorIs(t, s.Verify("not-a-jwt", 3), ErrInvalidSeatToken)

	other, err := NewSeatTokens(time.Hour)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Verify(tok, 3), ErrInvalidSeatToken, "signed by another key")

	s.Rotate()
	assert.ErrorIs(t, s.Verify(tok, 3), ErrInvalidSeatToken, "rotated session")
}

func TestSeatTokenExpiry(t *testing.T) {
	s, err := NewSeatTokens(time.Nanosecond)
	require.NoError(t, err)
	tok, err := s.Issue(1)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	assert.ErrorIs(t, s.Verify(tok, 1), ErrInvalidSeatToken)

	never, err := NewSeatTokens(0)
	require.NoError(t, err)
	tok, err = never.Issue(1)
	require.NoError(t, err)
	assert.NoError(t, never.Verify(tok, 1))
}

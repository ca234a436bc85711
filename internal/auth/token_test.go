package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	signed, err := tokens.Issue("ana")
	require.NoError(t, err)

	tenant, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "ana", tenant)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret", time.Hour).Issue("ana")
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(signed)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenExpires(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	signed, err := tokens.Issue("ana")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	_, err := NewTokens("secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

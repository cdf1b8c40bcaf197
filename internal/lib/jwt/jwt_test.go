package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestSubject_ExpiredToken(t *testing.T) {
	token, err := NewToken(42, secret, -time.Minute)
	require.NoError(t, err)

	// Субъект обязан доставаться и из просроченного токена.
	uid, err := Subject(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)

	// Полная проверка просроченный токен отвергает.
	assert.ErrorIs(t, Validate(token, secret), ErrInvalidToken)
}

func TestSubject_WrongSignature(t *testing.T) {
	token, err := NewToken(42, "other-secret", time.Minute)
	require.NoError(t, err)

	_, err = Subject(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubject_Malformed(t *testing.T) {
	_, err := Subject("garbage", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_OK(t *testing.T) {
	token, err := NewToken(7, secret, time.Minute)
	require.NoError(t, err)

	assert.NoError(t, Validate(token, secret))
}

func TestNewToken_Unique(t *testing.T) {
	a, err := NewToken(7, secret, time.Minute)
	require.NoError(t, err)

	b, err := NewToken(7, secret, time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

package auth

import (
	"testing"
	"time"

	"storefront/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCodec_RoundTrip(t *testing.T) {
	codec := newStateCodec("state-secret", 10*time.Minute, time.Now)
	client := service.ClientInfo{UserAgent: "Mozilla/5.0", IP: "203.0.113.7"}

	state, err := codec.Encode(client, "nonce-1")
	require.NoError(t, err)

	got, err := codec.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, client.UserAgent, got.UserAgent)
	assert.Equal(t, client.IP, got.IP)
	assert.Equal(t, "nonce-1", got.Nonce)
}

func TestStateCodec_RequiresNonce(t *testing.T) {
	codec := newStateCodec("state-secret", 10*time.Minute, time.Now)

	_, err := codec.Encode(service.ClientInfo{}, "")
	assert.Error(t, err)
}

func TestStateCodec_Rejects(t *testing.T) {
	codec := newStateCodec("state-secret", 10*time.Minute, time.Now)
	valid, err := codec.Encode(service.ClientInfo{UserAgent: "ua", IP: "127.0.0.1"}, "n")
	require.NoError(t, err)

	expired, err := newStateCodec("state-secret", 10*time.Minute, func() time.Time {
		return time.Now().Add(-time.Hour)
	}).Encode(service.ClientInfo{}, "n")
	require.NoError(t, err)

	forged, err := newStateCodec("other-secret", 10*time.Minute, time.Now).Encode(service.ClientInfo{}, "n")
	require.NoError(t, err)

	tests := map[string]string{
		"expired":  expired,
		"forged":   forged,
		"tampered": valid + "x",
		"base64":   "eyJ1c2VyQWdlbnQiOiJ1YSIsImlwIjoiMTI3LjAuMC4xIn0=",
		"empty":    "",
	}

	for name, state := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(state)
			assert.True(t, errors.Is(err, ErrInvalidState))
		})
	}
}

func TestStateCodec_RequiresSecret(t *testing.T) {
	codec := newStateCodec("", 10*time.Minute, time.Now)

	_, err := codec.Encode(service.ClientInfo{}, "n")
	assert.Error(t, err)

	_, err = codec.Decode("anything")
	assert.True(t, errors.Is(err, ErrInvalidState))
}

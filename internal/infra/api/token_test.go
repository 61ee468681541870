package api

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func TestCheckToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		token      string
		wantExpiry time.Time
		wantErr    error
		wantWarn   bool
	}{
		{name: "no token", token: ""},
		{name: "opaque access key", token: "ak-0123456789"},
		{name: "malformed jwt", token: "a.b.c"},
		{name: "jwt without exp", token: signedToken(t, jwt.MapClaims{"sub": "admin"})},
		{
			name:       "valid for a week",
			token:      signedToken(t, jwt.MapClaims{"sub": "admin", "exp": now.Add(7 * 24 * time.Hour).Unix()}),
			wantExpiry: now.Add(7 * 24 * time.Hour),
		},
		{
			name:       "expires within a day",
			token:      signedToken(t, jwt.MapClaims{"sub": "admin", "exp": now.Add(3 * time.Hour).Unix()}),
			wantExpiry: now.Add(3 * time.Hour),
			wantWarn:   true,
		},
		{
			name:       "expired",
			token:      signedToken(t, jwt.MapClaims{"sub": "admin", "exp": now.Add(-time.Minute).Unix()}),
			wantExpiry: now.Add(-time.Minute),
			wantErr:    ErrTokenExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

			expiry, err := checkToken(tt.token, now, logger)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, tt.wantExpiry.Equal(expiry), "expiry = %v, want %v", expiry, tt.wantExpiry)
			assert.Equal(t, tt.wantWarn, bytes.Contains(buf.Bytes(), []byte("expires soon")))
		})
	}
}

func TestClient_CheckToken(t *testing.T) {
	c, err := New(Config{Token: signedToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})})
	require.NoError(t, err)

	_, err = c.CheckToken(time.Now())

	assert.ErrorIs(t, err, ErrTokenExpired)
}

package api

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiryWarning is how close to expiry CheckToken starts warning.
const tokenExpiryWarning = 24 * time.Hour

// CheckToken inspects the configured token. When it is a JWT, the exp claim
// is read without verifying the signature, since only the backend holds the
// key. It returns the expiry, or the zero time for opaque tokens and tokens
// without exp, and ErrTokenExpired once exp has passed.
func (c *Client) CheckToken(now time.Time) (time.Time, error) {
	return checkToken(c.cfg.Token, now, c.logger)
}

func checkToken(token string, now time.Time, logger *slog.Logger) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.Count(token, ".") != 2 {
		return time.Time{}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		logger.Debug("token is not a parseable JWT", slog.Any("error", err))
		return time.Time{}, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, nil
	}

	expiry := exp.Time
	if !now.Before(expiry) {
		return expiry, fmt.Errorf("%w at %s", ErrTokenExpired, expiry.Format(time.RFC3339))
	}
	if left := expiry.Sub(now); left < tokenExpiryWarning {
		logger.Warn("access token expires soon",
			slog.Time("expires_at", expiry),
			slog.Duration("remaining", left.Round(time.Minute)))
	}
	return expiry, nil
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var ErrTokenExpired = errors.New("api token expired")

// TokenInfo is what the dashboard can learn from its configured API token.
type TokenInfo struct {
	Raw     string
	Subject string
	Expiry  time.Time
	JWT     bool
}

// Inspect reads the registered claims of a JWT without verifying its
// signature; the dashboard holds no key for that. Opaque tokens come back
// with JWT=false and a zero expiry.
func Inspect(raw string) TokenInfo {
	info := TokenInfo{Raw: raw}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return info
	}
	info.JWT = true
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.Expiry = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	return info
}

// TokenSource returns a static bearer token source for raw, or nil when no
// token is configured. A JWT whose exp has already passed is rejected up front.
func TokenSource(raw string, now time.Time) (oauth2.TokenSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	info := Inspect(raw)
	if !info.Expiry.IsZero() && !info.Expiry.After(now) {
		return nil, fmt.Errorf("%w at %s", ErrTokenExpired, info.Expiry.UTC().Format(time.RFC3339))
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
		Expiry:      info.Expiry,
	}), nil
}

// WrapClient returns a copy of base that sets the Authorization header from
// ts on every request. A nil ts returns base unchanged.
func WrapClient(base *http.Client, ts oauth2.TokenSource) *http.Client {
	if ts == nil {
		return base
	}
	if base == nil {
		base = &http.Client{}
	}
	return &http.Client{
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   base.Transport,
		},
	}
}

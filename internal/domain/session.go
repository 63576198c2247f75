package domain

import "time"

// RefreshBuffer is how long before the reported expiry a token is already
// treated as stale. Refreshing early avoids racing the upstream clock.
const RefreshBuffer = 5 * time.Minute

// AuthSession holds the token pair issued by a marketplace. Each adapter owns
// exactly one session; nothing outside the adapter mutates it.
type AuthSession struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// NeedsRefresh reports whether a request must not be sent with the current
// token: the token is absent, or now is within RefreshBuffer of the expiry.
// Sessions without a reported lifetime (zero ExpiresAt) never expire here;
// those platforms signal expiry through the response instead.
func (s *AuthSession) NeedsRefresh(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt.Add(-RefreshBuffer))
}

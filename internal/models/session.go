package models

// Session is the server-side state behind a signed session token. It lives
// in the session store for as long as the caller stays active and is gone
// after logout or the inactivity TTL, whichever comes first.
type Session struct {
	ID          string `json:"id"`
	AccessHash  string `json:"access_hash,omitempty"`
	DisplayName string `json:"display_name"`
	Tier        Tier   `json:"tier"`
}

// Unlimited reports whether the session bypasses credit checks.
func (s *Session) Unlimited() bool {
	return s != nil && s.Tier == TierUnlimited
}

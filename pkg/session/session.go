package session

import (
	"maps"
	"time"
)

// Session is the server-side state of one browser.
type Session struct {
	ID             string            `json:"id"`
	Token          string            `json:"token"`
	AccountID      string            `json:"account_id,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

// IsAuthenticated reports whether an account is attached.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccountID != ""
}

func (s *Session) IsExpired(now time.Time) bool {
	return s != nil && now.After(s.ExpiresAt)
}

func (s *Session) Get(key string) (string, bool) {
	if s == nil || s.Data == nil {
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok
}

// GetString returns the value for key or "".
func (s *Session) GetString(key string) string {
	v, _ := s.Get(key)
	return v
}

func (s *Session) Set(key, value string) {
	if s == nil {
		return
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

func (s *Session) Delete(key string) {
	if s == nil || s.Data == nil {
		return
	}
	delete(s.Data, key)
}

// Clear removes all data.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.Data = make(map[string]string)
}

func (s *Session) clone() *Session {
	c := *s
	c.Data = maps.Clone(s.Data)
	return &c
}

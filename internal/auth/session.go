package auth

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "campaign_session"

// ErrNoSession is returned for an unknown or expired session token.
var ErrNoSession = errors.New("session not found or expired")

// Session is an open staff login.
type Session struct {
	Token     string
	Staff     Staff
	ExpiresAt time.Time
}

// Sessions is an in-memory session store with a fixed lifetime.
type Sessions struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// NewSessions creates a store whose sessions live for ttl.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// Create opens a session for s.
func (st *Sessions) Create(s Staff) Session {
	sess := Session{
		Token:     uuid.NewString(),
		Staff:     s,
		ExpiresAt: st.now().Add(st.ttl),
	}
	st.mu.Lock()
	st.sessions[sess.Token] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the live session for token.
func (st *Sessions) Get(token string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !st.now().Before(sess.ExpiresAt) {
		delete(st.sessions, token)
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Delete closes a session. Unknown tokens are ignored.
func (st *Sessions) Delete(token string) {
	st.mu.Lock()
	delete(st.sessions, token)
	st.mu.Unlock()
}

// Sweep removes expired sessions and reports how many were dropped.
func (st *Sessions) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for token, sess := range st.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(st.sessions, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored sessions, expired ones included.
func (st *Sessions) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, sess Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session token carried by r, if any.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

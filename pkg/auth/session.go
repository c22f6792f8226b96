package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the login session cookie.
const SessionName = "ekaya-catalog-session"

// Session value keys.
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	// SessionKeyImportPlan holds the id of the staged import preview.
	SessionKeyImportPlan = "import_plan_id"
)

// ErrNoSession is returned when the request carries no logged-in session.
var ErrNoSession = errors.New("no login session")

// SessionStore wraps a signed cookie store for login state and the
// pending import preview id.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates the cookie store. The secret can be any passphrase;
// it is SHA-256 hashed to derive a 32-byte signing key, so it must stay the same
// across restarts and across servers behind a load balancer.
func NewSessionStore(secret string, maxAge int, cookie CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Get returns the session for r, creating an empty one if the cookie is missing
// or fails verification.
func (s *SessionStore) Get(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, SessionName)
	if err != nil {
		// A tampered or stale cookie yields a fresh session.
		session, _ = s.store.New(r, SessionName)
	}
	return session
}

// Login records the user in the session and writes the cookie.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, userID int64, username string) error {
	session := s.Get(r)
	session.Values[SessionKeyUserID] = strconv.FormatInt(userID, 10)
	session.Values[SessionKeyUsername] = username
	delete(session.Values, SessionKeyImportPlan)
	return session.Save(r, w)
}

// Logout expires the session cookie.
func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	session := s.Get(r)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Claims builds claims from a logged-in session.
func (s *SessionStore) Claims(r *http.Request) (*Claims, error) {
	session := s.Get(r)
	sub, _ := session.Values[SessionKeyUserID].(string)
	if sub == "" {
		return nil, ErrNoSession
	}
	claims := &Claims{Username: stringValue(session.Values[SessionKeyUsername])}
	claims.Subject = sub
	if _, ok := claims.UserID(); !ok {
		return nil, ErrNoSession
	}
	return claims, nil
}

// PendingImport returns the staged import preview id, if any.
func (s *SessionStore) PendingImport(r *http.Request) string {
	return stringValue(s.Get(r).Values[SessionKeyImportPlan])
}

// SetPendingImport stores planID as the session's staged preview. An empty
// planID clears it.
func (s *SessionStore) SetPendingImport(w http.ResponseWriter, r *http.Request, planID string) error {
	session := s.Get(r)
	if planID == "" {
		delete(session.Values, SessionKeyImportPlan)
	} else {
		session.Values[SessionKeyImportPlan] = planID
	}
	return session.Save(r, w)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

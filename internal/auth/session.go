package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const (
	// StateCookieName is the cookie holding the OAuth state.
	StateCookieName = "dealbook_oauth"
	stateKey        = "state"
	stateMaxAge     = 10 * 60
)

// ErrStateMissing is returned when no OAuth state is stored for the request.
var ErrStateMissing = errors.New("no oauth state in session")

// StateStore keeps the OAuth CSRF state in a signed cookie.
type StateStore struct {
	store  *sessions.CookieStore
	logger zerolog.Logger
}

// NewStateStore creates a StateStore. The secret must be at least 32 bytes.
func NewStateStore(secret []byte, secure bool, logger zerolog.Logger) (*StateStore, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &StateStore{
		store:  store,
		logger: logger.With().Str("component", "oauth_state").Logger(),
	}, nil
}

// GenerateState returns a random state parameter.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Begin stores a fresh state in the cookie and returns it.
func (s *StateStore) Begin(r *http.Request, w http.ResponseWriter) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	session, _ := s.store.Get(r, StateCookieName)
	session.Values[stateKey] = state
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return state, nil
}

// Consume returns the stored state and clears it, so each state is usable once.
func (s *StateStore) Consume(r *http.Request, w http.ResponseWriter) (string, error) {
	session, err := s.store.Get(r, StateCookieName)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	state, ok := session.Values[stateKey].(string)
	if !ok || state == "" {
		return "", ErrStateMissing
	}
	delete(session.Values, stateKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return state, nil
}

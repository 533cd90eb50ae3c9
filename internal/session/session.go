// Package session holds the bearer-token credential and its lifecycle:
// load at startup, wholesale replacement on login/refresh, and reset on
// logout. An empty access token means logged out.
package session

import (
	"context"
	"sync"

	"github.com/cartaomais/appcore/internal/apperrors"
	"github.com/cartaomais/appcore/internal/kvstore"
	"github.com/cartaomais/appcore/internal/logging"
	"github.com/cartaomais/appcore/internal/metrics"
)

// Session is the current bearer credential and its permissions.
type Session struct {
	AccessToken       string   `json:"access_token"`
	TokenType         string   `json:"token_type"`
	ExpiresIn         int      `json:"expires_in"`
	MenuPermissions   []string `json:"menu_permissions"`
	ActionPermissions []string `json:"action_permissions"`
}

// LoggedIn reports whether the session carries a credential.
func (s Session) LoggedIn() bool {
	return s.AccessToken != ""
}

// RefreshFunc exchanges the current session for a fresh one at the remote
// API. Wired by the application container.
type RefreshFunc func(ctx context.Context, current Session) (Session, error)

// Store is the authentication session store.
type Store struct {
	mu      sync.RWMutex
	current Session
	loaded  bool
	subs    []func(Session)

	codec   *kvstore.Codec
	refresh RefreshFunc
	log     *logging.Logger

	sfMu sync.Mutex
	sf   *refreshCall
}

type refreshCall struct {
	done chan struct{}
	err  error
}

// NewStore creates a logged-out session store.
func NewStore(codec *kvstore.Codec, refresh RefreshFunc, log *logging.Logger) *Store {
	if log == nil {
		log = logging.NewDefault("session")
	}
	return &Store{codec: codec, refresh: refresh, log: log}
}

// Load reads the persisted session. When none exists the store stays
// logged out. Always marks the store initialized.
func (s *Store) Load(ctx context.Context) error {
	var persisted Session
	found, err := s.codec.Get(ctx, kvstore.KeySession, &persisted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if found {
		s.current = persisted
	}
	s.loaded = true
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return nil
}

// Loaded reports whether the initial load completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.current)
}

// LoggedIn reports whether a credential is present.
func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.LoggedIn()
}

// AccessToken implements the API client's TokenSource.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

// Set persists and adopts a new session wholesale. Used after login,
// registration and refresh.
func (s *Store) Set(ctx context.Context, next Session) error {
	if err := s.codec.Set(ctx, kvstore.KeySession, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.loaded = true
	s.mu.Unlock()

	s.notify()
	return nil
}

// Clear removes the persisted session and resets to logged out.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.codec.Remove(ctx, kvstore.KeySession); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Refresh exchanges the current token for a fresh session. Concurrent
// callers coalesce on a single in-flight refresh. On failure the existing
// session stays untouched, except when the refresh endpoint rejects the
// token outright, which resets the store to logged out.
func (s *Store) Refresh(ctx context.Context) error {
	s.sfMu.Lock()
	if s.sf != nil {
		call := s.sf
		s.sfMu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	s.sf = call
	s.sfMu.Unlock()

	call.err = s.doRefresh(ctx)

	s.sfMu.Lock()
	s.sf = nil
	s.sfMu.Unlock()
	close(call.done)

	return call.err
}

func (s *Store) doRefresh(ctx context.Context) error {
	current := s.Current()
	if !current.LoggedIn() {
		return nil
	}
	if s.refresh == nil {
		return apperrors.Internal("no refresh endpoint wired", nil)
	}

	next, err := s.refresh(ctx, current)
	if err != nil {
		metrics.RecordTokenRefresh(false)
		if apperrors.IsCode(err, apperrors.CodeCannotRefreshToken) {
			s.log.WithError(err).Warn("refresh token rejected, logging out")
			if clearErr := s.Clear(ctx); clearErr != nil {
				s.log.WithError(clearErr).Error("clear session after rejected refresh failed")
			}
			return err
		}
		s.log.WithError(err).Warn("token refresh failed, keeping current session")
		return err
	}

	metrics.RecordTokenRefresh(true)
	return s.Set(ctx, next)
}

// OnChange registers a subscriber invoked after every session change.
// Subscribers run synchronously; keep them cheap.
func (s *Store) OnChange(fn func(Session)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(Session), len(s.subs))
	copy(subs, s.subs)
	current := cloneSession(s.current)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(current)
	}
}

func cloneSession(in Session) Session {
	in.MenuPermissions = append([]string(nil), in.MenuPermissions...)
	in.ActionPermissions = append([]string(nil), in.ActionPermissions...)
	return in
}

// Package sessions owns the signed in identity and access token, and drives
// the session lifecycle: restore, login, signup and logout.
package sessions

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/mcc-client/apiclient"
	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/storage"
	"github.com/jrsteele09/mcc-client/users"
	"github.com/rs/zerolog/log"
)

var _ apiclient.Session = (*Store)(nil)

// InvalidationHandler is called after the gateway has ended the session.
type InvalidationHandler func(ctx context.Context)

// Store holds the current session in memory and mirrors it to durable state.
// The token in memory and the persisted token are always written together.
type Store struct {
	state    *storage.State
	lock     sync.RWMutex
	user     *users.User
	token    string
	handlers []InvalidationHandler
}

// NewStore creates an empty Store backed by state.
func NewStore(state *storage.State) (*Store, error) {
	if state == nil {
		return nil, errors.New("[sessions.NewStore] state is required")
	}
	return &Store{state: state}, nil
}

// Load reads the cached identity and token. It reports true only when both are
// present; a half written session is discarded.
func (s *Store) Load(ctx context.Context) (bool, error) {
	var user users.User
	hasUser, err := s.state.GetJSON(ctx, storage.KeyUser, &user)
	if err != nil {
		return false, mccerrors.Wrapf(err, "load session user")
	}
	var token string
	hasToken, err := s.state.GetJSON(ctx, storage.KeyToken, &token)
	if err != nil {
		return false, mccerrors.Wrapf(err, "load session token")
	}

	if !hasUser || !hasToken || token == "" || !user.Valid() {
		if hasUser || hasToken {
			log.Debug().Bool("user", hasUser).Bool("token", hasToken).Msg("Discarding incomplete saved session")
			if err := s.Clear(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to discard incomplete saved session")
			}
		}
		return false, nil
	}

	s.lock.Lock()
	s.user = &user
	s.token = token
	s.lock.Unlock()
	return true, nil
}

// Token returns the access token, or "" when signed out.
func (s *Store) Token() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.token
}

// SetToken replaces the access token of the current session. It is persisted
// first so a failed write never leaves memory ahead of durable state. Without a
// signed in identity nothing is written, so a refresh that finishes after
// logout cannot leave a token behind.
func (s *Store) SetToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return mccerrors.Wrapf(mccerrors.ErrInvalidRequest, "empty access token")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.user == nil {
		return mccerrors.Wrapf(mccerrors.ErrNotAuthenticated, "set access token")
	}
	if err := s.state.SetJSON(ctx, storage.KeyToken, accessToken); err != nil {
		return mccerrors.Wrapf(err, "persist access token")
	}
	s.token = accessToken
	return nil
}

// User returns the signed in identity.
func (s *Store) User() (users.User, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.user == nil {
		return users.User{}, false
	}
	return *s.user, true
}

// SetUser replaces the cached identity, keeping the current token.
func (s *Store) SetUser(ctx context.Context, user users.User) error {
	if !user.Valid() {
		return mccerrors.Wrapf(mccerrors.ErrInvalidRequest, "user has no id or email")
	}
	if err := s.state.SetJSON(ctx, storage.KeyUser, user); err != nil {
		return mccerrors.Wrapf(err, "persist user")
	}
	s.lock.Lock()
	s.user = &user
	s.lock.Unlock()
	return nil
}

// Authenticated reports whether both an identity and a token are held.
func (s *Store) Authenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user != nil && s.token != ""
}

// Establish starts a session. Either both user and token are stored or, on a
// write failure, neither is.
func (s *Store) Establish(ctx context.Context, user users.User, accessToken string) error {
	if !user.Valid() {
		return mccerrors.Wrapf(mccerrors.ErrInvalidRequest, "user has no id or email")
	}
	if accessToken == "" {
		return mccerrors.Wrapf(mccerrors.ErrInvalidRequest, "empty access token")
	}

	err := s.state.SetJSON(ctx, storage.KeyToken, accessToken)
	if err == nil {
		err = s.state.SetJSON(ctx, storage.KeyUser, user)
	}
	if err != nil {
		if rmErr := s.removePersisted(ctx); rmErr != nil {
			log.Warn().Err(rmErr).Msg("Failed to roll back partial session write")
		}
		return mccerrors.Wrapf(err, "persist session")
	}

	s.lock.Lock()
	s.user = &user
	s.token = accessToken
	s.lock.Unlock()
	return nil
}

// Clear forgets the session. Memory is always cleared, even when removing the
// persisted copy fails.
func (s *Store) Clear(ctx context.Context) error {
	s.forget()
	return s.removePersisted(ctx)
}

// forget drops the in-memory session and reports whether one was held.
func (s *Store) forget() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	live := s.user != nil || s.token != ""
	s.user = nil
	s.token = ""
	return live
}

// removePersisted outlives a cancelled caller; a sign out must reach storage.
func (s *Store) removePersisted(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	return errors.Join(
		s.state.Remove(ctx, storage.KeyToken),
		s.state.Remove(ctx, storage.KeyUser),
	)
}

// OnInvalidate registers fn to run whenever Invalidate ends a live session.
func (s *Store) OnInvalidate(fn InvalidationHandler) {
	if fn == nil {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Invalidate clears the session on behalf of the gateway. Handlers run once per
// live session; invalidating an already empty store only clears durable state.
func (s *Store) Invalidate(ctx context.Context) {
	live := s.forget()
	if err := s.removePersisted(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to clear persisted session")
	}
	if !live {
		return
	}
	log.Info().Msg("Session expired")

	s.lock.RLock()
	handlers := append([]InvalidationHandler(nil), s.handlers...)
	s.lock.RUnlock()
	for _, fn := range handlers {
		fn(ctx)
	}
}

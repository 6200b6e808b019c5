package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jrsteele09/mcc-client/apiclient"
	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/users"
	"github.com/rs/zerolog/log"
)

// AuthAPI is the part of the gateway the session lifecycle needs.
type AuthAPI interface {
	Signup(ctx context.Context, registration users.Registration) (*apiclient.AuthResponse, error)
	Login(ctx context.Context, credentials users.Credentials) (*apiclient.AuthResponse, error)
	Me(ctx context.Context) (*users.User, error)
	Logout(ctx context.Context) error
}

// View switches between the signed in application and the login screen.
type View interface {
	ShowApp(user users.User)
	ShowLogin()
}

// Navigator restores and forgets the page the user was on. It is only started
// once the application is visible.
type Navigator interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a short toast style message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type screen int

const (
	screenNone screen = iota
	screenLogin
	screenApp
)

// Manager runs the session lifecycle against the gateway and keeps the view in
// step with the Store.
type Manager struct {
	store    *Store
	api      AuthAPI
	view     View
	nav      Navigator
	notifier Notifier

	lock    sync.Mutex
	showing screen
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNavigator sets the navigator started when the application is revealed.
func WithNavigator(nav Navigator) ManagerOption {
	return func(m *Manager) {
		m.nav = nav
	}
}

// WithNotifier sets where welcome and farewell messages go.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// NewManager wires the lifecycle and subscribes to gateway invalidations.
func NewManager(store *Store, api AuthAPI, view View, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[sessions.NewManager] store is required")
	}
	if api == nil {
		return nil, errors.New("[sessions.NewManager] auth API is required")
	}
	if view == nil {
		return nil, errors.New("[sessions.NewManager] view is required")
	}

	m := &Manager{
		store: store,
		api:   api,
		view:  view,
	}
	for _, opt := range options {
		opt(m)
	}
	store.OnInvalidate(m.sessionInvalidated)
	return m, nil
}

// Restore resumes a saved session. The saved token is verified with one call
// to /auth/me; any failure signs the user out silently. It reports whether the
// application was revealed.
func (m *Manager) Restore(ctx context.Context) bool {
	restored, err := m.store.Load(ctx)
	if err != nil {
		log.Err(err).Msg("Failed to read saved session")
	}
	if !restored {
		m.showLogin()
		return false
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Saved session rejected")
		m.Logout(ctx, true)
		return false
	}

	current, _ := m.store.User()
	if user != nil && user.Valid() {
		if err := m.store.SetUser(ctx, *user); err != nil {
			log.Warn().Err(err).Msg("Failed to update saved user")
		} else {
			current = *user
		}
	}
	m.revealApp(ctx, current)
	return true
}

// Login signs in with email and password. On failure the current session and
// view are left as they were.
func (m *Manager) Login(ctx context.Context, credentials users.Credentials) (users.User, error) {
	resp, err := m.api.Login(ctx, credentials)
	if err != nil {
		return users.User{}, err
	}
	return m.begin(ctx, resp)
}

// Signup registers an account and signs straight into it.
func (m *Manager) Signup(ctx context.Context, registration users.Registration) (users.User, error) {
	resp, err := m.api.Signup(ctx, registration)
	if err != nil {
		return users.User{}, err
	}
	return m.begin(ctx, resp)
}

func (m *Manager) begin(ctx context.Context, resp *apiclient.AuthResponse) (users.User, error) {
	if err := m.store.Establish(ctx, resp.User, resp.AccessToken); err != nil {
		return users.User{}, mccerrors.Wrapf(err, "start session")
	}
	m.revealApp(ctx, resp.User)
	m.notify(ctx, Notification{
		Level:   LevelSuccess,
		Title:   fmt.Sprintf("Welcome, %s!", resp.User.DisplayName()),
		Message: "Your Marketing Command Center is ready",
	})
	return resp.User, nil
}

// Logout ends the session. Local state is cleared first so a slow or failing
// backend can never keep the user signed in; the backend call is best effort.
// Logout is idempotent.
func (m *Manager) Logout(ctx context.Context, silent bool) {
	if err := m.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to clear persisted session")
	}
	m.signedOut(ctx)

	if err := m.api.Logout(ctx); err != nil {
		log.Debug().Err(err).Msg("Backend logout failed")
	}
	if !silent {
		m.notify(ctx, Notification{
			Level:   LevelInfo,
			Title:   "Logged out",
			Message: "See you next time!",
		})
	}
}

// sessionInvalidated runs when the gateway gives up on the session. The Store
// is already empty and the backend has already refused it.
func (m *Manager) sessionInvalidated(ctx context.Context) {
	m.signedOut(ctx)
}

func (m *Manager) signedOut(ctx context.Context) {
	if m.nav != nil {
		if err := m.nav.Reset(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to reset navigation")
		}
	}
	m.showLogin()
}

func (m *Manager) revealApp(ctx context.Context, user users.User) {
	m.lock.Lock()
	m.showing = screenApp
	m.lock.Unlock()

	m.view.ShowApp(user)
	if m.nav != nil {
		if err := m.nav.Init(ctx); err != nil {
			log.Err(err).Msg("Failed to restore navigation")
		}
	}
}

func (m *Manager) showLogin() {
	m.lock.Lock()
	already := m.showing == screenLogin
	m.showing = screenLogin
	m.lock.Unlock()

	if !already {
		m.view.ShowLogin()
	}
}

func (m *Manager) notify(ctx context.Context, n Notification) {
	if m.notifier != nil {
		m.notifier.Notify(ctx, n)
	}
}

package sessions_test

import (
	"context"
	"sync"

	"github.com/jrsteele09/mcc-client/apiclient"
	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/sessions"
	"github.com/jrsteele09/mcc-client/users"
)

// fakeAuthAPI answers like the backend. A rejected Me invalidates the session
// the way the gateway does after a failed refresh.
type fakeAuthAPI struct {
	lock        sync.Mutex
	store       *sessions.Store
	loginErr    error
	meErr       error
	meUser      *users.User
	logoutErr   error
	logoutCalls int
	meCalls     int
}

func (f *fakeAuthAPI) Signup(_ context.Context, r users.Registration) (*apiclient.AuthResponse, error) {
	if r.Email == "taken@example.com" {
		return nil, mccerrors.NewRequestFailed(409, "Email already registered")
	}
	return &apiclient.AuthResponse{User: users.User{ID: 2, Name: r.Name, Email: r.Email}, AccessToken: "S1"}, nil
}

func (f *fakeAuthAPI) Login(_ context.Context, c users.Credentials) (*apiclient.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &apiclient.AuthResponse{User: ada, AccessToken: "T1"}, nil
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*users.User, error) {
	f.lock.Lock()
	f.meCalls++
	meErr := f.meErr
	f.lock.Unlock()

	if meErr != nil {
		if mccerrors.Is(meErr, mccerrors.ErrAuthExpired) && f.store != nil {
			f.store.Invalidate(ctx)
		}
		return nil, meErr
	}
	if f.meUser != nil {
		return f.meUser, nil
	}
	u := ada
	return &u, nil
}

func (f *fakeAuthAPI) Logout(context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

type recordingView struct {
	lock   sync.Mutex
	apps   []users.User
	logins int
}

func (v *recordingView) ShowApp(user users.User) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.apps = append(v.apps, user)
}

func (v *recordingView) ShowLogin() {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.logins++
}

type fakeNavigator struct {
	inits  int
	resets int
}

func (n *fakeNavigator) Init(context.Context) error {
	n.inits++
	return nil
}

func (n *fakeNavigator) Reset(context.Context) error {
	n.resets++
	return nil
}

type recordingNotifier struct {
	notes []sessions.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n sessions.Notification) {
	r.notes = append(r.notes, n)
}

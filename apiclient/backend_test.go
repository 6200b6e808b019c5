package apiclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/mcc-client/apiclient"
	"github.com/jrsteele09/mcc-client/internal/config"
	"github.com/stretchr/testify/require"
)

const (
	testEmail        = "ada@example.com"
	testPassword     = "password123"
	testRefreshToken = "R1"
)

type recordedCall struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	ContentType   string
	UserAgent     string
	Body          string
}

// fakeBackend mimics the command center API: bearer-protected resources, a
// cookie-credentialed refresh endpoint and the auth routes.
type fakeBackend struct {
	server *httptest.Server

	lock          sync.Mutex
	validTokens   map[string]bool
	nextAccess    string
	refreshStatus int
	refreshCalls  int
	rejectAll     bool
	refreshGate   chan struct{}
	calls         []recordedCall
}

// maxTestPayload mirrors the gateway's response body limit.
const maxTestPayload = 16 << 20

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{validTokens: map[string]bool{}, nextAccess: "T2"}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(b.record)
	api.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/signup", b.signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", b.refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", b.logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "name": "Ada", "email": testEmail, "avatar": ""})
	})).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "name": "Launch"}})
	})).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id:[0-9]+}", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Campaign not found"})
	})).Methods(http.MethodGet)
	api.HandleFunc("/analytics/overview", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"impressions": 1200})
	})).Methods(http.MethodGet)
	api.HandleFunc("/analytics/channels", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []string{"email", "social"})
	})).Methods(http.MethodGet)
	api.HandleFunc("/analytics/funnel", b.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "funnel unavailable"})
	})).Methods(http.MethodGet)
	api.HandleFunc("/analytics/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}).Methods(http.MethodGet)
	api.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}).Methods(http.MethodGet)
	api.HandleFunc("/huge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`"`))
		_, _ = w.Write(bytes.Repeat([]byte("a"), maxTestPayload))
		_, _ = w.Write([]byte(`"`))
	}).Methods(http.MethodGet)
	api.HandleFunc("/explode", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}).Methods(http.MethodGet)
	api.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			body = []byte("null")
		}
		_, _ = w.Write(body)
	}).Methods(http.MethodPost, http.MethodPut, http.MethodDelete)

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) config() config.HTTP {
	return config.HTTP{BaseURL: b.server.URL + "/api", RequestTimeout: 2 * time.Second, UserAgent: "mcc-test"}
}

func (b *fakeBackend) newClient(t *testing.T, session apiclient.Session, options ...apiclient.ClientOption) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(b.config(), session, options...)
	require.NoError(t, err)
	return c
}

func (b *fakeBackend) allowToken(token string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.validTokens[token] = true
}

func (b *fakeBackend) revokeToken(token string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.validTokens, token)
}

// rejectAllTokens makes every protected route answer 401, including for
// freshly refreshed tokens.
func (b *fakeBackend) rejectAllTokens() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.rejectAll = true
}

func (b *fakeBackend) setRefreshStatus(status int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.refreshStatus = status
}

// holdRefreshes parks every refresh until the returned release is called. The
// release also runs at cleanup so the server can shut down.
func (b *fakeBackend) holdRefreshes(t *testing.T) (release func()) {
	t.Helper()
	gate := make(chan struct{})
	b.lock.Lock()
	b.refreshGate = gate
	b.lock.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)
	return release
}

func (b *fakeBackend) refreshCount() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.refreshCalls
}

func (b *fakeBackend) recorded() []recordedCall {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]recordedCall(nil), b.calls...)
}

func (b *fakeBackend) callsTo(path string) []recordedCall {
	var out []recordedCall
	for _, c := range b.recorded() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		call := recordedCall{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(apiclient.HeaderRequestID),
			ContentType:   r.Header.Get("Content-Type"),
			UserAgent:     r.Header.Get("User-Agent"),
			Body:          string(body),
		}
		b.lock.Lock()
		b.calls = append(b.calls, call)
		b.lock.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *fakeBackend) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		b.lock.Lock()
		ok := !b.rejectAll && strings.HasPrefix(auth, "Bearer ") && b.validTokens[strings.TrimPrefix(auth, "Bearer ")]
		b.lock.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "Unauthorized",
				"message": "Valid authentication token required",
			})
			return
		}
		next(w, r)
	}
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.Email != testEmail || creds.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	b.allowToken("T1")
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: testRefreshToken, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "T1",
		"user":         map[string]any{"id": 1, "name": "Ada", "email": testEmail},
	})
}

func (b *fakeBackend) signup(w http.ResponseWriter, r *http.Request) {
	var reg struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&reg)
	if reg.Email == testEmail {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "User with this email already exists"})
		return
	}
	b.allowToken("T1")
	writeJSON(w, http.StatusCreated, map[string]any{
		"access_token": "T1",
		"user":         map[string]any{"id": 2, "name": reg.Name, "email": reg.Email},
	})
}

func (b *fakeBackend) refresh(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	b.refreshCalls++
	status := b.refreshStatus
	next := b.nextAccess
	gate := b.refreshGate
	b.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "refresh rejected"})
		return
	}
	cookie, err := r.Cookie("refresh_token")
	if err != nil || cookie.Value != testRefreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Refresh token required"})
		return
	}
	b.allowToken(next)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": next})
}

func (b *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeSession records token writes and invalidations.
type fakeSession struct {
	lock          sync.Mutex
	token         string
	setTokens     []string
	invalidations int
}

var _ apiclient.Session = (*fakeSession)(nil)

func (s *fakeSession) Token() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.token
}

func (s *fakeSession) SetToken(_ context.Context, accessToken string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.token = accessToken
	s.setTokens = append(s.setTokens, accessToken)
	return nil
}

func (s *fakeSession) Invalidate(_ context.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.token = ""
	s.invalidations++
}

func (s *fakeSession) invalidated() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.invalidations
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/mcc-client/internal/config"
	"github.com/jrsteele09/mcc-client/storage"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "password123"
)

// commandCenter is a small stand-in for the backend API.
type commandCenter struct {
	t      *testing.T
	server *httptest.Server

	lock    sync.Mutex
	issued  int
	valid   map[string]bool
	logouts int
}

func newCommandCenter(t *testing.T) *commandCenter {
	t.Helper()
	cc := &commandCenter{t: t, valid: map[string]bool{}}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", cc.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", cc.refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", cc.logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", cc.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "name": "Ada", "email": testEmail})
	})).Methods(http.MethodGet)
	api.HandleFunc("/analytics/overview", cc.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"total_campaigns": 3})
	})).Methods(http.MethodGet)
	api.HandleFunc("/analytics/channels", cc.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"channel": "email", "share": 40}})
	})).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/", cc.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": 7, "name": "Spring Launch"}})
	})).Methods(http.MethodGet)
	api.HandleFunc("/chat/history", cc.protected(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Chat store offline"})
	})).Methods(http.MethodGet)

	cc.server = httptest.NewServer(r)
	t.Cleanup(cc.server.Close)
	return cc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (cc *commandCenter) issue() string {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	cc.issued++
	now := time.Now()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"user_id": 1,
		"email":   testEmail,
		"type":    "access",
		"iat":     now.Unix(),
		"exp":     now.Add(15 * time.Minute).Unix(),
		"n":       cc.issued,
	}).SignedString([]byte("backend-secret"))
	require.NoError(cc.t, err)
	cc.valid = map[string]bool{signed: true}
	return signed
}

func (cc *commandCenter) expireTokens() {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	cc.valid = map[string]bool{}
}

func (cc *commandCenter) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc.lock.Lock()
		ok := cc.valid[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		cc.lock.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token expired"})
			return
		}
		next(w, r)
	}
}

func (cc *commandCenter) login(w http.ResponseWriter, r *http.Request) {
	var creds struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.Email != testEmail || creds.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "R1", Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         map[string]any{"id": 1, "name": "Ada", "email": testEmail},
		"access_token": cc.issue(),
	})
}

func (cc *commandCenter) refresh(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie("refresh_token"); err != nil || c.Value != "R1" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "No refresh token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": cc.issue()})
}

func (cc *commandCenter) logout(w http.ResponseWriter, r *http.Request) {
	cc.lock.Lock()
	cc.logouts++
	cc.lock.Unlock()
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

type result struct {
	out    string
	errOut string
	err    error
}

func (cc *commandCenter) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func setupEnv(t *testing.T, cc *commandCenter, backend string) {
	t.Helper()
	t.Setenv("MCC_API_BASE", cc.server.URL+"/api")
	t.Setenv("MCC_STATE_DIR", t.TempDir())
	t.Setenv("MCC_STATE_BACKEND", backend)
	t.Setenv("MCC_SQLITE_PATH", "")
	t.Setenv("MCC_LOG_LEVEL", "error")
}

func TestSessionLifecycle(t *testing.T) {
	cc := newCommandCenter(t)
	setupEnv(t, cc, config.StateBackendFile)

	res := cc.run(t, "nope\n", "login", "--email", testEmail)
	require.ErrorContains(t, res.err, "Invalid email or password")

	res = cc.run(t, testPassword+"\n", "login", "--email", testEmail)
	require.NoError(t, res.err)
	require.Contains(t, res.errOut, "Signed in as Ada <ada@example.com>")
	require.Contains(t, res.errOut, "Welcome, Ada!")

	res = cc.run(t, "", "whoami")
	require.NoError(t, res.err)
	var who identity
	require.NoError(t, json.Unmarshal([]byte(res.out), &who))
	require.Equal(t, testEmail, who.User.Email)
	require.NotNil(t, who.Token)
	require.Equal(t, "access", who.Token.Type)
	require.False(t, who.Token.Expired)

	// A new process with an expired access token refreshes through the saved
	// cookie and carries on.
	cc.expireTokens()
	res = cc.run(t, "", "open", "dashboard")
	require.NoError(t, res.err)
	require.Contains(t, res.errOut, "Dashboard")
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.out), &snapshot))
	require.Contains(t, snapshot, "overview")
	require.Contains(t, snapshot, "campaigns")
	require.Contains(t, snapshot, "channels")

	res = cc.run(t, "", "logout")
	require.NoError(t, res.err)
	require.Contains(t, res.errOut, "Logged out")
	require.Equal(t, 1, cc.logouts)

	res = cc.run(t, "", "whoami")
	require.ErrorIs(t, res.err, errNotSignedIn)
}

func TestOpenReportsPageFailure(t *testing.T) {
	cc := newCommandCenter(t)
	setupEnv(t, cc, config.StateBackendSQLite)

	require.NoError(t, cc.run(t, testPassword+"\n", "login", "-e", testEmail).err)

	res := cc.run(t, "", "open", "chat")
	require.EqualError(t, res.err, "load AI Strategist: Chat store offline")

	res = cc.run(t, "", "open", "billing")
	require.ErrorContains(t, res.err, "billing")
}

func TestRequestCommandUsesRedisState(t *testing.T) {
	cc := newCommandCenter(t)
	setupEnv(t, cc, config.StateBackendRedis)
	mr := miniredis.RunT(t)
	t.Setenv("MCC_REDIS_ADDR", mr.Addr())

	require.NoError(t, cc.run(t, testPassword+"\n", "login", "--email", testEmail).err)
	require.True(t, mr.Exists("mcc:state:mcc_token"))

	res := cc.run(t, "", "request", "get", "campaigns/", "-o", "yaml")
	require.NoError(t, res.err)
	var campaigns []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(res.out), &campaigns))
	require.Equal(t, "Spring Launch", campaigns[0]["name"])

	res = cc.run(t, "", "request", "PATCH", "/campaigns/7")
	require.ErrorContains(t, res.err, "unsupported method")
}

func TestRefreshCommand(t *testing.T) {
	cc := newCommandCenter(t)
	setupEnv(t, cc, config.StateBackendFile)

	require.ErrorIs(t, cc.run(t, "", "refresh").err, errNotSignedIn)
	require.NoError(t, cc.run(t, testPassword+"\n", "login", "--email", testEmail).err)

	res := cc.run(t, "", "refresh")
	require.NoError(t, res.err)
	require.Contains(t, res.out, `"expired": false`)
	require.Equal(t, 2, cc.issued)
}

func TestPagesCommand(t *testing.T) {
	cc := newCommandCenter(t)
	setupEnv(t, cc, config.StateBackendFile)

	res := cc.run(t, "", "pages", "--output", "yaml")
	require.NoError(t, res.err)
	require.Contains(t, res.out, "label: Publishing Queue")

	res = cc.run(t, "", "pages", "--output", "xml")
	require.ErrorContains(t, res.err, "unsupported output format")
}

func TestOpenStateRepoBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{config.StateBackendFile, config.StateBackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Storage{Backend: backend, Dir: dir, SQLitePath: dir + "/state.db"}
			repo, closeRepo, err := openStateRepo(ctx, cfg)
			require.NoError(t, err)
			defer closeRepo()

			state := storage.NewState(repo)
			require.NoError(t, state.SetJSON(ctx, storage.KeyCurrentPage, "chat"))
			var page string
			found, err := state.GetJSON(ctx, storage.KeyCurrentPage, &page)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "chat", page)
		})
	}

	_, _, err := openStateRepo(ctx, config.Storage{Backend: config.StateBackendRedis, RedisAddr: "127.0.0.1:1"})
	require.ErrorContains(t, err, "connect to redis")

	_, _, err = openStateRepo(ctx, config.Storage{Backend: "etcd"})
	require.ErrorContains(t, err, "unknown state backend")
}

func TestMistypedStateBackendFailsStartup(t *testing.T) {
	cc := newCommandCenter(t)
	setupEnv(t, cc, "redsi")

	res := cc.run(t, "", "refresh")
	require.ErrorContains(t, res.err, `unknown state backend "redsi"`)
	require.Zero(t, cc.issued)
}

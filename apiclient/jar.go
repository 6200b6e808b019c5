package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/jrsteele09/mcc-client/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

var _ http.CookieJar = (*PersistentJar)(nil)

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PersistentJar is a cookie jar whose cookies for the backend origin are saved
// to durable state, so the refresh cookie outlives the process.
type PersistentJar struct {
	jar   *cookiejar.Jar
	state *storage.State
	base  *url.URL
	lock  sync.Mutex
}

// NewPersistentJar loads previously saved cookies for baseURL.
func NewPersistentJar(ctx context.Context, state *storage.State, baseURL string) (*PersistentJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	var saved []storedCookie
	if _, err := state.GetJSON(ctx, storage.KeyCookies, &saved); err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	root := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", HttpOnly: true})
	}
	if len(cookies) > 0 {
		jar.SetCookies(root, cookies)
	}

	return &PersistentJar{jar: jar, state: state, base: base}, nil
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies records cookies and, when they belong to the backend origin,
// snapshots the origin's cookies to durable state. Persistence failures are
// logged; the in-memory jar stays authoritative for this process.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
	if u.Host != j.base.Host {
		return
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	current := j.jar.Cookies(j.base)
	snapshot := make([]storedCookie, 0, len(current))
	for _, c := range current {
		snapshot = append(snapshot, storedCookie{Name: c.Name, Value: c.Value})
	}
	if err := j.state.SetJSON(context.Background(), storage.KeyCookies, snapshot); err != nil {
		log.Warn().Err(err).Msg("Failed to persist cookies")
	}
}

// Package apiclient is the single gateway for calls to the command center
// backend. It attaches the bearer token, normalizes errors and runs the
// refresh-once-then-retry protocol on 401 responses.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/mcc-client/internal/config"
	mccerrors "github.com/jrsteele09/mcc-client/internal/errors"
	"github.com/jrsteele09/mcc-client/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	HeaderRequestID = "X-Request-ID"
	contentTypeJSON = "application/json"
	routeRefresh    = "/auth/refresh"

	// maxPayloadBytes bounds how much of a response body is buffered.
	maxPayloadBytes = 16 << 20
)

// Attempt marks whether a request may still trigger a token refresh.
type Attempt int

const (
	// Initial requests refresh the token once on a 401.
	Initial Attempt = iota
	// Retried requests never refresh; a 401 ends the session.
	Retried
	// Credential requests exchange credentials (login, signup, logout). They
	// never refresh and a 401 is an ordinary failure that leaves the session
	// untouched.
	Credential
)

func (a Attempt) String() string {
	switch a {
	case Initial:
		return "initial"
	case Retried:
		return "retried"
	case Credential:
		return "credential"
	default:
		return fmt.Sprintf("attempt(%d)", int(a))
	}
}

// Session is the credential holder the gateway reads from and reports to.
type Session interface {
	// Token returns the current access token, or "" when signed out.
	Token() string
	// SetToken stores a refreshed access token in memory and durable state.
	SetToken(ctx context.Context, accessToken string) error
	// Invalidate clears credentials and forces the signed out view.
	Invalidate(ctx context.Context)
}

// Payload is a response body. Unparsable or empty bodies are normalized to {}.
type Payload = json.RawMessage

var emptyPayload = Payload("{}")

// Client issues every backend call on behalf of the UI.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	session      Session
	jar          http.CookieJar
	refreshGroup singleflight.Group
	newRequestID func() string
	optionErr    error
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient uses a copy of hc for every call; hc itself is never modified.
// If neither it nor WithCookieJar supplies a jar one is added so refresh
// cookies are kept.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc == nil {
			c.optionErr = errors.New("[apiclient.New] HTTP client is required")
			return
		}
		copied := *hc
		c.httpClient = &copied
	}
}

// WithCookieJar sets the jar used to carry the refresh cookie. It takes
// precedence over any jar on a client passed to WithHTTPClient.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithRequestIDFunc overrides request ID generation (primarily for testing).
func WithRequestIDFunc(fn func() string) ClientOption {
	return func(c *Client) {
		c.newRequestID = fn
	}
}

// New creates a Client for the configured base URL.
func New(cfg config.HTTPConfig, session Session, options ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[apiclient.New] config is required")
	}
	if session == nil {
		return nil, errors.New("[apiclient.New] session is required")
	}
	baseURL := strings.TrimRight(cfg.GetBaseURL(), "/")
	if baseURL == "" {
		return nil, errors.New("[apiclient.New] base URL is required")
	}

	c := &Client{
		baseURL:      baseURL,
		userAgent:    cfg.GetUserAgent(),
		httpClient:   &http.Client{Timeout: cfg.GetRequestTimeout()},
		session:      session,
		newRequestID: uuid.NewString,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.optionErr != nil {
		return nil, c.optionErr
	}

	switch {
	case c.jar != nil:
		c.httpClient.Jar = c.jar
	case c.httpClient.Jar == nil:
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// BaseURL returns the backend root all paths are relative to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string) (Payload, error) {
	return c.Request(ctx, http.MethodGet, path, nil, Initial)
}

func (c *Client) Post(ctx context.Context, path string, body any) (Payload, error) {
	return c.Request(ctx, http.MethodPost, path, body, Initial)
}

func (c *Client) Put(ctx context.Context, path string, body any) (Payload, error) {
	return c.Request(ctx, http.MethodPut, path, body, Initial)
}

func (c *Client) Delete(ctx context.Context, path string) (Payload, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, Initial)
}

// Request issues one logical call. A 401 on an Initial attempt triggers one
// refresh followed by one Retried attempt whose outcome is final. A terminal 401
// invalidates the session before the error is returned, except for Credential
// requests.
func (c *Client) Request(ctx context.Context, method, path string, body any, attempt Attempt) (Payload, error) {
	status, payload, err := c.send(ctx, method, path, body, attempt)
	if err != nil {
		return nil, err
	}
	if isSuccess(status) {
		return payload, nil
	}

	message := errorMessage(payload)
	if status != http.StatusUnauthorized || attempt == Credential {
		return nil, mccerrors.NewRequestFailed(status, message)
	}

	if attempt == Initial {
		refreshErr := c.refreshToken(ctx)
		if refreshErr == nil {
			return c.Request(ctx, method, path, body, Retried)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Err(refreshErr).Str("path", path).Msg("Token refresh failed")
	}

	c.session.Invalidate(ctx)
	return nil, mccerrors.NewAuthExpired(message)
}

// Refresh exchanges the refresh cookie for a new access token and stores it in
// the session. Concurrent callers share one in-flight refresh.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshToken(ctx)
}

func (c *Client) refreshToken(ctx context.Context) error {
	// The shared refresh must not die with whichever caller started it.
	sharedCtx := context.WithoutCancel(ctx)
	result := c.refreshGroup.DoChan(routeRefresh, func() (any, error) {
		return c.doRefresh(sharedCtx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return res.Err
		}
		accessToken, _ := res.Val.(string)
		if err := c.session.SetToken(ctx, accessToken); err != nil {
			return mccerrors.Wrapf(mccerrors.ErrRefreshFailed, "store refreshed token: %v", err)
		}
		return nil
	}
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+routeRefresh, nil)
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", mccerrors.ErrRefreshFailed, c.transportError(ctx, err))
	}
	defer resp.Body.Close()

	payload, err := readPayload(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", mccerrors.ErrRefreshFailed, err)
	}
	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("%w: %w", mccerrors.ErrRefreshFailed, mccerrors.NewRequestFailed(resp.StatusCode, errorMessage(payload)))
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(payload, &refreshed); err != nil || refreshed.AccessToken == "" {
		return "", mccerrors.Wrapf(mccerrors.ErrRefreshFailed, "response carried no access token")
	}
	log.Debug().Msg("Access token refreshed")
	return refreshed.AccessToken, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, attempt Attempt) (int, Payload, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, mccerrors.Wrapf(mccerrors.ErrInvalidRequest, "encode %s %s body: %v", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, mccerrors.Wrapf(mccerrors.ErrInvalidRequest, "build %s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	requestID := c.setCommonHeaders(req)
	if accessToken := c.session.Token(); accessToken != "" {
		token.OAuth2(accessToken).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("API request failed")
		return 0, nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	payload, err := readPayload(resp.Body)
	if err != nil {
		log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("API response rejected")
		return 0, nil, err
	}
	log.Debug().
		Str("method", method).
		Str("path", path).
		Str("attempt", attempt.String()).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("API request")
	return resp.StatusCode, payload, nil
}

func (c *Client) setCommonHeaders(req *http.Request) string {
	requestID := c.newRequestID()
	req.Header.Set(HeaderRequestID, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return requestID
}

// transportError separates caller cancellation from an unreachable backend.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &mccerrors.UnreachableError{Cause: err}
}

// readPayload buffers a response body. Bodies over maxPayloadBytes are an
// error rather than being cut short and normalized to {}.
func readPayload(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes+1))
	if err != nil {
		return emptyPayload, nil
	}
	if len(data) > maxPayloadBytes {
		return nil, mccerrors.Wrapf(mccerrors.ErrPayloadTooLarge, "response exceeds %d bytes", maxPayloadBytes)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return emptyPayload, nil
	}
	return Payload(data), nil
}

// errorMessage picks the server's "error" field, then "message".
func errorMessage(payload Payload) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, key := range []string{"error", "message"} {
		if msg, ok := body[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Decode unmarshals a payload into T.
func Decode[T any](payload Payload) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

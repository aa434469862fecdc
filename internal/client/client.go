// Package client talks to the vyayam API over HTTP. It implements
// backend.AuthClient and backend.ProfileLookup for the terminal client and
// keeps the current session in the local state store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/session"
)

// SessionKey is where the persisted session lives in local state.
const SessionKey = session.ArtifactPrefix + "session"

// refresh this long before the access token actually expires
const expiryMargin = 10 * time.Second

// State is the local key-value store the client persists its session in.
type State interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Client struct {
	baseURL string
	http    *http.Client
	state   State
	log     logging.Logger
	now     func() time.Time

	listeners backend.Listeners

	mu      sync.Mutex
	session *models.Session
	loaded  bool
}

func New(baseURL string, httpClient *http.Client, state State, log logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		state:   state,
		log:     log.With("component", "client"),
		now:     time.Now,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

var knownCodes = map[backend.AuthErrorCode]bool{
	backend.CodeInvalidCredentials: true,
	backend.CodeEmailNotConfirmed:  true,
	backend.CodeRateLimited:        true,
	backend.CodeUserAlreadyExists:  true,
	backend.CodeWeakPassword:       true,
	backend.CodeInvalidRequest:     true,
	backend.CodeSessionMissing:     true,
}

// do sends a JSON request and decodes the envelope's data into out.
//
// Transport failures and gateway answers (502, 503, 504) wrap
// backend.ErrUnavailable, a 404 without an auth code is backend.ErrNotFound,
// and a known auth code in the envelope becomes a *backend.AuthError. Any
// other failure, a 500 included, is a *StatusError.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", backend.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if unreachable(resp.StatusCode) {
		return fmt.Errorf("%w: %s %s: status %d", backend.ErrUnavailable, method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return backend.ErrNotFound
		}
		if resp.StatusCode >= 400 {
			return &StatusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("%s %s: status %d: undecodable body: %w", method, path, resp.StatusCode, err)
	}

	if !env.Success || resp.StatusCode >= 400 {
		var code backend.AuthErrorCode
		_ = json.Unmarshal(env.Error, &code)
		switch {
		case knownCodes[code]:
			return backend.NewAuthError(code, env.Message)
		case resp.StatusCode == http.StatusNotFound:
			return backend.ErrNotFound
		}
		return &StatusError{Status: resp.StatusCode, Message: env.Message, Data: env.Data}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

// unreachable reports whether status means the API itself could not be
// reached, as opposed to the API answering with a failure.
func unreachable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// StatusError is a non-auth failure answered by the API.
type StatusError struct {
	Status  int
	Message string
	// Data is the envelope payload, e.g. {"redirect_path": "..."} from a guard.
	Data json.RawMessage
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// RedirectPath returns the destination a route guard answered with, if any.
func (e *StatusError) RedirectPath() string {
	var d struct {
		RedirectPath string `json:"redirect_path"`
	}
	_ = json.Unmarshal(e.Data, &d)
	return d.RedirectPath
}

/* ------------------ session bookkeeping ------------------ */

func (c *Client) setSession(ctx context.Context, s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.loaded = true
	c.mu.Unlock()

	b, err := json.Marshal(s)
	if err == nil {
		err = c.state.Set(ctx, SessionKey, b)
	}
	if err != nil {
		c.log.Warn(ctx, "session not persisted", "err", err)
	}
}

func (c *Client) clearSession(ctx context.Context) *models.Session {
	c.mu.Lock()
	prev := c.session
	c.session = nil
	c.loaded = true
	c.mu.Unlock()

	if err := c.state.Delete(ctx, SessionKey); err != nil {
		c.log.Warn(ctx, "persisted session not removed", "err", err)
	}
	return prev
}

// current returns the in-memory session, loading the persisted one on first use.
func (c *Client) current(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	if c.loaded {
		s := c.session
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	b, err := c.state.Get(ctx, SessionKey)
	if err != nil {
		return nil, err
	}
	var s *models.Session
	if b != nil {
		s = &models.Session{}
		if err := json.Unmarshal(b, s); err != nil {
			c.log.Warn(ctx, "discarding unreadable persisted session", "err", err)
			s = nil
		}
	}

	c.mu.Lock()
	if !c.loaded {
		c.session, c.loaded = s, true
	}
	s = c.session
	c.mu.Unlock()
	return s, nil
}

/* ------------------ backend.AuthClient ------------------ */

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.Identity, *models.Session, error) {
	var out struct {
		User    *models.Identity `json:"user"`
		Session *models.Session  `json:"session"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/signup", "", map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     metadata,
	}, &out)
	if err != nil {
		return nil, nil, err
	}
	if out.Session != nil {
		c.setSession(ctx, out.Session)
		c.listeners.Emit(backend.EventSignedIn, out.Session)
	}
	return out.User, out.Session, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var s models.Session
	err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &s)
	if err != nil {
		return nil, err
	}
	c.setSession(ctx, &s)
	c.listeners.Emit(backend.EventSignedIn, &s)
	return &s, nil
}

// SignOut revokes the session on the server and always forgets it locally.
// Without a session there is nothing to revoke and no event is emitted.
func (c *Client) SignOut(ctx context.Context, scope backend.Scope) error {
	s, err := c.current(ctx)
	if err != nil {
		c.log.Warn(ctx, "persisted session unreadable", "err", err)
	}
	if s == nil {
		c.clearSession(ctx)
		return nil
	}

	q := url.Values{"scope": {string(scope)}}
	reqErr := c.do(ctx, http.MethodPost, "/auth/logout?"+q.Encode(), s.AccessToken,
		map[string]string{"refresh_token": s.RefreshToken}, nil)

	c.clearSession(ctx)
	c.listeners.Emit(backend.EventSignedOut, nil)

	// an expired access token means the server already forgot us
	var ae *backend.AuthError
	if errors.As(reqErr, &ae) && ae.Code == backend.CodeSessionMissing {
		return nil
	}
	return reqErr
}

// GetSession returns the current session, refreshing it when the access
// token has expired. A session the server no longer honours is dropped.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	s, err := c.current(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	if !s.Expired(c.now().Add(expiryMargin)) {
		return s, nil
	}
	return c.Refresh(ctx)
}

// Refresh rotates the refresh token and emits TOKEN_REFRESHED.
func (c *Client) Refresh(ctx context.Context) (*models.Session, error) {
	s, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, backend.NewAuthError(backend.CodeSessionMissing, "not signed in")
	}

	var next models.Session
	err = c.do(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": s.RefreshToken}, &next)
	var ae *backend.AuthError
	if errors.As(err, &ae) && ae.Code == backend.CodeSessionMissing {
		c.clearSession(ctx)
		c.listeners.Emit(backend.EventSignedOut, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.setSession(ctx, &next)
	c.listeners.Emit(backend.EventTokenRefreshed, &next)
	return &next, nil
}

func (c *Client) OnAuthStateChange(fn backend.AuthListener) func() {
	return c.listeners.Add(fn)
}

/* ------------------ lookups ------------------ */

func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", backend.NewAuthError(backend.CodeSessionMissing, "not signed in")
	}
	return s.AccessToken, nil
}

// FindByEmail implements backend.ProfileLookup.
func (c *Client) FindByEmail(ctx context.Context, collection backend.Collection, email string) (*backend.ProfileRow, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	path := "/rest/" + url.PathEscape(string(collection)) + "?" + url.Values{"email": {email}}.Encode()
	var row backend.ProfileRow
	if err := c.do(ctx, http.MethodGet, path, token, nil, &row); err != nil {
		return nil, err
	}
	if row.Email == "" {
		return nil, backend.ErrNotFound
	}
	return &row, nil
}

// Fetch GETs an authenticated API path and decodes its data into out.
func (c *Client) Fetch(ctx context.Context, path string, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

// Send is Fetch for writes.
func (c *Client) Send(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, token, body, out)
}

var (
	_ backend.AuthClient    = (*Client)(nil)
	_ backend.ProfileLookup = (*Client)(nil)
)

package wapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/infoblox-mcp/infoblox-mcp-server/pkg/config"
)

const (
	defaultWapiVersion = "v2.13.6"
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3

	// sessionCookieName is the cookie the grid issues on successful
	// Basic authentication. Once held, Basic credentials are no longer
	// attached to requests.
	sessionCookieName = "ibapauth"
)

type sessionState int

const (
	sessionUnauthenticated sessionState = iota
	sessionAuthenticated
)

// Client is a session-managing client for the Infoblox WAPI.
//
// All WAPI traffic funnels through Execute, which lazily authenticates,
// forces JSON responses, replays the request once after a stale-session
// 401, and maps failure statuses to the package error types. A Client is
// safe for concurrent use.
type Client struct {
	baseURL    string
	host       string
	username   string
	password   string
	httpClient *http.Client

	mu      sync.Mutex
	state   sessionState
	cookie  *http.Cookie
	authGen uint64

	// RequestRecorder, when set, observes every WAPI round trip.
	// Used by the server to feed the metrics collector.
	RequestRecorder func(method string, statusCode int)
}

// NewClient builds a Client from the WAPI connection configuration.
// The configuration is validated and normalized here; the Client is
// immutable afterwards.
func NewClient(cfg *config.WapiConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version := cfg.WapiVersion
	if version == "" {
		version = defaultWapiVersion
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	maxRetries := defaultMaxRetries
	if cfg.MaxRetries > 0 {
		maxRetries = cfg.MaxRetries
	}
	verifySSL := cfg.VerifySSL == nil || *cfg.VerifySSL
	return &Client{
		baseURL:  fmt.Sprintf("https://%s/wapi/%s", cfg.GridHost, version),
		host:     cfg.GridHost,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(verifySSL, maxRetries),
		},
	}, nil
}

// GridHost returns the configured grid master host (without scheme or
// WAPI path), usable as an out-of-band DNS query target.
func (c *Client) GridHost() string {
	if host, _, err := net.SplitHostPort(c.host); err == nil {
		return host
	}
	return c.host
}

// Authenticate establishes a WAPI session by fetching the grid object with
// Basic credentials. On success the grid issues an ibapauth cookie which
// replaces Basic auth for subsequent requests.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/grid?_return_type=json", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach grid: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	c.record(http.MethodGet, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthenticationError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			c.cookie = cookie
			break
		}
	}
	// Grids that do not issue a session cookie keep working with Basic
	// credentials attached to every request.
	c.state = sessionAuthenticated
	c.authGen++
	klog.V(2).Infof("Authenticated to grid %s (session cookie: %t)", c.baseURL, c.cookie != nil)
	return nil
}

// ensureAuthenticated authenticates lazily and returns the generation of the
// session used, so a caller observing a 401 can detect whether another
// goroutine already re-authenticated in the meantime.
func (c *Client) ensureAuthenticated(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == sessionUnauthenticated {
		if err := c.authenticateLocked(ctx); err != nil {
			return 0, err
		}
	}
	return c.authGen, nil
}

// reauthenticate refreshes the session after a 401, unless another goroutine
// already did so since generation gen.
func (c *Client) reauthenticate(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authGen != gen {
		return nil
	}
	c.state = sessionUnauthenticated
	c.cookie = nil
	return c.authenticateLocked(ctx)
}

func (c *Client) attachCredentials(req *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
		return
	}
	req.SetBasicAuth(c.username, c.password)
}

func (c *Client) record(method string, statusCode int) {
	if c.RequestRecorder != nil {
		c.RequestRecorder(method, statusCode)
	}
}

// Execute performs a WAPI request and returns the raw JSON response.
//
// path is relative to the versioned WAPI root (e.g. "network",
// "zone_auth", or an object _ref). The _return_type=json parameter is
// always enforced. A 401 triggers exactly one re-authentication followed by
// a replay; a second 401 surfaces as *AuthenticationError. A 2xx response
// that is not valid JSON is wrapped as {"result": "<text>"}.
func (c *Client) Execute(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	gen, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	resp, respBody, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		klog.V(1).Infof("WAPI session expired, re-authenticating")
		if err = c.reauthenticate(ctx, gen); err != nil {
			return nil, err
		}
		resp, respBody, err = c.do(ctx, method, path, query, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthenticationError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, string(respBody))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(respBody) {
		wrapped, _ := json.Marshal(map[string]string{"result": string(respBody)})
		return wrapped, nil
	}
	return respBody, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, []byte, error) {
	requestURL := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if query == nil {
		query = url.Values{}
	}
	query.Set("_return_type", "json")
	requestURL += "?" + query.Encode()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachCredentials(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("WAPI request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read WAPI response: %w", err)
	}
	c.record(method, resp.StatusCode)
	return resp, respBody, nil
}

// Logout terminates the WAPI session. Failures are logged and swallowed:
// the session expires on its own and there is nothing actionable for the
// caller.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	hasSession := c.state == sessionAuthenticated
	c.mu.Unlock()
	if !hasSession {
		return
	}
	if _, err := c.Execute(ctx, http.MethodPost, "logout", nil, nil); err != nil {
		klog.V(1).Infof("WAPI logout failed: %v", err)
	}
	c.mu.Lock()
	c.state = sessionUnauthenticated
	c.cookie = nil
	c.mu.Unlock()
}

package ssoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds the refresh round-trip. A timed-out
// refresh is treated as a failure (fail closed), never retried forever.
const DefaultRefreshTimeout = 10 * time.Second

var (
	// ErrNotAuthenticated is returned when the session holds no tokens.
	ErrNotAuthenticated = errors.New("ssoclient: not authenticated")

	// ErrRefreshFailed is returned when rotating the pair did not
	// succeed; callers should force a full re-login.
	ErrRefreshFailed = errors.New("ssoclient: token refresh failed")
)

// Client wraps an http.Client with bearer-token injection and a single
// transparent refresh-and-retry on 401.
type Client struct {
	// HTTP is the underlying client. Defaults to http.DefaultClient.
	HTTP *http.Client

	// RefreshURL is the resource app's refresh endpoint.
	RefreshURL string

	// RefreshTimeout bounds each refresh call. Zero means
	// DefaultRefreshTimeout.
	RefreshTimeout time.Duration

	// Session is the shared token cache. Required.
	Session *Session

	// OnReauth is invoked with a reason when the session is no longer
	// recoverable and a full re-login is required. Optional.
	OnReauth func(reason string)

	group singleflight.Group
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) refreshTimeout() time.Duration {
	if c.RefreshTimeout > 0 {
		return c.RefreshTimeout
	}
	return DefaultRefreshTimeout
}

// Do sends the request with the current access token attached. On a 401
// it attempts exactly one refresh (shared with any concurrent callers)
// and retries once with the new token. Any further failure gives up and
// triggers the re-login path.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	access := c.Session.AccessToken()
	if access == "" {
		return nil, ErrNotAuthenticated
	}

	resp, err := c.send(req, access)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_ = resp.Body.Close()

	fresh, err := c.Refresh(req.Context())
	if err != nil {
		c.forceReauth("refresh_failed")
		return nil, err
	}

	return c.send(req, fresh)
}

func (c *Client) send(req *http.Request, token string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if clone.GetBody != nil {
		body, err := clone.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+token)
	return c.httpClient().Do(clone)
}

// Refresh exchanges the cached refresh token for a new pair and stores
// it. Concurrent callers share one in-flight exchange: each refresh
// invalidates the previous pair's freshness expectation, so racing
// refreshes would strand in-flight requests holding the older tokens.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.refreshOnce(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) refreshOnce(ctx context.Context) (string, error) {
	refresh := c.Session.RefreshToken()
	if refresh == "" {
		return "", ErrNotAuthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout())
	defer cancel()

	payload, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RefreshURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	c.Session.Store(pair)
	return pair.AccessToken, nil
}

// forceReauth clears the session and notifies the application that a
// full re-login is required.
func (c *Client) forceReauth(reason string) {
	c.Session.Clear()
	if c.OnReauth != nil {
		c.OnReauth(reason)
	}
}

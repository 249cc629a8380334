package ssoclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carbonatlas/geoauth/pkg/ssoclient"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clientSecret = []byte("client-test-secret")

func mintAccess(t *testing.T, ttl time.Duration) string {
	t.Helper()
	signer := &ssotoken.Signer{Secret: clientSecret}
	claims := ssotoken.NewClaims(
		"u1", "alice@example.com", "Alice", true,
		ssotoken.RoleUser, ssotoken.TypeAccess, ttl,
		ssotoken.DefaultIssuer, ssotoken.DefaultAudience,
		time.Now().UTC(),
	)
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

// refreshServer counts refresh calls and returns a fresh pair, with an
// optional delay so concurrent callers overlap.
func refreshServer(t *testing.T, calls *atomic.Int32, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(delay)

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body.RefreshToken)

		_ = json.NewEncoder(w).Encode(ssoclient.TokenPair{
			AccessToken:  mintAccess(t, time.Hour),
			RefreshToken: "rotated-refresh",
			ExpiresIn:    3600,
		})
	}))
}

func TestDoAttachesBearer(t *testing.T) {
	t.Parallel()

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer api.Close()

	session := ssoclient.NewSession()
	session.Store(ssoclient.TokenPair{AccessToken: "aaa.bbb.ccc", RefreshToken: "rrr.sss.ttt"})
	c := &ssoclient.Client{Session: session}

	req, err := http.NewRequest(http.MethodGet, api.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer aaa.bbb.ccc", gotAuth)
}

func TestDoWithoutSessionFails(t *testing.T) {
	t.Parallel()

	c := &ssoclient.Client{Session: ssoclient.NewSession()}
	req, err := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.ErrorIs(t, err, ssoclient.ErrNotAuthenticated)
}

func TestDoRefreshesOnceOn401(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	refresh := refreshServer(t, &refreshCalls, 0)
	defer refresh.Close()

	var apiCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	session := ssoclient.NewSession()
	session.Store(ssoclient.TokenPair{AccessToken: "stale.stale.stale", RefreshToken: "old-refresh"})
	c := &ssoclient.Client{Session: session, RefreshURL: refresh.URL}

	req, err := http.NewRequest(http.MethodGet, api.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), apiCalls.Load())
	assert.Equal(t, "rotated-refresh", session.RefreshToken())
}

func TestDoGivesUpAfterFailedRefresh(t *testing.T) {
	t.Parallel()

	refresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer refresh.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer api.Close()

	var reauthReason string
	session := ssoclient.NewSession()
	session.Store(ssoclient.TokenPair{AccessToken: "a.b.c", RefreshToken: "r.s.t"})
	c := &ssoclient.Client{
		Session:    session,
		RefreshURL: refresh.URL,
		OnReauth:   func(reason string) { reauthReason = reason },
	}

	req, err := http.NewRequest(http.MethodGet, api.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.ErrorIs(t, err, ssoclient.ErrRefreshFailed)

	// Hard failure clears the session and forces re-login.
	assert.False(t, session.Authenticated())
	assert.Equal(t, "refresh_failed", reauthReason)
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	refresh := refreshServer(t, &refreshCalls, 150*time.Millisecond)
	defer refresh.Close()

	session := ssoclient.NewSession()
	session.Store(ssoclient.TokenPair{AccessToken: "a.b.c", RefreshToken: "old-refresh"})
	c := &ssoclient.Client{Session: session, RefreshURL: refresh.URL}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load())
}

func TestRefresherProactiveRotation(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	refresh := refreshServer(t, &refreshCalls, 0)
	defer refresh.Close()

	session := ssoclient.NewSession()
	c := &ssoclient.Client{Session: session, RefreshURL: refresh.URL}
	r := &ssoclient.Refresher{Client: c}

	t.Run("fresh token untouched", func(t *testing.T) {
		session.Store(ssoclient.TokenPair{
			AccessToken:  mintAccess(t, time.Hour),
			RefreshToken: "refresh-1",
		})
		r.CheckNow(context.Background())
		assert.Equal(t, int32(0), refreshCalls.Load())
	})

	t.Run("near-expiry token rotated", func(t *testing.T) {
		session.Store(ssoclient.TokenPair{
			AccessToken:  mintAccess(t, 2*time.Minute),
			RefreshToken: "refresh-2",
		})
		r.CheckNow(context.Background())
		assert.Equal(t, int32(1), refreshCalls.Load())
		assert.Equal(t, "rotated-refresh", session.RefreshToken())
	})

	t.Run("logged out session skipped", func(t *testing.T) {
		session.Clear()
		r.CheckNow(context.Background())
		assert.Equal(t, int32(1), refreshCalls.Load())
	})
}

func TestRefresherUndecodableTokenForcesReauth(t *testing.T) {
	t.Parallel()

	var reauthReason string
	session := ssoclient.NewSession()
	session.Store(ssoclient.TokenPair{AccessToken: "garbage", RefreshToken: "r"})
	c := &ssoclient.Client{
		Session:  session,
		OnReauth: func(reason string) { reauthReason = reason },
	}

	r := &ssoclient.Refresher{Client: c}
	r.CheckNow(context.Background())

	assert.False(t, session.Authenticated())
	assert.Equal(t, "invalid_token", reauthReason)
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonatlas/geoauth/internal/identity"
	"github.com/carbonatlas/geoauth/internal/issuer/service"
	"github.com/carbonatlas/geoauth/internal/store"
	"github.com/carbonatlas/geoauth/pkg/slogx"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

var testSecret = []byte("issuer-http-test-secret")

type fakeStore struct {
	identities *fakeIdentities
}

func (s *fakeStore) Identities() store.Identities   { return s.identities }
func (s *fakeStore) ApplyMigrations() error         { return nil }
func (s *fakeStore) Close() error                   { return nil }
func (s *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeIdentities struct {
	bySubject map[string]identity.Identity
}

func (f *fakeIdentities) GetBySubject(_ context.Context, subjectID string) (identity.Identity, error) {
	id, ok := f.bySubject[subjectID]
	if !ok {
		return identity.Identity{}, store.ErrNotFound
	}
	return id, nil
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string) (identity.Identity, error) {
	for _, id := range f.bySubject {
		if id.Email == email {
			return id, nil
		}
	}
	return identity.Identity{}, store.ErrNotFound
}

func (f *fakeIdentities) Create(_ context.Context, id identity.Identity) error {
	f.bySubject[id.SubjectID] = id
	return nil
}

func (f *fakeIdentities) SetEmailVerified(_ context.Context, subjectID string, verified bool) error {
	id, ok := f.bySubject[subjectID]
	if !ok {
		return store.ErrNotFound
	}
	id.EmailVerified = verified
	f.bySubject[subjectID] = id
	return nil
}

func newTestRouter(t *testing.T, idents ...identity.Identity) (*Router, *fakeStore) {
	t.Helper()

	st := &fakeStore{identities: &fakeIdentities{bySubject: map[string]identity.Identity{}}}
	for _, id := range idents {
		st.identities.bySubject[id.SubjectID] = id
	}

	r := NewRouter(RouterConfig{
		Secret:          testSecret,
		Issuer:          ssotoken.DefaultIssuer,
		IssuerBaseURL:   "http://localhost:3000",
		ResourceBaseURL: "http://localhost:3001",
		SessionTTL:      24 * time.Hour,
	}, st, slogx.New(slogx.Config{Service: "issuer-test", Level: "error"}))

	r.TokenService = &service.TokenService{
		Secret:     testSecret,
		Store:      st,
		Issuer:     ssotoken.DefaultIssuer,
		Audience:   ssotoken.DefaultAudience,
		AccessTTL:  ssotoken.DefaultAccessTokenTTL,
		RefreshTTL: ssotoken.DefaultRefreshTokenTTL,
	}
	r.ApplyRoutes()
	return r, st
}

func verifiedIdentity() identity.Identity {
	return identity.Identity{
		SubjectID:     "sub-1",
		Email:         "ada@example.com",
		DisplayName:   "Ada",
		EmailVerified: true,
		Role:          ssotoken.RoleUser,
	}
}

func sessionCookieFor(t *testing.T, r *Router, subjectID string) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, r.sessions.Establish(rec, subjectID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestAuthenticate(t *testing.T) {
	t.Run("get renders login form", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())

		req := httptest.NewRequest(http.MethodGet, "/auth/authenticate?redirect=%2Fdashboard&reason=token_expired", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `name="redirect" value="/dashboard"`)
		assert.Contains(t, body, "session expired")
	})

	t.Run("post establishes session and redirects to bridge", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())

		form := url.Values{"email": {"ada@example.com"}, "redirect": {"/dashboard"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/authenticate", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/bridge?redirect=%2Fdashboard", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("post with unknown email re-renders form", func(t *testing.T) {
		r, _ := newTestRouter(t)

		form := url.Values{"email": {"nobody@example.com"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/authenticate", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "No account found")
		assert.Empty(t, rec.Result().Cookies())
	})
}

func TestBridge(t *testing.T) {
	t.Run("anonymous browser is sent to login", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())

		req := httptest.NewRequest(http.MethodGet, "/auth/bridge?redirect=%2Fdashboard", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/authenticate?redirect=%2Fdashboard", rec.Header().Get("Location"))
	})

	t.Run("verified user is handed off with a token pair", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		cookie := sessionCookieFor(t, r, "sub-1")

		req := httptest.NewRequest(http.MethodGet, "/auth/bridge?redirect=%2Fdashboard", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "localhost:3001", loc.Host)
		assert.Equal(t, "/dashboard", loc.Path)

		claims, err := ssotoken.Verify(loc.Query().Get("token"), testSecret, ssotoken.VerifyOptions{
			Issuer:    ssotoken.DefaultIssuer,
			Audience:  ssotoken.DefaultAudience,
			TokenType: ssotoken.TypeAccess,
		})
		require.NoError(t, err)
		assert.Equal(t, "sub-1", claims.Subject)

		_, err = ssotoken.Verify(loc.Query().Get("refresh_token"), testSecret, ssotoken.VerifyOptions{
			Issuer:    ssotoken.DefaultIssuer,
			Audience:  ssotoken.DefaultAudience,
			TokenType: ssotoken.TypeRefresh,
		})
		require.NoError(t, err)
	})

	t.Run("unverified user is sent to the verify page", func(t *testing.T) {
		unverified := verifiedIdentity()
		unverified.EmailVerified = false
		r, _ := newTestRouter(t, unverified)
		cookie := sessionCookieFor(t, r, "sub-1")

		req := httptest.NewRequest(http.MethodGet, "/auth/bridge", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/verify", rec.Header().Get("Location"))
	})

	t.Run("absolute redirect target is replaced with root", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		cookie := sessionCookieFor(t, r, "sub-1")

		req := httptest.NewRequest(http.MethodGet, "/auth/bridge?redirect=https%3A%2F%2Fevil.example", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "localhost:3001", loc.Host)
		assert.Equal(t, "/", loc.Path)
	})

	t.Run("stale session for a deleted account forces re-login", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		cookie := sessionCookieFor(t, r, "sub-gone")

		req := httptest.NewRequest(http.MethodGet, "/auth/bridge", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "reason=invalid_token")
	})
}

func TestGeomapToken(t *testing.T) {
	t.Run("returns pair and user summary", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		cookie := sessionCookieFor(t, r, "sub-1")

		req := httptest.NewRequest(http.MethodPost, "/api/auth/geomap-token?redirect=%2Fdashboard", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp tokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, 3600, resp.ExpiresIn)
		assert.Contains(t, resp.RedirectURL, "http://localhost:3001/dashboard?")
		assert.Equal(t, "sub-1", resp.User.ID)
		assert.Equal(t, []ssotoken.Permission{ssotoken.PermissionRead, ssotoken.PermissionEdit}, resp.User.Permissions)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})

	t.Run("rejects anonymous requests", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/geomap-token", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	pairFor := func(t *testing.T, r *Router) service.TokenPair {
		t.Helper()
		pair, err := r.TokenService.IssuePair(verifiedIdentity())
		require.NoError(t, err)
		return pair
	}

	post := func(r *Router, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("rotates a valid refresh token", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		pair := pairFor(t, r)

		body, _ := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
		rec := post(r, body)

		require.Equal(t, http.StatusOK, rec.Code)
		var rotated service.TokenPair
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
		assert.NotEmpty(t, rotated.AccessToken)
		assert.NotEmpty(t, rotated.RefreshToken)
	})

	t.Run("missing token is a 400", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		rec := post(r, []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("garbage body is a 400", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		rec := post(r, []byte(`not json`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid token is a 401", func(t *testing.T) {
		r, _ := newTestRouter(t, verifiedIdentity())
		body, _ := json.Marshal(refreshRequest{RefreshToken: "bogus"})
		rec := post(r, body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted account is a 404", func(t *testing.T) {
		r, st := newTestRouter(t, verifiedIdentity())
		pair := pairFor(t, r)
		delete(st.identities.bySubject, "sub-1")

		body, _ := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
		rec := post(r, body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSignout(t *testing.T) {
	r, _ := newTestRouter(t, verifiedIdentity())
	cookie := sessionCookieFor(t, r, "sub-1")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/signout?callbackUrl=%2Fauth%2Fauthenticate", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/authenticate", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"familyphotos/internal/models"
)

// followLink opens an emailed link against the test server
func (s *testServer) followLink(t *testing.T, link string) *httptest.ResponseRecorder {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return s.serve(httptest.NewRequest(http.MethodGet, u.RequestURI(), nil))
}

func TestMagicLinkDoesNotRevealMembership(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t, "alice@example.com", models.StatusActive)

	member := srv.do(t, nil, http.MethodPost, "/auth/magic-link", map[string]string{"email": "alice@example.com"})
	stranger := srv.do(t, nil, http.MethodPost, "/auth/magic-link", map[string]string{"email": "stranger@example.com"})

	assert.Equal(t, http.StatusAccepted, member.Code)
	assert.Equal(t, member.Code, stranger.Code)
	assert.Equal(t, member.Body.String(), stranger.Body.String())
	assert.Len(t, srv.mailer.logins, 1)

	rec := srv.do(t, nil, http.MethodPost, "/auth/magic-link", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackStartsSessionOnce(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t, "alice@example.com", models.StatusActive)

	srv.do(t, nil, http.MethodPost, "/auth/magic-link", map[string]string{"email": "alice@example.com"})
	link := srv.mailer.lastLogin(t)

	rec := srv.followLink(t, link)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// Links are single use
	rec = srv.followLink(t, link)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=invalid_link", rec.Header().Get("Location"))
	assert.Nil(t, sessionCookie(rec))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(cookie)
	rec = srv.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody[sessionResponse](t, rec)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.True(t, session.IsMember)
	assert.NotEmpty(t, session.CSRFToken)
	assert.False(t, session.GoogleAuth)
}

func TestCallbackKeepsInvitationOnFailure(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.serve(httptest.NewRequest(http.MethodGet, "/auth/callback?code=bogus&invitation=tok123", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=invalid_link&invitation=tok123", rec.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	c := srv.login(t, "alice@example.com", models.StatusActive)

	// A cross-site form post carries the cookie but not the token
	forged := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	forged.AddCookie(c.cookie)
	rec := srv.serve(forged)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrInvalidCSRFToken, errorMessage(t, rec))
	rec = srv.do(t, c, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code, "session must survive a rejected logout")

	rec = srv.do(t, c, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	rec = srv.do(t, c, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out without a session is harmless
	rec = srv.do(t, nil, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionForNonMember(t *testing.T) {
	srv := newTestServer(t)
	c := srv.login(t, "outsider@example.com", "")

	rec := srv.do(t, c, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody[sessionResponse](t, rec)
	assert.False(t, session.IsMember)
	assert.Nil(t, session.Status)
}

func fakeGoogle(t *testing.T, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "google-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "1234",
			"email":          "Carol@Example.com",
			"verified_email": verified,
			"name":           "Carol",
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func withGoogle(server *httptest.Server) serverOption {
	return func(rt *Router) {
		rt.Auth.google = &GoogleProvider{
			Config: &oauth2.Config{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				Endpoint: oauth2.Endpoint{
					AuthURL:  server.URL + "/auth",
					TokenURL: server.URL + "/token",
				},
				Scopes: []string{"openid", "email", "profile"},
			},
			UserInfoURL: server.URL + "/userinfo",
		}
	}
}

// startGoogle runs the start step and returns the state and the cookies it set
func startGoogle(t *testing.T, srv *testServer, query string) (string, []*http.Cookie) {
	t.Helper()
	rec := srv.serve(httptest.NewRequest(http.MethodGet, "/auth/google/start"+query, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http://photos.test/auth/google/callback", location.Query().Get("redirect_uri"))
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state, rec.Result().Cookies()
}

func TestGoogleSignInAcceptsInvitation(t *testing.T) {
	srv := newTestServer(t, withGoogle(fakeGoogle(t, true)))
	alice := srv.login(t, "alice@example.com", models.StatusActive)

	rec := srv.do(t, alice, http.MethodPost, "/api/family/invite", map[string]string{"email": "carol@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	state, cookies := startGoogle(t, srv, "?invitation=tok")
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
	}
	assert.True(t, names[oauthStateCookie])
	assert.True(t, names[oauthInvitationCookie])

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = srv.serve(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(cookie)
	session := decodeBody[sessionResponse](t, srv.serve(req))
	assert.Equal(t, "carol@example.com", session.Email)
	assert.True(t, session.IsMember)
	assert.True(t, session.GoogleAuth)
}

func TestGoogleSignInFailures(t *testing.T) {
	t.Run("state mismatch", func(t *testing.T) {
		srv := newTestServer(t, withGoogle(fakeGoogle(t, true)))
		_, cookies := startGoogle(t, srv, "")

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=other", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := srv.serve(req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?error=oauth_failed", rec.Header().Get("Location"))
		assert.Nil(t, sessionCookie(rec))
	})

	t.Run("unverified email", func(t *testing.T) {
		srv := newTestServer(t, withGoogle(fakeGoogle(t, false)))
		state, cookies := startGoogle(t, srv, "")

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := srv.serve(req)
		assert.Equal(t, "/?error=oauth_failed", rec.Header().Get("Location"))
		assert.Nil(t, sessionCookie(rec))
	})

	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t)
		rec := srv.serve(httptest.NewRequest(http.MethodGet, "/auth/google/start", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

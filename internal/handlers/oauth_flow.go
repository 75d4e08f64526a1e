package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"familyphotos/internal/credentials"
	"familyphotos/internal/security"
)

type oauthUserInfo struct {
	Subject  string
	Email    string
	Name     string
	Verified bool
}

// StartGoogle initiates the Google OAuth flow
func (h *AuthHandler) StartGoogle(w http.ResponseWriter, r *http.Request) {
	if !h.google.configured() {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "Google sign-in is not configured"})
		return
	}

	state, err := credentials.GenerateState()
	if err != nil {
		respondWithError(w, h.logger, r, fmt.Errorf("failed to generate oauth state: %w", err))
		return
	}

	h.setTempCookie(w, r, oauthStateCookie, state, oauthCookieTTL)
	if invitation := r.URL.Query().Get("invitation"); invitation != "" {
		h.setTempCookie(w, r, oauthInvitationCookie, invitation, oauthCookieTTL)
	}

	config := *h.google.Config
	config.RedirectURL = h.oauthRedirectURL(r)

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback handles the Google OAuth callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.configured() {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "Google sign-in is not configured"})
		return
	}

	invitation := ""
	if cookie, err := r.Cookie(oauthInvitationCookie); err == nil {
		invitation = cookie.Value
	}

	// fail clears the temporary OAuth cookies and sends the browser home
	fail := func(reason string, err error) {
		h.logger.Info("google sign-in failed", zap.String("reason", reason), zap.Error(err))
		h.clearTempCookie(w, r, oauthStateCookie)
		h.clearTempCookie(w, r, oauthInvitationCookie)
		http.Redirect(w, r, failureRedirect("oauth_failed", invitation), http.StatusSeeOther)
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		fail("missing authorization code", nil)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		fail("invalid state", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *h.google.Config
	config.RedirectURL = h.oauthRedirectURL(r)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		fail("code exchange", err)
		return
	}

	userInfo, err := h.fetchGoogleUser(ctx, token)
	if err != nil {
		fail("user info", err)
		return
	}

	signIn, err := h.authService.OAuthLogin(r.Context(), userInfo.Email, userInfo.Verified, userInfo.Name)
	if err != nil {
		fail("login", err)
		return
	}

	h.clearTempCookie(w, r, oauthStateCookie)
	h.clearTempCookie(w, r, oauthInvitationCookie)

	if err := h.startSession(w, r, signIn); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(h.google.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse Google user info: %w", err)
	}

	return oauthUserInfo{
		Subject:  payload.ID,
		Email:    payload.Email,
		Name:     payload.Name,
		Verified: payload.VerifiedEmail,
	}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request) string {
	baseURL := strings.TrimSpace(h.redirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return strings.TrimRight(baseURL, "/") + "/auth/google/callback"
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

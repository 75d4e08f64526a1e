package handlers

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"familyphotos/internal/apperr"
	"familyphotos/internal/security"
	"familyphotos/internal/service"
)

// AuthHandler handles sign-in and sign-out
type AuthHandler struct {
	authService     *service.AuthService
	familyService   *service.FamilyService
	codec           *security.SessionCodec
	csrf            *security.CSRFGenerator
	google          *GoogleProvider
	redirectBaseURL string
	logger          *zap.Logger
}

// GoogleProvider is the OAuth configuration for Google sign-in. A nil
// provider, or one without credentials, disables the Google routes.
type GoogleProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

func (p *GoogleProvider) configured() bool {
	return p != nil && p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, familyService *service.FamilyService, codec *security.SessionCodec,
	csrf *security.CSRFGenerator, google *GoogleProvider, redirectBaseURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		familyService:   familyService,
		codec:           codec,
		csrf:            csrf,
		google:          google,
		redirectBaseURL: redirectBaseURL,
		logger:          logger,
	}
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// RequestMagicLink emails a sign-in link. The response is identical whether
// or not the email belongs to the family.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	if err := h.authService.RequestLoginLink(r.Context(), req.Email); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "If this email belongs to the family, a sign-in link is on its way",
	})
}

// Callback redeems the code from an emailed link and starts a session
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	invitation := query.Get("invitation")

	signIn, err := h.authService.ExchangeCode(r.Context(), query.Get("code"))
	if err != nil {
		h.logger.Info("sign-in link rejected", zap.Error(err))
		http.Redirect(w, r, failureRedirect("invalid_link", invitation), http.StatusSeeOther)
		return
	}

	if err := h.startSession(w, r, signIn); err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the current session. A request carrying a session cookie must
// also carry its CSRF token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := h.codec.SessionID(r); sessionID != "" {
		if !h.csrf.ValidateToken(sessionID, r.Header.Get(security.CSRFHeader)) {
			respondWithError(w, h.logger, r, apperr.Forbidden(ErrInvalidCSRFToken))
			return
		}
		if err := h.authService.Logout(r.Context(), sessionID); err != nil {
			respondWithError(w, h.logger, r, err)
			return
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

type sessionResponse struct {
	UserID     int64   `json:"user_id"`
	Email      string  `json:"email"`
	IsMember   bool    `json:"is_member"`
	Status     *string `json:"membership_status,omitempty"`
	MemberID   *int64  `json:"member_id,omitempty"`
	CSRFToken  string  `json:"csrf_token"`
	GoogleAuth bool    `json:"google_auth"`
}

// Session describes the signed-in identity and whether it passes the access gate
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentityFromContext(r.Context())
	sessionID, _ := r.Context().Value(SessionContextKey).(string)

	token, err := h.csrf.GenerateToken(sessionID)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	member, err := h.familyService.Membership(r.Context(), identity.ID)
	if err != nil {
		respondWithError(w, h.logger, r, err)
		return
	}

	resp := sessionResponse{
		UserID:     identity.ID,
		Email:      identity.Email,
		CSRFToken:  token,
		GoogleAuth: h.google.configured(),
	}
	if member != nil {
		status := string(member.Status)
		resp.Status = &status
		resp.MemberID = &member.ID
		resp.IsMember = member.IsActive()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, signIn *service.SignIn) error {
	value, err := h.codec.Encode(signIn.Session.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookieName, value, signIn.Session.ExpiresAt))
	return nil
}

// failureRedirect sends the browser home with an error code, keeping the
// invitation token so the page can show who invited them.
func failureRedirect(code, invitation string) string {
	q := url.Values{"error": {code}}
	if invitation != "" {
		q.Set("invitation", invitation)
	}
	return "/?" + q.Encode()
}

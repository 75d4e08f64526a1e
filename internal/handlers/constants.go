package handlers

import "time"

const (
	ErrInvalidJSON      = "Invalid JSON body"
	ErrInvalidFormData  = "Invalid form data"
	ErrMissingFile      = "A file is required"
	ErrInvalidCSRFToken = "Invalid CSRF token"
	ErrTooManyRequests  = "Too many requests, please try again later"

	maxJSONBody = 64 << 10 // 64KB

	// multipart overhead allowed above the configured upload limit
	multipartSlack = 1 << 20

	oauthStateCookie      = "oauth_state"
	oauthInvitationCookie = "oauth_invitation"
	oauthCookieTTL        = 10 * time.Minute
)

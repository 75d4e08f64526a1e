package security

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie that carries the encoded session ID
const SessionCookieName = "fp_session"

// SessionCodec signs and encrypts session IDs for the session cookie
type SessionCodec struct {
	sc *securecookie.SecureCookie
}

// NewSessionCodec creates a codec from a 32 or 64 byte hash key and a 32 byte block key
func NewSessionCodec(hashKey, blockKey []byte, maxAge time.Duration) *SessionCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &SessionCodec{sc: sc}
}

// Encode returns the cookie value for sessionID
func (c *SessionCodec) Encode(sessionID string) (string, error) {
	value, err := c.sc.Encode(SessionCookieName, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to encode session cookie: %w", err)
	}
	return value, nil
}

// Decode returns the session ID carried by a cookie value. Tampered, foreign
// and expired values are rejected.
func (c *SessionCodec) Decode(value string) (string, error) {
	var sessionID string
	if err := c.sc.Decode(SessionCookieName, value, &sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

// SessionID reads and decodes the session cookie from r. It returns "" when
// the cookie is missing or invalid.
func (c *SessionCodec) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	id, err := c.Decode(cookie.Value)
	if err != nil {
		return ""
	}
	return id
}

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	// Direct TLS connection
	if r.TLS != nil {
		return true
	}

	// Behind reverse proxy (nginx, Caddy, load balancer, etc.)
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}

	return r.URL.Scheme == "https"
}

// CreateSessionCookie creates a session cookie with proper security flags
// The Secure flag is automatically set based on the request scheme (HTTPS detection)
func CreateSessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateDeleteCookie creates a cookie for deletion with proper security flags
func CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// CSRFHeader is the request header that carries the token on mutating requests
const CSRFHeader = "X-CSRF-Token"

// clockSkew is how far in the future an issue time may lie
const clockSkew = time.Minute

var errNoSession = errors.New("session ID is required")

// CSRFGenerator issues tokens of the form "<issued>.<mac>", where issued is a
// unix timestamp in base 36 and mac is HMAC-SHA256 over the session ID and the
// issue time. Any replica holding the key can check a token.
type CSRFGenerator struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCSRFGenerator creates a generator whose tokens stay valid for maxAge
func NewCSRFGenerator(secret []byte, maxAge time.Duration) *CSRFGenerator {
	return &CSRFGenerator{secret: secret, maxAge: maxAge, now: time.Now}
}

// GenerateToken issues a token bound to sessionID
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errNoSession
	}
	issued := strconv.FormatInt(g.now().Unix(), 36)
	return issued + "." + g.sign(sessionID, issued), nil
}

// ValidateToken reports whether token was issued for sessionID and has not expired
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	issued, mac, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	if !hmac.Equal([]byte(mac), []byte(g.sign(sessionID, issued))) {
		return false
	}

	secs, err := strconv.ParseInt(issued, 36, 64)
	if err != nil {
		return false
	}
	age := g.now().Sub(time.Unix(secs, 0))
	return age >= -clockSkew && age <= g.maxAge
}

func (g *CSRFGenerator) sign(sessionID, issued string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(sessionID))
	mac.Write([]byte{0})
	mac.Write([]byte(issued))
	return hex.EncodeToString(mac.Sum(nil))
}

package credentials

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"familyphotos/internal/models"
)

const magicLinkIssuer = "familyphotos"

var (
	ErrInvalidCode = errors.New("invalid login code")
	ErrExpiredCode = errors.New("login code has expired")
)

// MagicLinkClaims is the payload of an emailed login code
type MagicLinkClaims struct {
	Email   string                  `json:"email"`
	Purpose models.LoginCodePurpose `json:"purpose"`
	jwt.RegisteredClaims
}

// IssuedCode is a signed code together with the fields stored server side
type IssuedCode struct {
	Code      string
	ID        string
	Email     string
	Purpose   models.LoginCodePurpose
	ExpiresAt time.Time
}

// MagicLinkSigner issues and verifies HS256 login codes
type MagicLinkSigner struct {
	key []byte
	now func() time.Time
}

// NewMagicLinkSigner creates a signer using key
func NewMagicLinkSigner(key []byte) *MagicLinkSigner {
	return &MagicLinkSigner{key: key, now: time.Now}
}

// Issue signs a new code for email that expires after ttl
func (s *MagicLinkSigner) Issue(email string, purpose models.LoginCodePurpose, ttl time.Duration) (*IssuedCode, error) {
	now := s.now().UTC()
	claims := MagicLinkClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    magicLinkIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign login code: %w", err)
	}

	return &IssuedCode{
		Code:      signed,
		ID:        claims.ID,
		Email:     email,
		Purpose:   purpose,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the signature and expiry of code and returns its claims.
// One-time use is enforced by the caller against the stored code ID.
func (s *MagicLinkSigner) Verify(code string) (*MagicLinkClaims, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}

	token, err := jwt.ParseWithClaims(code, &MagicLinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	},
		jwt.WithIssuer(magicLinkIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCode
		}
		return nil, ErrInvalidCode
	}

	claims, ok := token.Claims.(*MagicLinkClaims)
	if !ok || !token.Valid || claims.ID == "" || claims.Email == "" {
		return nil, ErrInvalidCode
	}
	return claims, nil
}

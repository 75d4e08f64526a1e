package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"familyphotos/internal/apperr"
	"familyphotos/internal/credentials"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/validation"
)

// invalid turns a validation failure into a user-facing error
func invalid(err error) error {
	var ve validation.ValidationError
	if errors.As(err, &ve) {
		return apperr.Validation(ve.Message).Wrap(err)
	}
	return apperr.Validation(err.Error())
}

// internalErr wraps err as an internal failure unless it already carries a kind,
// such as the gate's Unauthorized and AccessDenied.
func internalErr(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(fmt.Errorf("failed to %s: %w", op, err))
}

// LinkIssuer creates one-time sign-in links backed by a stored login code
type LinkIssuer struct {
	signer  *credentials.MagicLinkSigner
	users   *repository.UserRepository
	baseURL string
}

// NewLinkIssuer creates a link issuer that points links at baseURL
func NewLinkIssuer(signer *credentials.MagicLinkSigner, users *repository.UserRepository, baseURL string) *LinkIssuer {
	return &LinkIssuer{signer: signer, users: users, baseURL: baseURL}
}

// Issue stores a new code for email and returns the callback link carrying it.
// Extra query values are appended to the link unchanged.
func (l *LinkIssuer) Issue(ctx context.Context, email string, purpose models.LoginCodePurpose, ttl time.Duration, extra url.Values) (string, error) {
	issued, err := l.signer.Issue(email, purpose, ttl)
	if err != nil {
		return "", err
	}

	code := &models.LoginCode{
		ID:        issued.ID,
		Email:     issued.Email,
		Purpose:   issued.Purpose,
		ExpiresAt: issued.ExpiresAt,
	}
	if err := l.users.CreateLoginCode(ctx, code); err != nil {
		return "", err
	}

	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("code", issued.Code)
	return l.baseURL + "/auth/callback?" + q.Encode(), nil
}

package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/credentials"
	"familyphotos/internal/metrics"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/validation"
)

var (
	ErrInvalidLoginLink = apperr.Unauthorized("This sign-in link is invalid or has expired")
	ErrSessionNotFound  = apperr.Unauthorized("Session not found")
	ErrSessionExpired   = apperr.Unauthorized("Session expired")
	ErrEmailNotVerified = apperr.Unauthorized("Your Google account email is not verified")
)

// SignIn is the result of a successful sign-in
type SignIn struct {
	Session  *models.Session
	Identity *models.Identity
	// Member is the membership row for the email, nil when there is none
	Member *models.FamilyMember
}

// AuthService handles passwordless sign-in and sessions
type AuthService struct {
	users           *repository.UserRepository
	members         *repository.MemberRepository
	family          *FamilyService
	signer          *credentials.MagicLinkSigner
	links           *LinkIssuer
	mailer          Mailer
	sessionDuration time.Duration
	magicLinkTTL    time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, members *repository.MemberRepository, family *FamilyService,
	signer *credentials.MagicLinkSigner, links *LinkIssuer, mailer Mailer,
	sessionDuration, magicLinkTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:           users,
		members:         members,
		family:          family,
		signer:          signer,
		links:           links,
		mailer:          mailer,
		sessionDuration: sessionDuration,
		magicLinkTTL:    magicLinkTTL,
		logger:          logger,
		now:             time.Now,
	}
}

// RequestLoginLink emails a sign-in link to invited and active members. The
// result is the same for every well-formed email so callers cannot probe the
// membership list.
func (s *AuthService) RequestLoginLink(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return invalid(err)
	}

	member, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to look up member for login link", zap.Error(err))
		return nil
	}
	if member == nil || (member.Status != models.StatusInvited && member.Status != models.StatusActive) {
		s.logger.Debug("login link not sent: email is not an invited or active member")
		return nil
	}

	link, err := s.links.Issue(ctx, email, models.PurposeLogin, s.magicLinkTTL, nil)
	if err != nil {
		s.logger.Error("failed to issue login link", zap.Int64("member_id", member.ID), zap.Error(err))
		return nil
	}
	if err := s.mailer.SendLoginLink(ctx, email, link, s.magicLinkTTL); err != nil {
		s.logger.Error("failed to send login link", zap.Int64("member_id", member.ID), zap.Error(err))
	}
	return nil
}

// ExchangeCode redeems a one-time code from an emailed link for a session
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*SignIn, error) {
	claims, err := s.signer.Verify(strings.TrimSpace(code))
	if err != nil {
		return nil, ErrInvalidLoginLink.Wrap(err)
	}

	consumed, err := s.users.ConsumeLoginCode(ctx, claims.ID, claims.Email, s.now())
	if err != nil {
		return nil, internalErr("consume login code", err)
	}
	if !consumed {
		return nil, ErrInvalidLoginLink
	}

	return s.signIn(ctx, claims.Email, nil)
}

// OAuthLogin signs in an identity asserted by an external provider. Only
// verified provider emails are accepted.
func (s *AuthService) OAuthLogin(ctx context.Context, email string, verified bool, name string) (*SignIn, error) {
	if !verified {
		return nil, ErrEmailNotVerified
	}
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid(err)
	}

	var fullName *string
	if name = strings.TrimSpace(name); name != "" {
		fullName = &name
	}
	return s.signIn(ctx, email, fullName)
}

func (s *AuthService) signIn(ctx context.Context, email string, fullName *string) (*SignIn, error) {
	identity, err := s.users.GetOrCreateByEmail(ctx, email)
	if err != nil {
		return nil, internalErr("load identity", err)
	}
	if err := s.users.TouchSignIn(ctx, identity.ID); err != nil {
		s.logger.Warn("failed to record sign-in time", zap.Int64("user_id", identity.ID), zap.Error(err))
	}

	member, err := s.family.AcceptOnLogin(ctx, email, identity.ID, fullName)
	if err != nil {
		return nil, err
	}

	session, err := s.users.CreateSession(ctx, identity.ID, s.now().Add(s.sessionDuration))
	if err != nil {
		return nil, internalErr("create session", err)
	}

	s.logger.Info("user signed in", zap.Int64("user_id", identity.ID), zap.Bool("member", member != nil))
	return &SignIn{Session: session, Identity: identity, Member: member}, nil
}

// ValidateSession checks if a session is valid and returns the associated identity
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.Identity, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.users.GetSession(ctx, sessionID)
	if err != nil {
		return nil, internalErr("get session", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if !s.now().Before(session.ExpiresAt) {
		if err := s.users.DeleteSession(ctx, sessionID); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, ErrSessionExpired
	}

	identity, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, internalErr("get identity", err)
	}
	if identity == nil {
		return nil, ErrSessionNotFound
	}
	return identity, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.users.DeleteSession(ctx, sessionID); err != nil {
		return internalErr("logout", err)
	}
	return nil
}

// CleanupExpired removes expired sessions and spent login codes
func (s *AuthService) CleanupExpired(ctx context.Context) error {
	cutoff := s.now()

	sessions, err := s.users.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return internalErr("cleanup sessions", err)
	}
	metrics.RecordCleanup("sessions", sessions)

	codes, err := s.users.DeleteExpiredLoginCodes(ctx, cutoff)
	if err != nil {
		return internalErr("cleanup login codes", err)
	}
	metrics.RecordCleanup("login_codes", codes)

	if sessions > 0 || codes > 0 {
		s.logger.Info("expired credentials removed", zap.Int64("sessions", sessions), zap.Int64("login_codes", codes))
	}
	return nil
}

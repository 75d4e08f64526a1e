package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/credentials"
	"familyphotos/internal/database"
	"familyphotos/internal/gate"
	"familyphotos/internal/metrics"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/validation"
)

var (
	ErrAlreadyInvited      = apperr.Conflict("This email has already been invited")
	ErrAlreadyActive       = apperr.Conflict("This email already belongs to an active family member")
	ErrMemberExists        = apperr.Conflict("This email is already on the family list")
	ErrMemberNotFound      = apperr.NotFound("Family member not found")
	ErrInvitationNotFound  = apperr.NotFound("Invitation not found")
	ErrCannotRemoveSelf    = apperr.Forbidden("You cannot remove yourself from the family")
	ErrCannotChangeSelf    = apperr.Forbidden("You cannot change your own membership")
	ErrNotActiveMember     = apperr.Conflict("Only active members can be deactivated")
	ErrNotInactiveMember   = apperr.Conflict("Only deactivated members can be reactivated")
	ErrIdentityAlreadyUsed = apperr.Conflict("This account is already linked to another family member")
)

// FamilyList is the membership list together with its counts
type FamilyList struct {
	Members []models.FamilyMember `json:"members"`
	Stats   *models.FamilyStats   `json:"stats"`
}

// RemovalResult reports what CancelOrRemove did
type RemovalResult struct {
	MemberID  int64  `json:"member_id"`
	Email     string `json:"email"`
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}

// FamilyService handles the invite-only membership list
type FamilyService struct {
	db        *database.DB
	members   *repository.MemberRepository
	profiles  *repository.ProfileRepository
	links     *LinkIssuer
	mailer    Mailer
	inviteTTL time.Duration
	logger    *zap.Logger
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, members *repository.MemberRepository, profiles *repository.ProfileRepository,
	links *LinkIssuer, mailer Mailer, inviteTTL time.Duration, logger *zap.Logger) *FamilyService {
	return &FamilyService{
		db:        db,
		members:   members,
		profiles:  profiles,
		links:     links,
		mailer:    mailer,
		inviteTTL: inviteTTL,
		logger:    logger,
	}
}

// Invite adds email to the membership list as invited and emails an
// invitation link. A failed email is logged and reported through EmailSent.
func (s *FamilyService) Invite(ctx context.Context, caller int64, email string, fullName *string) (*models.InvitationSummary, error) {
	if err := gate.Check(ctx, s.db, caller); err != nil {
		return nil, err
	}

	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid(err)
	}
	fullName = trimmedOrNil(fullName)
	if fullName != nil {
		if err := validation.ValidateName(*fullName); err != nil {
			return nil, invalid(err)
		}
	}

	inviter, err := s.members.GetByUserID(ctx, caller)
	if err != nil {
		return nil, internalErr("load inviter", err)
	}
	if inviter == nil {
		return nil, gate.ErrAccessDenied
	}

	existing, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return nil, internalErr("check existing member", err)
	}
	if existing != nil {
		metrics.RecordInvitation("conflict")
		return nil, conflictFor(existing)
	}

	token, err := credentials.GenerateInvitationToken()
	if err != nil {
		return nil, internalErr("generate invitation token", err)
	}

	member := &models.FamilyMember{
		Email:           email,
		FullName:        fullName,
		Status:          models.StatusInvited,
		InvitationToken: token,
		InvitedBy:       &inviter.ID,
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent invite for the same email
			metrics.RecordInvitation("conflict")
			if winner, lookupErr := s.members.GetByEmail(ctx, email); lookupErr == nil && winner != nil {
				return nil, conflictFor(winner)
			}
			return nil, ErrMemberExists
		}
		return nil, internalErr("create invitation", err)
	}

	sent := s.sendInvitation(ctx, member, inviterName(inviter))
	if sent {
		metrics.RecordInvitation("sent")
	} else {
		metrics.RecordInvitation("email_failed")
	}

	s.logger.Info("family member invited",
		zap.Int64("member_id", member.ID),
		zap.Int64("invited_by", inviter.ID),
		zap.Bool("email_sent", sent),
	)

	return &models.InvitationSummary{
		ID:        member.ID,
		Email:     member.Email,
		FullName:  member.FullName,
		Status:    member.Status,
		InvitedAt: member.InvitedAt,
		EmailSent: sent,
	}, nil
}

func (s *FamilyService) sendInvitation(ctx context.Context, member *models.FamilyMember, inviter string) bool {
	extra := url.Values{"invitation": {member.InvitationToken}}
	link, err := s.links.Issue(ctx, member.Email, models.PurposeInvite, s.inviteTTL, extra)
	if err != nil {
		s.logger.Error("failed to issue invitation link", zap.Int64("member_id", member.ID), zap.Error(err))
		return false
	}
	if err := s.mailer.SendInvitation(ctx, member.Email, inviter, link, s.inviteTTL); err != nil {
		s.logger.Error("failed to send invitation email", zap.Int64("member_id", member.ID), zap.Error(err))
		return false
	}
	return true
}

func conflictFor(m *models.FamilyMember) error {
	switch m.Status {
	case models.StatusInvited:
		return ErrAlreadyInvited
	case models.StatusActive:
		return ErrAlreadyActive
	}
	return ErrMemberExists
}

func inviterName(m *models.FamilyMember) string {
	if m.FullName != nil && *m.FullName != "" {
		return *m.FullName
	}
	return m.Email
}

// AcceptOnLogin runs after every successful sign-in. An invited row for the
// email is linked to the identity and activated, and the profile is created,
// in one transaction. Later logins leave accepted_at and the profile alone.
// It returns the member row for the email, or nil when there is none.
func (s *FamilyService) AcceptOnLogin(ctx context.Context, email string, identity int64, fullName *string) (*models.FamilyMember, error) {
	email = validation.NormalizeEmail(email)
	fullName = trimmedOrNil(fullName)

	var member *models.FamilyMember
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		members := s.members.InTx(tx)
		profiles := s.profiles.InTx(tx)

		m, err := members.GetByEmail(ctx, email)
		if err != nil {
			return err
		}

		if m != nil && m.Status == models.StatusInvited {
			activated, err := members.Activate(ctx, m.ID, identity)
			if err != nil {
				return err
			}
			if activated {
				s.logger.Info("invitation accepted", zap.Int64("member_id", m.ID), zap.Int64("user_id", identity))
				metrics.RecordInvitation("accepted")
			}
			if m, err = members.GetByID(ctx, m.ID); err != nil {
				return err
			}
		}

		name := fullName
		if name == nil && m != nil {
			name = m.FullName
		}
		if _, err := profiles.Ensure(ctx, identity, email, name); err != nil {
			return err
		}

		member = m
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrIdentityAlreadyUsed
		}
		return nil, internalErr("accept invitation", err)
	}

	if member != nil && member.Status == models.StatusActive && !member.BelongsTo(identity) {
		s.logger.Warn("active member row linked to a different identity",
			zap.Int64("member_id", member.ID), zap.Int64("user_id", identity))
	}
	return member, nil
}

// CancelOrRemove deletes a member row. Rows still waiting for acceptance are
// reported as cancelled, accepted members as removed. Callers can never
// delete their own row.
func (s *FamilyService) CancelOrRemove(ctx context.Context, caller, memberID int64) (*RemovalResult, error) {
	var result *RemovalResult
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := gate.Check(ctx, tx, caller); err != nil {
			return err
		}
		members := s.members.InTx(tx)

		target, err := members.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}
		if target.BelongsTo(caller) {
			return ErrCannotRemoveSelf
		}

		deleted, err := members.Delete(ctx, target.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrMemberNotFound
		}

		result = &RemovalResult{MemberID: target.ID, Email: target.Email, Cancelled: target.CanBeCancelled()}
		if result.Cancelled {
			result.Message = "Invitation cancelled"
		} else {
			result.Message = "Family member removed"
		}
		return nil
	})
	if err != nil {
		return nil, internalErr("remove family member", err)
	}

	s.logger.Info("family member deleted",
		zap.Int64("member_id", result.MemberID),
		zap.Int64("by_user_id", caller),
		zap.Bool("cancelled", result.Cancelled),
	)
	return result, nil
}

// List returns every member, newest invitation first, with counts by status
func (s *FamilyService) List(ctx context.Context, caller int64) (*FamilyList, error) {
	if err := gate.Check(ctx, s.db, caller); err != nil {
		return nil, err
	}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, internalErr("list family members", err)
	}
	stats, err := s.members.Stats(ctx)
	if err != nil {
		return nil, internalErr("count family members", err)
	}
	return &FamilyList{Members: members, Stats: stats}, nil
}

// Membership returns the member row linked to identity, or nil when the
// identity has never been accepted into the family. It is not gated.
func (s *FamilyService) Membership(ctx context.Context, identity int64) (*models.FamilyMember, error) {
	member, err := s.members.GetByUserID(ctx, identity)
	if err != nil {
		return nil, internalErr("get membership", err)
	}
	return member, nil
}

// Deactivate suspends an active member. The row keeps its identity link so
// the member can be reactivated later.
func (s *FamilyService) Deactivate(ctx context.Context, caller, memberID int64) (*models.FamilyMember, error) {
	return s.changeStatus(ctx, caller, memberID, models.StatusActive, models.StatusInactive, ErrNotActiveMember)
}

// Reactivate restores a deactivated member
func (s *FamilyService) Reactivate(ctx context.Context, caller, memberID int64) (*models.FamilyMember, error) {
	return s.changeStatus(ctx, caller, memberID, models.StatusInactive, models.StatusActive, ErrNotInactiveMember)
}

func (s *FamilyService) changeStatus(ctx context.Context, caller, memberID int64, from, to models.MemberStatus, wrongState error) (*models.FamilyMember, error) {
	var member *models.FamilyMember
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := gate.Check(ctx, tx, caller); err != nil {
			return err
		}
		members := s.members.InTx(tx)

		target, err := members.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}
		if target.BelongsTo(caller) {
			return ErrCannotChangeSelf
		}
		if target.UserID == nil {
			return wrongState
		}

		changed, err := members.SetStatus(ctx, target.ID, from, to)
		if err != nil {
			return err
		}
		if !changed {
			return wrongState
		}

		member, err = members.GetByID(ctx, target.ID)
		return err
	})
	if err != nil {
		return nil, internalErr("change member status", err)
	}

	s.logger.Info("family member status changed",
		zap.Int64("member_id", member.ID),
		zap.String("status", string(to)),
		zap.Int64("by_user_id", caller),
	)
	return member, nil
}

// InvitationStatus lets the holder of an invitation token see the invitation
func (s *FamilyService) InvitationStatus(ctx context.Context, token string) (*models.InvitationStatus, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvitationNotFound
	}

	member, err := s.members.GetByToken(ctx, token)
	if err != nil {
		return nil, internalErr("look up invitation", err)
	}
	if member == nil {
		return nil, ErrInvitationNotFound
	}

	return &models.InvitationStatus{
		Email:       member.Email,
		Status:      member.Status,
		InviterName: member.InviterName,
		InvitedAt:   member.InvitedAt,
	}, nil
}

// EnsureBootstrapMember seeds an invited row for email when the membership
// list has no entry for it, so that the first member can sign in. It reports
// whether a row was created.
func (s *FamilyService) EnsureBootstrapMember(ctx context.Context, email string) (bool, error) {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	if err := validation.ValidateEmail(email); err != nil {
		return false, invalid(err)
	}

	existing, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return false, internalErr("check bootstrap member", err)
	}
	if existing != nil {
		return false, nil
	}

	token, err := credentials.GenerateInvitationToken()
	if err != nil {
		return false, internalErr("generate invitation token", err)
	}
	member := &models.FamilyMember{Email: email, Status: models.StatusInvited, InvitationToken: token}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, internalErr("create bootstrap member", err)
	}

	s.logger.Info("bootstrap family member invited", zap.Int64("member_id", member.ID))
	return true, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

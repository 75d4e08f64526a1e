package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/database"
	"familyphotos/internal/gate"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/storage"
	"familyphotos/internal/validation"
)

// MaxAvatarSize caps profile picture uploads
const MaxAvatarSize = 5 * 1024 * 1024

var ErrProfileNotFound = apperr.NotFound("Profile not found")

// ProfileView is a profile with a signed URL for its avatar
type ProfileView struct {
	models.Profile
	AvatarURL          string     `json:"avatar_url,omitempty"`
	AvatarURLExpiresAt *time.Time `json:"avatar_url_expires_at,omitempty"`
}

// ProfileService handles the caller's own profile
type ProfileService struct {
	db       *database.DB
	profiles *repository.ProfileRepository
	blobs    storage.BlobStore
	urlTTL   time.Duration
	logger   *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(db *database.DB, profiles *repository.ProfileRepository, blobs storage.BlobStore, urlTTL time.Duration, logger *zap.Logger) *ProfileService {
	if urlTTL <= 0 {
		urlTTL = storage.DefaultSignedURLTTL
	}
	return &ProfileService{db: db, profiles: profiles, blobs: blobs, urlTTL: urlTTL, logger: logger}
}

// Get returns the actor's profile
func (s *ProfileService) Get(ctx context.Context, actor int64) (*ProfileView, error) {
	if err := gate.Check(ctx, s.db, actor); err != nil {
		return nil, err
	}
	return s.load(ctx, actor)
}

func (s *ProfileService) load(ctx context.Context, actor int64) (*ProfileView, error) {
	profile, err := s.profiles.Get(ctx, actor)
	if err != nil {
		return nil, internalErr("get profile", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	view := &ProfileView{Profile: *profile}
	if profile.AvatarURL != nil && *profile.AvatarURL != "" {
		signed, err := s.blobs.SignedURL(ctx, *profile.AvatarURL, s.urlTTL)
		if err != nil {
			// A missing avatar object should not hide the rest of the profile
			s.logger.Warn("failed to sign avatar url", zap.Int64("user_id", actor), zap.Error(err))
		} else {
			expires := time.Now().Add(s.urlTTL).UTC()
			view.AvatarURL = signed
			view.AvatarURLExpiresAt = &expires
		}
	}
	return view, nil
}

// UpdateFullName sets the display name. An empty name clears it.
func (s *ProfileService) UpdateFullName(ctx context.Context, actor int64, fullName *string) (*ProfileView, error) {
	if err := gate.Check(ctx, s.db, actor); err != nil {
		return nil, err
	}

	name := cleanOptional(fullName)
	if name != nil {
		if err := validation.ValidateName(*name); err != nil {
			return nil, invalid(err)
		}
	}

	updated, err := s.profiles.UpdateFullName(ctx, actor, name)
	if err != nil {
		return nil, internalErr("update profile", err)
	}
	if !updated {
		return nil, ErrProfileNotFound
	}
	return s.load(ctx, actor)
}

// UploadAvatar replaces the profile picture. The previous picture is removed
// best effort.
func (s *ProfileService) UploadAvatar(ctx context.Context, actor int64, filename string, size int64, body io.Reader) (*ProfileView, error) {
	if err := gate.Check(ctx, s.db, actor); err != nil {
		return nil, err
	}

	current, err := s.profiles.Get(ctx, actor)
	if err != nil {
		return nil, internalErr("get profile", err)
	}
	if current == nil {
		return nil, ErrProfileNotFound
	}

	data, mt, err := readImage(body, size, MaxAvatarSize)
	if err != nil {
		return nil, err
	}

	key := storage.PhotoKey("avatars", "avatar"+mt.Extension())
	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String()); err != nil {
		return nil, internalErr("store avatar", err)
	}
	if _, err := s.profiles.SetAvatar(ctx, actor, key); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to remove orphaned avatar", zap.String("key", key), zap.Error(delErr))
		}
		return nil, internalErr("set avatar", err)
	}

	if current.AvatarURL != nil && *current.AvatarURL != "" {
		if err := s.blobs.Delete(ctx, *current.AvatarURL); err != nil {
			s.logger.Warn("failed to delete previous avatar", zap.String("key", *current.AvatarURL), zap.Error(err))
		}
	}

	s.logger.Info("avatar updated", zap.Int64("user_id", actor), zap.String("original_filename", filename))
	return s.load(ctx, actor)
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/credentials"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/validation"
)

var (
	ErrAlbumNotFound      = apperr.NotFound("Album not found")
	ErrNotAlbumCreator    = apperr.Forbidden("Only the creator can change this album")
	ErrPhotoAlreadyAdded  = apperr.Conflict("This photo is already in the album")
	ErrPhotoNotInAlbum    = apperr.NotFound("Photo is not in this album")
	ErrAlbumOrderMismatch = apperr.Validation("The new order must list every photo in the album exactly once")
	ErrExpiryInPast       = apperr.Validation("Expiry must be in the future")
)

// albumFields holds the validated text fields of an album
type albumFields struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// AlbumInput is the data for a new album
type AlbumInput struct {
	Name        string
	Description *string
	IsPublic    bool
	ExpiresAt   *time.Time
}

// AlbumUpdate lists the album fields to change. Nil fields are left alone.
type AlbumUpdate struct {
	Name        *string
	Description *string
	IsPublic    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// AlbumDetail is an album with its photos in display order
type AlbumDetail struct {
	models.Album
	Photos []PhotoView `json:"photos"`
}

// SharedAlbum is what a public share link shows. It leaves out who uploaded
// each photo.
type SharedAlbum struct {
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	Photos      []SharedPhoto `json:"photos"`
}

// SharedPhoto is one photo of a shared album
type SharedPhoto struct {
	ID           int64     `json:"id"`
	Caption      *string   `json:"caption,omitempty"`
	ContentType  string    `json:"content_type"`
	URL          string    `json:"url"`
	URLExpiresAt time.Time `json:"url_expires_at"`
}

// AlbumService handles albums and public share links
type AlbumService struct {
	albums *repository.AlbumRepository
	signer *urlSigner
	logger *zap.Logger
	now    func() time.Time
}

// NewAlbumService creates a new album service. Photo URLs are signed the same
// way as in the photo feed.
func NewAlbumService(albums *repository.AlbumRepository, photos *PhotoService, logger *zap.Logger) *AlbumService {
	return &AlbumService{albums: albums, signer: photos.signer, logger: logger, now: time.Now}
}

func (s *AlbumService) checkFields(name string, description *string, expiresAt *time.Time) error {
	fields := albumFields{Name: name}
	if description != nil {
		fields.Description = *description
	}
	if err := validation.Struct(fields); err != nil {
		return invalid(err)
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return ErrExpiryInPast
	}
	return nil
}

// Create makes a new album owned by actor with a fresh share token
func (s *AlbumService) Create(ctx context.Context, actor int64, in AlbumInput) (*models.Album, error) {
	name := validation.SanitizeText(in.Name)
	description := cleanOptional(in.Description)
	if err := s.checkFields(name, description, in.ExpiresAt); err != nil {
		return nil, err
	}

	token, err := credentials.GenerateShareToken()
	if err != nil {
		return nil, internalErr("generate share token", err)
	}

	album := &models.Album{
		Name:        name,
		Description: description,
		ShareToken:  token,
		IsPublic:    in.IsPublic,
		ExpiresAt:   utcPtr(in.ExpiresAt),
	}
	if err := s.albums.Create(ctx, actor, album); err != nil {
		return nil, internalErr("create album", err)
	}

	s.logger.Info("album created", zap.Int64("album_id", album.ID), zap.Int64("user_id", actor))
	return album, nil
}

// List returns every album, most recently updated first
func (s *AlbumService) List(ctx context.Context, actor int64) ([]models.Album, error) {
	albums, err := s.albums.List(ctx, actor)
	if err != nil {
		return nil, internalErr("list albums", err)
	}
	return albums, nil
}

func (s *AlbumService) get(ctx context.Context, actor, id int64) (*models.Album, error) {
	album, err := s.albums.Get(ctx, actor, id)
	if err != nil {
		return nil, internalErr("get album", err)
	}
	if album == nil {
		return nil, ErrAlbumNotFound
	}
	return album, nil
}

// ownAlbum loads an album that actor is allowed to change
func (s *AlbumService) ownAlbum(ctx context.Context, actor, id int64) (*models.Album, error) {
	album, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if album.CreatedBy != actor {
		return nil, ErrNotAlbumCreator
	}
	return album, nil
}

// Get returns an album and its photos
func (s *AlbumService) Get(ctx context.Context, actor, id int64) (*AlbumDetail, error) {
	album, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	photos, err := s.albums.Photos(ctx, actor, id)
	if err != nil {
		return nil, internalErr("list album photos", err)
	}
	views, err := s.signer.views(ctx, photos)
	if err != nil {
		return nil, internalErr("sign photo urls", err)
	}
	return &AlbumDetail{Album: *album, Photos: views}, nil
}

// Update changes the name, description, visibility or expiry of an album
func (s *AlbumService) Update(ctx context.Context, actor, id int64, in AlbumUpdate) (*models.Album, error) {
	album, err := s.ownAlbum(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		album.Name = validation.SanitizeText(*in.Name)
	}
	if in.Description != nil {
		album.Description = cleanOptional(in.Description)
	}
	if in.IsPublic != nil {
		album.IsPublic = *in.IsPublic
	}
	var newExpiry *time.Time
	switch {
	case in.ClearExpiry:
		album.ExpiresAt = nil
	case in.ExpiresAt != nil:
		newExpiry = utcPtr(in.ExpiresAt)
		album.ExpiresAt = newExpiry
	}
	if err := s.checkFields(album.Name, album.Description, newExpiry); err != nil {
		return nil, err
	}

	updated, err := s.albums.Update(ctx, actor, album)
	if err != nil {
		return nil, internalErr("update album", err)
	}
	if !updated {
		return nil, ErrAlbumNotFound
	}
	return s.get(ctx, actor, id)
}

// Delete removes an album. The photos in it are kept.
func (s *AlbumService) Delete(ctx context.Context, actor, id int64) error {
	if _, err := s.ownAlbum(ctx, actor, id); err != nil {
		return err
	}
	deleted, err := s.albums.Delete(ctx, actor, id)
	if err != nil {
		return internalErr("delete album", err)
	}
	if !deleted {
		return ErrAlbumNotFound
	}
	s.logger.Info("album deleted", zap.Int64("album_id", id), zap.Int64("user_id", actor))
	return nil
}

// AddPhoto appends a photo to the end of an album
func (s *AlbumService) AddPhoto(ctx context.Context, actor, albumID, photoID int64) (*models.AlbumPhoto, error) {
	if _, err := s.ownAlbum(ctx, actor, albumID); err != nil {
		return nil, err
	}
	entry, err := s.albums.AddPhoto(ctx, actor, albumID, photoID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrPhotoNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrPhotoAlreadyAdded
	case err != nil:
		return nil, internalErr("add photo to album", err)
	}
	return entry, nil
}

// RemovePhoto takes a photo out of an album
func (s *AlbumService) RemovePhoto(ctx context.Context, actor, albumID, photoID int64) error {
	if _, err := s.ownAlbum(ctx, actor, albumID); err != nil {
		return err
	}
	removed, err := s.albums.RemovePhoto(ctx, actor, albumID, photoID)
	if err != nil {
		return internalErr("remove photo from album", err)
	}
	if !removed {
		return ErrPhotoNotInAlbum
	}
	return nil
}

// Reorder sets the display order of an album's photos
func (s *AlbumService) Reorder(ctx context.Context, actor, albumID int64, photoIDs []int64) (*AlbumDetail, error) {
	if _, err := s.ownAlbum(ctx, actor, albumID); err != nil {
		return nil, err
	}
	if err := s.albums.Reorder(ctx, actor, albumID, photoIDs); err != nil {
		if errors.Is(err, repository.ErrOrderMismatch) {
			return nil, ErrAlbumOrderMismatch
		}
		return nil, internalErr("reorder album", err)
	}
	return s.Get(ctx, actor, albumID)
}

// RotateShareToken issues a new share token so that old links stop working
func (s *AlbumService) RotateShareToken(ctx context.Context, actor, albumID int64) (*models.Album, error) {
	if _, err := s.ownAlbum(ctx, actor, albumID); err != nil {
		return nil, err
	}
	token, err := credentials.GenerateShareToken()
	if err != nil {
		return nil, internalErr("generate share token", err)
	}
	updated, err := s.albums.SetShareToken(ctx, actor, albumID, token)
	if err != nil {
		return nil, internalErr("rotate share token", err)
	}
	if !updated {
		return nil, ErrAlbumNotFound
	}
	s.logger.Info("album share token rotated", zap.Int64("album_id", albumID), zap.Int64("user_id", actor))
	return s.get(ctx, actor, albumID)
}

// ViewShared opens an album through its share token. Albums that are private
// or past their expiry look exactly like unknown tokens.
func (s *AlbumService) ViewShared(ctx context.Context, token string) (*SharedAlbum, error) {
	if token == "" {
		return nil, ErrAlbumNotFound
	}
	album, err := s.albums.GetByShareToken(ctx, token)
	if err != nil {
		return nil, internalErr("get shared album", err)
	}
	if album == nil || !album.IsShareable(s.now()) {
		return nil, ErrAlbumNotFound
	}

	photos, err := s.albums.PhotosForShare(ctx, album.ID)
	if err != nil {
		return nil, internalErr("list shared photos", err)
	}
	views, err := s.signer.views(ctx, photos)
	if err != nil {
		return nil, internalErr("sign photo urls", err)
	}

	shared := &SharedAlbum{Name: album.Name, Description: album.Description, ExpiresAt: album.ExpiresAt, Photos: make([]SharedPhoto, 0, len(views))}
	for _, v := range views {
		shared.Photos = append(shared.Photos, SharedPhoto{
			ID:           v.ID,
			Caption:      v.Caption,
			ContentType:  v.ContentType,
			URL:          v.URL,
			URLExpiresAt: v.URLExpiresAt,
		})
	}
	return shared, nil
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeText(*s)
	if v == "" {
		return nil
	}
	return &v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"familyphotos/internal/apperr"
	"familyphotos/internal/database"
	"familyphotos/internal/gate"
	"familyphotos/internal/metrics"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/storage"
	"familyphotos/internal/validation"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// allowedImageTypes are the content types accepted for photos and avatars
var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"image/heif",
}

var (
	ErrPhotoNotFound    = apperr.NotFound("Photo not found")
	ErrNotPhotoUploader = apperr.Forbidden("Only the person who uploaded this photo can change it")
	ErrEmptyUpload      = apperr.Validation("The uploaded file is empty")
	ErrNotAnImage       = apperr.Validation("Only JPEG, PNG, GIF, WebP and HEIC images can be uploaded")
)

// PhotoView is a photo with a time-limited URL for its bytes
type PhotoView struct {
	models.Photo
	URL          string    `json:"url"`
	URLExpiresAt time.Time `json:"url_expires_at"`
}

// PhotoPage is one page of the photo feed
type PhotoPage struct {
	Photos []PhotoView `json:"photos"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// UploadInput describes an uploaded file
type UploadInput struct {
	OriginalFilename string
	Caption          *string
	Size             int64 // as declared by the client, -1 when unknown
	Body             io.Reader
}

// urlSigner attaches signed URLs to photos
type urlSigner struct {
	blobs storage.BlobStore
	ttl   time.Duration
	now   func() time.Time
}

func (u *urlSigner) view(ctx context.Context, p *models.Photo) (PhotoView, error) {
	signed, err := u.blobs.SignedURL(ctx, p.StoragePath, u.ttl)
	if err != nil {
		return PhotoView{}, fmt.Errorf("failed to sign photo %d: %w", p.ID, err)
	}
	return PhotoView{Photo: *p, URL: signed, URLExpiresAt: u.now().Add(u.ttl).UTC()}, nil
}

func (u *urlSigner) views(ctx context.Context, photos []models.Photo) ([]PhotoView, error) {
	views := make([]PhotoView, 0, len(photos))
	for i := range photos {
		v, err := u.view(ctx, &photos[i])
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// PhotoService handles photo uploads and the photo feed
type PhotoService struct {
	db      *database.DB
	photos  *repository.PhotoRepository
	blobs   storage.BlobStore
	signer  *urlSigner
	maxSize int64
	logger  *zap.Logger
}

// NewPhotoService creates a new photo service
func NewPhotoService(db *database.DB, photos *repository.PhotoRepository, blobs storage.BlobStore,
	urlTTL time.Duration, maxSize int64, logger *zap.Logger) *PhotoService {
	if urlTTL <= 0 {
		urlTTL = storage.DefaultSignedURLTTL
	}
	return &PhotoService{
		db:      db,
		photos:  photos,
		blobs:   blobs,
		signer:  &urlSigner{blobs: blobs, ttl: urlTTL, now: time.Now},
		maxSize: maxSize,
		logger:  logger,
	}
}

// readImage reads at most max bytes from r and checks that they are an image
func readImage(r io.Reader, declared, max int64) ([]byte, *mimetype.MIME, error) {
	tooLarge := apperr.Validation("Images must be at most " + humanSize(max))
	if declared > max {
		return nil, nil, tooLarge
	}

	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, nil, apperr.Validation("Failed to read the uploaded file").Wrap(err)
	}
	if int64(len(data)) > max {
		return nil, nil, tooLarge
	}
	if len(data) == 0 {
		return nil, nil, ErrEmptyUpload
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, nil, ErrNotAnImage
	}
	return data, mt, nil
}

// Upload stores an image and records it. The stored object is removed again
// when the row cannot be written.
func (s *PhotoService) Upload(ctx context.Context, actor int64, in UploadInput) (*PhotoView, error) {
	if err := gate.Check(ctx, s.db, actor); err != nil {
		return nil, err
	}

	caption, err := cleanCaption(in.Caption)
	if err != nil {
		return nil, err
	}

	data, mt, err := readImage(in.Body, in.Size, s.maxSize)
	if err != nil {
		metrics.RecordUpload(false)
		return nil, err
	}

	original := path.Base(strings.ReplaceAll(strings.TrimSpace(in.OriginalFilename), "\\", "/"))
	if original == "." || original == "/" {
		original = "photo" + mt.Extension()
	}
	key := storage.PhotoKey("photos", strings.TrimSuffix(original, path.Ext(original))+mt.Extension())

	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String()); err != nil {
		metrics.RecordUpload(false)
		return nil, internalErr("store photo", err)
	}

	photo := &models.Photo{
		Filename:         path.Base(key),
		OriginalFilename: original,
		Caption:          caption,
		StoragePath:      key,
		ContentType:      mt.String(),
		SizeBytes:        int64(len(data)),
	}
	if err := s.photos.Create(ctx, actor, photo); err != nil {
		metrics.RecordUpload(false)
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, internalErr("record photo", err)
	}
	metrics.RecordUpload(true)

	s.logger.Info("photo uploaded",
		zap.Int64("photo_id", photo.ID),
		zap.Int64("user_id", actor),
		zap.Int64("size", photo.SizeBytes),
		zap.String("content_type", photo.ContentType),
	)

	stored, err := s.photos.Get(ctx, actor, photo.ID)
	if err != nil || stored == nil {
		stored = photo
	}
	view, err := s.signer.view(ctx, stored)
	if err != nil {
		return nil, internalErr("sign photo url", err)
	}
	return &view, nil
}

// List returns a page of the feed, newest first
func (s *PhotoService) List(ctx context.Context, actor int64, limit, offset int) (*PhotoPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	photos, err := s.photos.List(ctx, actor, limit, offset)
	if err != nil {
		return nil, internalErr("list photos", err)
	}
	total, err := s.photos.Count(ctx, actor)
	if err != nil {
		return nil, internalErr("count photos", err)
	}
	views, err := s.signer.views(ctx, photos)
	if err != nil {
		return nil, internalErr("sign photo urls", err)
	}
	return &PhotoPage{Photos: views, Total: total, Limit: limit, Offset: offset}, nil
}

// Get returns one photo with a signed URL
func (s *PhotoService) Get(ctx context.Context, actor, id int64) (*PhotoView, error) {
	photo, err := s.photos.Get(ctx, actor, id)
	if err != nil {
		return nil, internalErr("get photo", err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}
	view, err := s.signer.view(ctx, photo)
	if err != nil {
		return nil, internalErr("sign photo url", err)
	}
	return &view, nil
}

func (s *PhotoService) ownPhoto(ctx context.Context, actor, id int64) (*models.Photo, error) {
	photo, err := s.photos.Get(ctx, actor, id)
	if err != nil {
		return nil, internalErr("get photo", err)
	}
	if photo == nil {
		return nil, ErrPhotoNotFound
	}
	if photo.UploadedBy != actor {
		return nil, ErrNotPhotoUploader
	}
	return photo, nil
}

// UpdateCaption sets or clears the caption of the actor's own photo
func (s *PhotoService) UpdateCaption(ctx context.Context, actor, id int64, caption *string) (*PhotoView, error) {
	if _, err := s.ownPhoto(ctx, actor, id); err != nil {
		return nil, err
	}

	cleaned, err := cleanCaption(caption)
	if err != nil {
		return nil, err
	}
	updated, err := s.photos.UpdateCaption(ctx, actor, id, cleaned)
	if err != nil {
		return nil, internalErr("update caption", err)
	}
	if !updated {
		return nil, ErrPhotoNotFound
	}
	return s.Get(ctx, actor, id)
}

// Delete removes the actor's own photo with its comments, reactions and
// album entries. The stored object is removed best effort.
func (s *PhotoService) Delete(ctx context.Context, actor, id int64) error {
	photo, err := s.ownPhoto(ctx, actor, id)
	if err != nil {
		return err
	}

	deleted, err := s.photos.Delete(ctx, actor, id)
	if err != nil {
		return internalErr("delete photo", err)
	}
	if !deleted {
		return ErrPhotoNotFound
	}

	if err := s.blobs.Delete(ctx, photo.StoragePath); err != nil {
		s.logger.Warn("failed to delete photo object", zap.Int64("photo_id", id), zap.String("key", photo.StoragePath), zap.Error(err))
	}
	s.logger.Info("photo deleted", zap.Int64("photo_id", id), zap.Int64("user_id", actor))
	return nil
}

func cleanCaption(caption *string) (*string, error) {
	if caption == nil {
		return nil, nil
	}
	c := validation.SanitizeText(*caption)
	if c == "" {
		return nil, nil
	}
	if err := validation.ValidateCaption(c); err != nil {
		return nil, invalid(err)
	}
	return &c, nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyphotos/internal/apperr"
	"familyphotos/internal/models"
)

func TestUploadStoresImageAndSignsURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addMember(t, "alice@example.com", models.StatusActive)

	view, err := env.photos.Upload(ctx, alice, UploadInput{
		OriginalFilename: "C:\\Users\\alice\\beach.JPG",
		Caption:          strPtr("  <i>Beach</i> day "),
		Size:             int64(len(jpegBytes)),
		Body:             bytes.NewReader(jpegBytes),
	})
	require.NoError(t, err)

	assert.Equal(t, "beach.JPG", view.OriginalFilename)
	assert.Equal(t, "image/jpeg", view.ContentType)
	require.NotNil(t, view.Caption)
	assert.Equal(t, "Beach day", *view.Caption)
	assert.True(t, strings.HasPrefix(view.StoragePath, "photos/"))
	assert.True(t, strings.HasSuffix(view.StoragePath, ".jpg"))
	assert.True(t, strings.HasPrefix(view.URL, "memory://"))
	assert.False(t, view.URLExpiresAt.IsZero())

	data, contentType, ok := env.blobs.Get(view.StoragePath)
	require.True(t, ok)
	assert.Equal(t, jpegBytes, data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addMember(t, "alice@example.com", models.StatusActive)
	stranger := env.addMember(t, "pending@example.com", models.StatusPending)

	tests := []struct {
		name  string
		actor int64
		in    UploadInput
		kind  apperr.Kind
	}{
		{"not a member", stranger, UploadInput{Body: bytes.NewReader(pngBytes)}, apperr.KindAccessDenied},
		{"empty file", alice, UploadInput{Body: bytes.NewReader(nil)}, apperr.KindValidation},
		{"not an image", alice, UploadInput{Body: strings.NewReader("%PDF-1.4 hello")}, apperr.KindValidation},
		{"declared too large", alice, UploadInput{Size: 4096, Body: bytes.NewReader(pngBytes)}, apperr.KindValidation},
		{"actually too large", alice, UploadInput{Size: -1, Body: bytes.NewReader(append(append([]byte{}, pngBytes...), make([]byte, 2048)...))}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.photos.Upload(ctx, tt.actor, tt.in)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
	assert.Equal(t, 0, env.blobs.Len())
}

func TestUploadRemovesBlobWhenRowFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addMember(t, "alice@example.com", models.StatusActive)

	_, err := env.db.ExecContext(ctx, "DROP TABLE album_photos")
	require.NoError(t, err)
	_, err = env.db.ExecContext(ctx, "DROP TABLE photos")
	require.NoError(t, err)

	_, err = env.photos.Upload(ctx, alice, UploadInput{OriginalFilename: "a.png", Body: bytes.NewReader(pngBytes)})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "Internal server error", apperr.Message(err))
	assert.Equal(t, 0, env.blobs.Len())
}

func TestPhotoOwnershipAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addMember(t, "alice@example.com", models.StatusActive)
	bob := env.addMember(t, "bob@example.com", models.StatusActive)

	photo := env.upload(t, alice, "a.png")

	_, err := env.photos.UpdateCaption(ctx, bob, photo.ID, strPtr("mine now"))
	assert.ErrorIs(t, err, ErrNotPhotoUploader)
	assert.ErrorIs(t, env.photos.Delete(ctx, bob, photo.ID), ErrNotPhotoUploader)

	updated, err := env.photos.UpdateCaption(ctx, alice, photo.ID, strPtr("Garden"))
	require.NoError(t, err)
	require.NotNil(t, updated.Caption)
	assert.Equal(t, "Garden", *updated.Caption)

	cleared, err := env.photos.UpdateCaption(ctx, alice, photo.ID, strPtr("   "))
	require.NoError(t, err)
	assert.Nil(t, cleared.Caption)

	_, err = env.comments.Add(ctx, bob, photo.ID, "lovely")
	require.NoError(t, err)

	require.NoError(t, env.photos.Delete(ctx, alice, photo.ID))
	assert.Equal(t, 0, env.blobs.Len())

	_, err = env.photos.Get(ctx, alice, photo.ID)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
	_, err = env.comments.List(ctx, bob, photo.ID)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}

func TestPhotoListPaging(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addMember(t, "alice@example.com", models.StatusActive)

	for _, name := range []string{"1.png", "2.png", "3.png"} {
		env.upload(t, alice, name)
	}

	page, err := env.photos.List(ctx, alice, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Photos, 2)
	assert.Equal(t, "3.png", page.Photos[0].OriginalFilename)

	page, err = env.photos.List(ctx, alice, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.Limit)
	require.Len(t, page.Photos, 1)
	assert.Equal(t, "1.png", page.Photos[0].OriginalFilename)

	page, err = env.photos.List(ctx, alice, 1000, -5)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Equal(t, 0, page.Offset)
}

package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"familyphotos/internal/database"
	"familyphotos/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)
	return db
}

// seedMember creates an identity with a member row in the given status and
// returns the identity ID.
func seedMember(t *testing.T, db *database.DB, email string, status models.MemberStatus) int64 {
	t.Helper()
	ctx := context.Background()

	identity, err := NewUserRepository(db).GetOrCreateByEmail(ctx, email)
	require.NoError(t, err)
	_, err = NewProfileRepository(db).Ensure(ctx, identity.ID, email, nil)
	require.NoError(t, err)

	uid := identity.ID
	err = NewMemberRepository(db).Create(ctx, &models.FamilyMember{
		UserID:          &uid,
		Email:           email,
		Status:          status,
		InvitationToken: "token-" + email,
	})
	require.NoError(t, err)
	return identity.ID
}

func seedPhoto(t *testing.T, db *database.DB, actor int64, name string) *models.Photo {
	t.Helper()
	p := &models.Photo{
		Filename:         name,
		OriginalFilename: name,
		StoragePath:      "photos/" + name,
		ContentType:      "image/jpeg",
		SizeBytes:        100,
	}
	require.NoError(t, NewPhotoRepository(db).Create(context.Background(), actor, p))
	return p
}

package service

import (
	"bytes"
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"familyphotos/internal/credentials"
	"familyphotos/internal/database"
	"familyphotos/internal/gesture"
	"familyphotos/internal/models"
	"familyphotos/internal/repository"
	"familyphotos/internal/storage"
)

// Smallest byte strings that content sniffing recognises
var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

type sentMail struct {
	To      string
	Link    string
	Inviter string
}

type recordingMailer struct {
	mu      sync.Mutex
	logins  []sentMail
	invites []sentMail
	fail    error
}

func (m *recordingMailer) SendLoginLink(ctx context.Context, toEmail, link string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.logins = append(m.logins, sentMail{To: toEmail, Link: link})
	return nil
}

func (m *recordingMailer) SendInvitation(ctx context.Context, toEmail, inviterName, link string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.invites = append(m.invites, sentMail{To: toEmail, Link: link, Inviter: inviterName})
	return nil
}

func (m *recordingMailer) lastInvite(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.invites, "no invitation sent")
	return m.invites[len(m.invites)-1]
}

func (m *recordingMailer) lastLogin(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.logins, "no login link sent")
	return m.logins[len(m.logins)-1]
}

type testEnv struct {
	db       *database.DB
	users    *repository.UserRepository
	members  *repository.MemberRepository
	profiles *repository.ProfileRepository
	blobs    *storage.MemoryStore
	mailer   *recordingMailer

	family    *FamilyService
	auth      *AuthService
	photos    *PhotoService
	comments  *CommentService
	reactions *ReactionService
	albums    *AlbumService
	profile   *ProfileService
	backup    *BackupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err)

	logger := zap.NewNop()
	users := repository.NewUserRepository(db)
	members := repository.NewMemberRepository(db)
	profiles := repository.NewProfileRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	albumRepo := repository.NewAlbumRepository(db)

	blobs := storage.NewMemoryStore()
	mailer := &recordingMailer{}
	signer := credentials.NewMagicLinkSigner([]byte("test-signing-key-0123456789abcdef"))
	links := NewLinkIssuer(signer, users, "http://photos.test")

	family := NewFamilyService(db, members, profiles, links, mailer, 7*24*time.Hour, logger)
	photos := NewPhotoService(db, photoRepo, blobs, time.Hour, 1024, logger)

	return &testEnv{
		db:        db,
		users:     users,
		members:   members,
		profiles:  profiles,
		blobs:     blobs,
		mailer:    mailer,
		family:    family,
		auth:      NewAuthService(users, members, family, signer, links, mailer, 24*time.Hour, time.Hour, logger),
		photos:    photos,
		comments:  NewCommentService(commentRepo, photoRepo, logger),
		reactions: NewReactionService(reactionRepo, photoRepo, gesture.Config{}, logger),
		albums:    NewAlbumService(albumRepo, photos, logger),
		profile:   NewProfileService(db, profiles, blobs, time.Hour, logger),
		backup:    NewBackupService(members, profiles, photoRepo, commentRepo, reactionRepo, albumRepo, logger),
	}
}

// addMember creates an identity, profile and member row in the given status
// and returns the identity ID
func (e *testEnv) addMember(t *testing.T, email string, status models.MemberStatus) int64 {
	t.Helper()
	ctx := context.Background()

	identity, err := e.users.GetOrCreateByEmail(ctx, email)
	require.NoError(t, err)
	_, err = e.profiles.Ensure(ctx, identity.ID, email, nil)
	require.NoError(t, err)

	uid := identity.ID
	now := time.Now().UTC()
	token, err := credentials.GenerateInvitationToken()
	require.NoError(t, err)
	require.NoError(t, e.members.Create(ctx, &models.FamilyMember{
		UserID:          &uid,
		Email:           email,
		Status:          status,
		AcceptedAt:      &now,
		InvitationToken: token,
	}))
	return identity.ID
}

// follow redeems the code carried by an emailed link
func (e *testEnv) follow(t *testing.T, link string) *SignIn {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/auth/callback", u.Path)

	signIn, err := e.auth.ExchangeCode(context.Background(), u.Query().Get("code"))
	require.NoError(t, err)
	return signIn
}

func (e *testEnv) upload(t *testing.T, actor int64, name string) *PhotoView {
	t.Helper()
	view, err := e.photos.Upload(context.Background(), actor, UploadInput{
		OriginalFilename: name,
		Size:             int64(len(pngBytes)),
		Body:             bytes.NewReader(pngBytes),
	})
	require.NoError(t, err)
	return view
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
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
	"familyphotos/internal/security"
	"familyphotos/internal/service"
	"familyphotos/internal/storage"
)

const testMetricsToken = "metrics-test-token"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type recordingMailer struct {
	mu      sync.Mutex
	logins  []string
	invites []string
}

func (m *recordingMailer) SendLoginLink(ctx context.Context, toEmail, link string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, link)
	return nil
}

func (m *recordingMailer) SendInvitation(ctx context.Context, toEmail, inviterName, link string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, link)
	return nil
}

func (m *recordingMailer) lastLogin(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.logins, "no login link sent")
	return m.logins[len(m.logins)-1]
}

func (m *recordingMailer) lastInvite(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.invites, "no invitation sent")
	return m.invites[len(m.invites)-1]
}

type testServer struct {
	handler  http.Handler
	db       *database.DB
	users    *repository.UserRepository
	members  *repository.MemberRepository
	profiles *repository.ProfileRepository
	mailer   *recordingMailer
	codec    *security.SessionCodec
	csrf     *security.CSRFGenerator
	auth     *AuthHandler
}

// client is a signed-in browser: its session cookie and CSRF token
type client struct {
	userID int64
	cookie *http.Cookie
	csrf   string
}

type serverOption func(*Router)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
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
	signer := credentials.NewMagicLinkSigner([]byte("handler-test-signing-key-0123456"))
	links := service.NewLinkIssuer(signer, users, "http://photos.test")

	familyService := service.NewFamilyService(db, members, profiles, links, mailer, 7*24*time.Hour, logger)
	authService := service.NewAuthService(users, members, familyService, signer, links, mailer, 24*time.Hour, time.Hour, logger)
	photoService := service.NewPhotoService(db, photoRepo, blobs, time.Hour, 1024, logger)

	codec := security.NewSessionCodec([]byte("handler-test-hash-key-0123456789"), []byte("handler-block-key-0123456789abcd"), 24*time.Hour)
	csrf := security.NewCSRFGenerator([]byte("handler-test-csrf"), 24*time.Hour)
	limiter := security.NewRateLimiter(1000)

	auth := NewAuthHandler(authService, familyService, codec, csrf, nil, "http://photos.test", logger)
	rt := &Router{
		Middleware: NewMiddleware(authService, db, codec, csrf, limiter, logger),
		Auth:       auth,
		Family:     NewFamilyHandler(familyService, logger),
		Photos:     NewPhotoHandler(photoService, 1024, logger),
		Comments:   NewCommentHandler(service.NewCommentService(commentRepo, photoRepo, logger), logger),
		Reactions:  NewReactionHandler(service.NewReactionService(reactionRepo, photoRepo, gesture.Config{}, logger), logger),
		Albums:     NewAlbumHandler(service.NewAlbumService(albumRepo, photoService, logger), logger),
		Profile:    NewProfileHandler(service.NewProfileService(db, profiles, blobs, time.Hour, logger), logger),
		Health:     NewHealthHandler(db, logger),

		MetricsToken: testMetricsToken,
	}
	for _, opt := range opts {
		opt(rt)
	}

	return &testServer{
		handler:  rt.Handler(logger),
		db:       db,
		users:    users,
		members:  members,
		profiles: profiles,
		mailer:   mailer,
		codec:    codec,
		csrf:     csrf,
		auth:     rt.Auth,
	}
}

// login creates an identity with a member row in status and a live session
func (s *testServer) login(t *testing.T, email string, status models.MemberStatus) *client {
	t.Helper()
	ctx := context.Background()

	identity, err := s.users.GetOrCreateByEmail(ctx, email)
	require.NoError(t, err)
	_, err = s.profiles.Ensure(ctx, identity.ID, email, nil)
	require.NoError(t, err)

	if status != "" {
		uid := identity.ID
		now := time.Now().UTC()
		token, err := credentials.GenerateInvitationToken()
		require.NoError(t, err)
		require.NoError(t, s.members.Create(ctx, &models.FamilyMember{
			UserID:          &uid,
			Email:           email,
			Status:          status,
			AcceptedAt:      &now,
			InvitationToken: token,
		}))
	}

	session, err := s.users.CreateSession(ctx, identity.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return s.clientFor(t, identity.ID, session.ID)
}

func (s *testServer) clientFor(t *testing.T, userID int64, sessionID string) *client {
	t.Helper()
	value, err := s.codec.Encode(sessionID)
	require.NoError(t, err)
	token, err := s.csrf.GenerateToken(sessionID)
	require.NoError(t, err)
	return &client{
		userID: userID,
		cookie: &http.Cookie{Name: security.SessionCookieName, Value: value},
		csrf:   token,
	}
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// do sends a request as c, with a JSON body when body is not nil
func (s *testServer) do(t *testing.T, c *client, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c != nil {
		req.AddCookie(c.cookie)
		req.Header.Set(security.CSRFHeader, c.csrf)
	}
	return s.serve(req)
}

// upload posts a multipart form with one file part as c
func (s *testServer) upload(t *testing.T, c *client, method, target, field, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(c.cookie)
	req.Header.Set(security.CSRFHeader, c.csrf)
	return s.serve(req)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorResponse](t, rec).Error
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.SessionCookieName {
			return c
		}
	}
	return nil
}

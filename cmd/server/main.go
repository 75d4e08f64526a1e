package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"familyphotos/internal/config"
	"familyphotos/internal/credentials"
	"familyphotos/internal/database"
	"familyphotos/internal/gesture"
	"familyphotos/internal/handlers"
	"familyphotos/internal/jobs"
	"familyphotos/internal/logging"
	"familyphotos/internal/repository"
	"familyphotos/internal/security"
	"familyphotos/internal/service"
	"familyphotos/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, m := range applied {
		logger.Info("migration applied", zap.String("file", m.Filename), zap.Int("statements", m.Statements))
	}

	blobs, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}
	if !emailService.IsEnabled() {
		logger.Warn("SES_FROM_EMAIL not set, sign-in and invitation emails will not be sent")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	albumRepo := repository.NewAlbumRepository(db)

	// Initialize services
	signer := credentials.NewMagicLinkSigner(cfg.DeriveKey("magic-link", 32))
	links := service.NewLinkIssuer(signer, userRepo, cfg.AppBaseURL)
	familyService := service.NewFamilyService(db, memberRepo, profileRepo, links, emailService, cfg.InviteLinkTTL, logger)
	authService := service.NewAuthService(userRepo, memberRepo, familyService, signer, links, emailService,
		cfg.SessionDuration, cfg.MagicLinkTTL, logger)
	photoService := service.NewPhotoService(db, photoRepo, blobs, cfg.SignedURLTTL, cfg.UploadMaxSize, logger)
	commentService := service.NewCommentService(commentRepo, photoRepo, logger)
	reactionService := service.NewReactionService(reactionRepo, photoRepo, gesture.Config{}, logger)
	albumService := service.NewAlbumService(albumRepo, photoService, logger)
	profileService := service.NewProfileService(db, profileRepo, blobs, cfg.SignedURLTTL, logger)

	if cfg.BootstrapMemberEmail != "" {
		created, err := familyService.EnsureBootstrapMember(ctx, cfg.BootstrapMemberEmail)
		if err != nil {
			return fmt.Errorf("failed to create bootstrap member: %w", err)
		}
		if created {
			logger.Info("bootstrap member invited", zap.String("email", cfg.BootstrapMemberEmail))
		}
	}

	codec := security.NewSessionCodec(cfg.DeriveKey("session-hash", 32), cfg.DeriveKey("session-block", 32), cfg.SessionDuration)
	csrf := security.NewCSRFGenerator(cfg.DeriveKey("csrf", 32), cfg.SessionDuration)
	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute)

	googleProvider := &handlers.GoogleProvider{
		Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}

	// Initialize handlers
	router := &handlers.Router{
		Middleware: handlers.NewMiddleware(authService, db, codec, csrf, limiter, logger),
		Auth:       handlers.NewAuthHandler(authService, familyService, codec, csrf, googleProvider, cfg.AppBaseURL, logger),
		Family:     handlers.NewFamilyHandler(familyService, logger),
		Photos:     handlers.NewPhotoHandler(photoService, cfg.UploadMaxSize, logger),
		Comments:   handlers.NewCommentHandler(commentService, logger),
		Reactions:  handlers.NewReactionHandler(reactionService, logger),
		Albums:     handlers.NewAlbumHandler(albumService, logger),
		Profile:    handlers.NewProfileHandler(profileService, logger),
		Health:     handlers.NewHealthHandler(db, logger),

		MetricsToken: cfg.MetricsToken,
	}
	if cfg.MetricsToken == "" {
		logger.Info("METRICS_TOKEN not set, /metrics is disabled")
	}

	// Background maintenance
	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddCleanup("@hourly", authService); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	if err := scheduler.AddPrune("@every 10m", 30*time.Minute, limiter); err != nil {
		return fmt.Errorf("failed to schedule rate limiter pruning: %w", err)
	}
	scheduler.Start()

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("base_url", cfg.AppBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		logger.Info("server shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openBlobStore uses S3 when a bucket is configured and an in-memory store otherwise
func openBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.BlobStore, error) {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET not set, photos are kept in memory and lost on restart")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Region:         cfg.AWSRegion,
		Bucket:         cfg.S3Bucket,
		Endpoint:       cfg.S3Endpoint,
		ForcePathStyle: cfg.S3ForcePathStyle,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	logger.Info("using S3 storage", zap.String("bucket", cfg.S3Bucket))
	return store, nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/models"
	"familyphotos/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete export structure
type BackupData struct {
	Version     string              `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Members     []MemberBackup      `json:"members"`
	Profiles    []ProfileBackup     `json:"profiles"`
	Photos      []PhotoBackup       `json:"photos"`
	Comments    []models.Comment    `json:"comments"`
	Reactions   []models.Reaction   `json:"reactions"`
	Albums      []models.Album      `json:"albums"`
	AlbumPhotos []models.AlbumPhoto `json:"album_photos"`
}

// MemberBackup is a membership row including its invitation token
type MemberBackup struct {
	models.FamilyMember
	InvitationToken string `json:"invitation_token"`
}

// ProfileBackup is a profile including the storage key of its avatar
type ProfileBackup struct {
	models.Profile
	AvatarPath *string `json:"avatar_path,omitempty"`
}

// PhotoBackup is a photo including its storage key
type PhotoBackup struct {
	models.Photo
	StoragePath string `json:"storage_path"`
}

// BackupService exports the database for operators. It reads without the
// access gate and must only be reachable from operator tooling.
type BackupService struct {
	members   *repository.MemberRepository
	profiles  *repository.ProfileRepository
	photos    *repository.PhotoRepository
	comments  *repository.CommentRepository
	reactions *repository.ReactionRepository
	albums    *repository.AlbumRepository
	logger    *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(members *repository.MemberRepository, profiles *repository.ProfileRepository,
	photos *repository.PhotoRepository, comments *repository.CommentRepository,
	reactions *repository.ReactionRepository, albums *repository.AlbumRepository, logger *zap.Logger) *BackupService {
	return &BackupService{
		members:   members,
		profiles:  profiles,
		photos:    photos,
		comments:  comments,
		reactions: reactions,
		albums:    albums,
		logger:    logger,
	}
}

// Collect reads every exported table
func (s *BackupService) Collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{Version: backupVersion, ExportedAt: time.Now().UTC()}

	members, err := s.members.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export members: %w", err)
	}
	for _, m := range members {
		backup.Members = append(backup.Members, MemberBackup{FamilyMember: m, InvitationToken: m.InvitationToken})
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	for _, p := range profiles {
		backup.Profiles = append(backup.Profiles, ProfileBackup{Profile: p, AvatarPath: p.AvatarURL})
	}

	photos, err := s.photos.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export photos: %w", err)
	}
	for _, p := range photos {
		backup.Photos = append(backup.Photos, PhotoBackup{Photo: p, StoragePath: p.StoragePath})
	}

	if backup.Comments, err = s.comments.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export comments: %w", err)
	}
	if backup.Reactions, err = s.reactions.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export reactions: %w", err)
	}
	if backup.Albums, err = s.albums.All(ctx); err != nil {
		return nil, fmt.Errorf("failed to export albums: %w", err)
	}
	if backup.AlbumPhotos, err = s.albums.AllEntries(ctx); err != nil {
		return nil, fmt.Errorf("failed to export album photos: %w", err)
	}
	return backup, nil
}

// ExportTo writes the backup as indented JSON
func (s *BackupService) ExportTo(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

// Export creates a complete backup of the database in a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	s.logger.Info("starting database export", zap.String("output", outputPath))

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportTo(ctx, file)
	if err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}

	s.logger.Info("database exported",
		zap.String("output", outputPath),
		zap.Int("members", len(backup.Members)),
		zap.Int("profiles", len(backup.Profiles)),
		zap.Int("photos", len(backup.Photos)),
		zap.Int("comments", len(backup.Comments)),
		zap.Int("reactions", len(backup.Reactions)),
		zap.Int("albums", len(backup.Albums)),
	)
	return nil
}

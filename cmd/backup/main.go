package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"familyphotos/internal/config"
	"familyphotos/internal/database"
	"familyphotos/internal/logging"
	"familyphotos/internal/repository"
	"familyphotos/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	if len(os.Args) < 2 || os.Args[1] != "export" {
		printUsage()
		os.Exit(1)
	}
	exportCmd.Parse(os.Args[2:])

	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := runExport(context.Background(), cfg, logger, *exportOutput); err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
}

func runExport(ctx context.Context, cfg *config.Config, logger *zap.Logger, outputPath string) error {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if _, err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	backupService := service.NewBackupService(
		repository.NewMemberRepository(db),
		repository.NewProfileRepository(db),
		repository.NewPhotoRepository(db),
		repository.NewCommentRepository(db),
		repository.NewReactionRepository(db),
		repository.NewAlbumRepository(db),
		logger,
	)

	// Generate default filename if not provided
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := backupService.Export(ctx, outputPath); err != nil {
		return err
	}

	if info, err := os.Stat(outputPath); err == nil {
		logger.Info("export complete", zap.String("file", outputPath), zap.Float64("size_mb", float64(info.Size())/1024/1024))
	}
	return nil
}

func printUsage() {
	fmt.Println("Family Photos Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Photo files live in the blob store and are not part of the export.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH    SQLite database path (default: ./familyphotos.db)")
	fmt.Println("  DB_URL     PostgreSQL or MySQL connection URL")
}

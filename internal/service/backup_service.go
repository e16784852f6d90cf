package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"vocabquiz/internal/database"
	"vocabquiz/internal/models"
	"vocabquiz/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	DatabaseType string                  `json:"database_type"`
	Users        []UserBackup            `json:"users"`
	Words        []models.VocabItem      `json:"words"`
	Progress     []models.ProgressRecord `json:"progress"`
}

// UserBackup represents a user record for backup. Unlike models.User it keeps the hash.
type UserBackup struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// RestoreStats counts what an import wrote
type RestoreStats struct {
	Users        int
	SkippedUsers int
	Words        int
	Progress     int
}

// BackupService exports and imports the local database as JSON
type BackupService struct {
	db       *database.DB
	users    *repository.UserRepository
	vocab    *repository.VocabRepository
	progress *repository.ProgressRepository
	logger   *logrus.Entry
	now      func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *logrus.Logger) *BackupService {
	return &BackupService{
		db:       db,
		users:    repository.NewUserRepository(db),
		vocab:    repository.NewVocabRepository(db),
		progress: repository.NewProgressRepository(db),
		logger:   logger.WithField("service", "backup"),
		now:      time.Now,
	}
}

// Export writes the whole database to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	s.logger.Info("Starting database export")

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	words, err := s.vocab.ListVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export words: %w", err)
	}
	progress, err := s.progress.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export progress: %w", err)
	}

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Users: lo.Map(users, func(u models.User, _ int) UserBackup {
			return UserBackup{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
		}),
		Words:    words,
		Progress: progress,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"users":    len(backup.Users),
		"words":    len(backup.Words),
		"progress": len(backup.Progress),
	}).Info("Database exported successfully")
	return backup, nil
}

// Import restores a backup read from r. Users that already exist are kept as they
// are; words and progress overwrite rows with the same key.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (RestoreStats, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return RestoreStats{}, fmt.Errorf("failed to parse backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return RestoreStats{}, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.WithFields(logrus.Fields{
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
		"source":      backup.DatabaseType,
	}).Info("Starting database import")

	var stats RestoreStats
	for _, u := range backup.Users {
		created, err := s.users.RestoreUser(ctx, models.User{
			ID:           u.ID,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt,
		})
		if err != nil {
			return stats, err
		}
		if created {
			stats.Users++
		} else {
			stats.SkippedUsers++
		}
	}

	if err := s.vocab.RestoreVocabulary(ctx, backup.Words); err != nil {
		return stats, err
	}
	stats.Words = len(backup.Words)

	if err := s.progress.RestoreProgress(ctx, backup.Progress); err != nil {
		return stats, err
	}
	stats.Progress = len(backup.Progress)

	s.logger.WithFields(logrus.Fields{
		"users":         stats.Users,
		"skipped_users": stats.SkippedUsers,
		"words":         stats.Words,
		"progress":      stats.Progress,
	}).Info("Database import completed successfully")
	return stats, nil
}

package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/fallback"
	"github.com/spec-kit/service-desk/internal/repository"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// BackupService moves ticket lists between the repository and the local fallback store.
type BackupService struct {
	tickets  repository.TicketRepository
	fallback *fallback.Store
	logger   *zap.Logger
	now      func() time.Time
}

// NewBackupService builds the service.
func NewBackupService(tickets repository.TicketRepository, store *fallback.Store, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{tickets: tickets, fallback: store, logger: logger, now: time.Now}
}

// Snapshot copies every repository ticket into the fallback store and returns how many were
// written.
func (s *BackupService) Snapshot(ctx context.Context) (int, error) {
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		s.logger.Error("snapshot: list tickets failed", zap.Error(err))
		return 0, apperrors.NewInternalError(err)
	}
	if err := s.fallback.Save(ctx, tickets); err != nil {
		s.logger.Error("snapshot: save failed", zap.Error(err))
		return 0, apperrors.NewInternalError(err)
	}
	s.logger.Info("fallback snapshot saved", zap.Int("tickets", len(tickets)))
	return len(tickets), nil
}

// ExportFileName names an export taken now.
func (s *BackupService) ExportFileName() string {
	return fallback.ExportFileName(s.now())
}

// Export writes the fallback store's ticket list as indented JSON.
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	if err := s.fallback.Export(ctx, w); err != nil {
		s.logger.Error("export failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ExportToDir writes an export file into dir and returns its path.
func (s *BackupService) ExportToDir(ctx context.Context, dir string) (string, error) {
	path, err := s.fallback.ExportToDir(ctx, dir, s.now())
	if err != nil {
		s.logger.Error("export to dir failed", zap.String("dir", dir), zap.Error(err))
		return "", apperrors.NewInternalError(err)
	}
	return path, nil
}

// Import replaces the fallback store's list with an exported document.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (int, error) {
	tickets, err := s.fallback.Import(ctx, r)
	if errors.Is(err, fallback.ErrInvalidFormat) {
		return 0, apperrors.NewValidationError(err.Error(), nil)
	}
	if err != nil {
		s.logger.Error("import failed", zap.Error(err))
		return 0, apperrors.NewInternalError(err)
	}
	s.logger.Info("fallback import applied", zap.Int("tickets", len(tickets)))
	return len(tickets), nil
}

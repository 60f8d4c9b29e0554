package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/service-desk/internal/fallback"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/repository"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

func TestBackupSnapshotExportImport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTicketRepository(persistence.NewMemoryStore(), nil)
	_, _ = repo.Create(ctx, validIntake().Trimmed())
	_, _ = repo.Create(ctx, validIntake().Trimmed())

	store := fallback.NewStore(fallback.NewMemoryArea(), fallback.NewMemoryArea(), nil)
	svc := NewBackupService(repo, store, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	n, err := svc.Snapshot(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Snapshot() = %d, %v", n, err)
	}
	if svc.ExportFileName() != "service-tickets-2024-05-01.json" {
		t.Fatalf("ExportFileName() = %q", svc.ExportFileName())
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	other := NewBackupService(repo, fallback.NewStore(fallback.NewMemoryArea(), nil, nil), nil)
	n, err = other.Import(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("Import() = %d, %v", n, err)
	}

	_, err = other.Import(ctx, strings.NewReader("garbage"))
	de := apperrors.ToDomainError(err)
	if de == nil || de.Code != apperrors.CodeValidationFailed || de.HTTPStatus != http.StatusBadRequest || de.Message != "invalid file format" {
		t.Fatalf("Import(garbage) error = %v", err)
	}
}

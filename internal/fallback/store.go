package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
)

// Keys written by Save.
const (
	KeyTickets = "service_tickets"
	KeyBackup  = "service_tickets_backup"
)

// ErrInvalidFormat is returned by Import when the document is not a ticket list.
var ErrInvalidFormat = errors.New("invalid file format")

// Store is a local copy of the ticket list kept independently of the database. The primary
// area holds the list and its backup copy; the secondary area holds one more copy.
type Store struct {
	primary   Area
	secondary Area
	logger    *zap.Logger
}

// NewStore builds a Store. secondary may be nil.
func NewStore(primary, secondary Area, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{primary: primary, secondary: secondary, logger: logger}
}

// Save writes the list to every location. All writes are attempted; the first failure is
// returned.
func (s *Store) Save(ctx context.Context, tickets []domain.Ticket) error {
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	data, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("marshal tickets: %w", err)
	}
	value := string(data)

	var firstErr error
	for _, target := range s.locations() {
		if err := target.area.Set(ctx, target.key, value); err != nil {
			s.logger.Error("fallback save failed",
				zap.String("area", target.area.Name()),
				zap.String("key", target.key),
				zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("save %s/%s: %w", target.area.Name(), target.key, err)
			}
		}
	}
	return firstErr
}

// Load returns the first non-empty copy found. Unreadable or malformed data yields an empty
// list.
func (s *Store) Load(ctx context.Context) []domain.Ticket {
	for _, source := range s.locations() {
		value, ok, err := source.area.Get(ctx, source.key)
		if err != nil {
			s.logger.Warn("fallback read failed",
				zap.String("area", source.area.Name()),
				zap.String("key", source.key),
				zap.Error(err))
			continue
		}
		if !ok || value == "" {
			continue
		}

		var tickets []domain.Ticket
		if err := json.Unmarshal([]byte(value), &tickets); err != nil {
			s.logger.Error("fallback data is malformed",
				zap.String("area", source.area.Name()),
				zap.String("key", source.key),
				zap.Error(err))
			return []domain.Ticket{}
		}
		if tickets == nil {
			tickets = []domain.Ticket{}
		}
		return tickets
	}
	return []domain.Ticket{}
}

// Export writes the stored list as indented JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	data, err := json.MarshalIndent(s.Load(ctx), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportFileName is the download name for an export taken at now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("service-tickets-%s.json", now.UTC().Format("2006-01-02"))
}

// ExportToDir writes an export file into dir and returns its path.
func (s *Store) ExportToDir(ctx context.Context, dir string, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := s.Export(ctx, &buf); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ExportFileName(now))
	if err := atomic.WriteFile(path, &buf); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Import replaces the stored list with the document read from r.
func (s *Store) Import(ctx context.Context, r io.Reader) ([]domain.Ticket, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, ErrInvalidFormat
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	if err := s.Save(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

type location struct {
	area Area
	key  string
}

func (s *Store) locations() []location {
	locs := []location{
		{area: s.primary, key: KeyTickets},
		{area: s.primary, key: KeyBackup},
	}
	if s.secondary != nil {
		locs = append(locs, location{area: s.secondary, key: KeyTickets})
	}
	return locs
}

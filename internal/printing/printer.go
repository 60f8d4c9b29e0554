package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
)

// ErrSurfaceUnavailable means no rendering surface could present the document.
var ErrSurfaceUnavailable = errors.New("rendering surface unavailable")

// Surface presents a rendered document.
type Surface interface {
	Present(ctx context.Context, name string, document []byte) (string, error)
}

// Printer renders tickets and hands the documents to a surface.
type Printer struct {
	surface Surface
	logger  *zap.Logger
	opts    Options
}

// NewPrinter builds a printer.
func NewPrinter(surface Surface, logger *zap.Logger, opts Options) *Printer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Printer{surface: surface, logger: logger, opts: opts}
}

// Print renders the document of the given kind and presents it. It returns where the
// document ended up.
func (p *Printer) Print(ctx context.Context, kind Kind, t *domain.Ticket) (string, error) {
	doc, err := Render(kind, t, p.opts)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("service-%s-%s.html", kind, t.ShortID())
	location, err := p.surface.Present(ctx, name, doc)
	if err != nil {
		if errors.Is(err, ErrSurfaceUnavailable) {
			p.logger.Warn("unable to open print surface", zap.String("ticket_id", t.ID), zap.Error(err))
		}
		return "", err
	}
	p.logger.Info("document sent to print surface",
		zap.String("kind", string(kind)),
		zap.String("ticket_id", t.ID),
		zap.String("location", location))
	return location, nil
}

// BrowserSurface writes the document to a temporary file and opens it with the platform's
// default handler.
type BrowserSurface struct {
	dir      string
	goos     string
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// NewBrowserSurface returns a surface writing into dir (os.TempDir when empty).
func NewBrowserSurface(dir string) *BrowserSurface {
	if dir == "" {
		dir = os.TempDir()
	}
	return &BrowserSurface{
		dir:      dir,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			cmd := exec.Command(name, args...)
			if err := cmd.Start(); err != nil {
				return err
			}
			go func() { _ = cmd.Wait() }()
			return nil
		},
	}
}

func (s *BrowserSurface) Present(_ context.Context, name string, document []byte) (string, error) {
	opener, args := s.openerFor()
	bin, err := s.lookPath(opener)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrSurfaceUnavailable, opener)
	}

	path := filepath.Join(s.dir, name)
	if err := atomic.WriteFile(path, bytes.NewReader(document)); err != nil {
		return "", fmt.Errorf("write print document: %w", err)
	}

	if err := s.start(bin, append(args, path)...); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	return path, nil
}

func (s *BrowserSurface) openerFor() (string, []string) {
	switch s.goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// FileSurface writes the document to a fixed path.
type FileSurface struct {
	Path string
}

func (s FileSurface) Present(_ context.Context, _ string, document []byte) (string, error) {
	if s.Path == "" {
		return "", errors.New("file surface: empty path")
	}
	if err := atomic.WriteFile(s.Path, bytes.NewReader(document)); err != nil {
		return "", fmt.Errorf("write print document: %w", err)
	}
	return s.Path, nil
}

// Package cli implements ticketctl, the operator command line for the service desk.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/bootstrap"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/observability"
	"github.com/spec-kit/service-desk/internal/printing"
	"github.com/spec-kit/service-desk/internal/service"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// Options customises how commands reach the desk. Zero values use the environment
// configuration and the real store.
type Options struct {
	Out        io.Writer
	Err        io.Writer
	In         io.Reader
	Logger     *zap.Logger
	LoadConfig func() (*config.Config, error)
	Build      func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*bootstrap.Deps, error)
	// Surface replaces the browser used by print when --out is not given.
	Surface printing.Surface
	// User names the operator on published events. Defaults to $USER.
	User string
}

// runtime loads configuration and wires the desk on first use, so commands such as
// hash-password never open a store.
type runtime struct {
	opts   Options
	cfg    *config.Config
	logger *zap.Logger
	deps   *bootstrap.Deps
}

func (r *runtime) config() (*config.Config, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	cfg, err := r.opts.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	r.cfg = cfg
	return cfg, nil
}

func (r *runtime) log() (*zap.Logger, error) {
	if r.logger != nil {
		return r.logger, nil
	}
	cfg, err := r.config()
	if err != nil {
		return nil, err
	}
	// Command output owns stdout.
	logCfg := cfg.Logger
	logCfg.Output = "stderr"
	if os.Getenv("LOG_LEVEL") == "" {
		logCfg.Level = "warn"
	}
	logger, err := observability.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	r.logger = logger
	return logger, nil
}

func (r *runtime) desk(ctx context.Context) (*bootstrap.Deps, error) {
	if r.deps != nil {
		return r.deps, nil
	}
	cfg, err := r.config()
	if err != nil {
		return nil, err
	}
	logger, err := r.log()
	if err != nil {
		return nil, err
	}
	deps, err := r.opts.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	r.deps = deps
	return deps, nil
}

func (r *runtime) actor() events.Actor {
	return events.CLIActor(r.opts.User)
}

func (r *runtime) close() {
	if r.deps != nil {
		r.deps.Close()
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}

// NewRootCmd builds the ticketctl command tree. The returned func releases the store.
func NewRootCmd(opts Options) (*cobra.Command, func()) {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.LoadForCLI
	}
	if opts.Build == nil {
		opts.Build = bootstrap.Build
	}
	if opts.User == "" {
		opts.User = os.Getenv("USER")
	}
	rt := &runtime{opts: opts, logger: opts.Logger}

	root := &cobra.Command{
		Use:   "ticketctl",
		Short: "Service desk operator tool",
		Long: `ticketctl records, searches, updates and prints customer service tickets.
It talks to the same store as the HTTP service (STORE_DRIVER, POSTGRES_DSN, SQLITE_PATH).
With none of those set, tickets are kept in $XDG_DATA_HOME/service-desk/tickets.db.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}
	if opts.In != nil {
		root.SetIn(opts.In)
	}

	root.AddCommand(
		listCmd(rt),
		statsCmd(rt),
		showCmd(rt),
		createCmd(rt),
		updateCmd(rt),
		deleteCmd(rt),
		printCmd(rt),
		backupCmd(rt),
		dashCmd(rt),
		eventsCmd(rt),
		hashPasswordCmd(rt),
	)
	return root, rt.close
}

// FormatError renders err for the terminal, spelling out validation details.
func FormatError(err error) string {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return err.Error()
	}
	msg := domainErr.Message
	if fields, ok := domainErr.Details["fields"].([]string); ok && len(fields) > 0 {
		msg += ": " + strings.Join(fields, ", ")
	}
	if status, ok := domainErr.Details["status"].(string); ok && status != "" {
		msg += fmt.Sprintf(" %q (want one of %s)", status, statusChoices())
	}
	return msg
}

// resolveID accepts a full ticket id or the short form shown in listings, with or without
// the leading #.
func resolveID(ctx context.Context, tickets *service.TicketService, raw string) (string, error) {
	ref := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if ref == "" {
		return "", apperrors.NewValidationError("ticket id is required", nil)
	}
	if len(ref) > 6 {
		return ref, nil
	}
	matches, err := tickets.ListTickets(ctx, service.TicketListFilter{Query: ref})
	if err != nil {
		return "", err
	}
	var found []string
	for _, t := range matches {
		if t.ShortID() == strings.ToUpper(ref) {
			found = append(found, t.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", apperrors.NewNotFound("ticket", map[string]any{"id": ref})
	case 1:
		return found[0], nil
	default:
		sort.Strings(found)
		return "", apperrors.NewValidationError(
			fmt.Sprintf("#%s is ambiguous; use the full id (%s)", strings.ToUpper(ref), strings.Join(found, ", ")), nil)
	}
}

func statusColor(status domain.TicketStatus) *color.Color {
	switch status {
	case domain.TicketStatusOpen:
		return color.New(color.FgHiGreen)
	case domain.TicketStatusInProgress:
		return color.New(color.FgYellow)
	case domain.TicketStatusClosed:
		return color.New(color.FgHiBlack)
	}
	return color.New(color.FgWhite)
}

func coloredStatus(status domain.TicketStatus) string {
	return statusColor(status).Sprint(status.Label())
}

func statusChoices() string {
	names := make([]string, 0, len(domain.TicketStatuses))
	for _, s := range domain.TicketStatuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/auth"
	"github.com/spec-kit/service-desk/internal/bootstrap"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/printing"
)

type testDesk struct {
	t       *testing.T
	cfg     *config.Config
	deps    *bootstrap.Deps
	surface printing.Surface
}

func newTestDesk(t *testing.T) *testDesk {
	t.Helper()
	cfg := &config.Config{
		Store:    config.StoreConfig{Driver: config.StoreDriverMemory},
		Fallback: config.FallbackConfig{Enabled: true, Dir: t.TempDir(), ExportDir: t.TempDir()},
		Auth:     config.AuthConfig{BcryptCost: 4},
		Events:   config.EventsConfig{Queue: events.DefaultQueue},
	}
	deps, err := bootstrap.Build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("bootstrap.Build() error = %v", err)
	}
	t.Cleanup(deps.Close)
	return &testDesk{t: t, cfg: cfg, deps: deps}
}

// run executes one ticketctl invocation against the shared desk. Each call builds a fresh
// command tree so flag values never leak between invocations.
func (d *testDesk) run(stdin string, args ...string) (string, error) {
	d.t.Helper()
	var out bytes.Buffer
	root, _ := NewRootCmd(Options{
		Out:        &out,
		Err:        &out,
		In:         strings.NewReader(stdin),
		Logger:     zap.NewNop(),
		LoadConfig: func() (*config.Config, error) { return d.cfg, nil },
		Build: func(context.Context, *config.Config, *zap.Logger) (*bootstrap.Deps, error) {
			return d.deps, nil
		},
		Surface: d.surface,
		User:    "tester",
	})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func (d *testDesk) mustRun(args ...string) string {
	d.t.Helper()
	out, err := d.run("", args...)
	if err != nil {
		d.t.Fatalf("ticketctl %s: %s (output %q)", strings.Join(args, " "), FormatError(err), out)
	}
	return out
}

var createdID = regexp.MustCompile(`ID: (\S+)`)

func (d *testDesk) createJane() (id, short string) {
	d.t.Helper()
	out := d.mustRun("create",
		"--customer", "Jane Doe",
		"--contact", "555-0100",
		"--category", "Laptop",
		"--model", "ThinkPad X1",
		"--serial", "SN-42",
		"--problem", "Won't boot")
	match := createdID.FindStringSubmatch(out)
	if match == nil {
		d.t.Fatalf("create output = %q", out)
	}
	return match[1], domain.ShortID(match[1])
}

func TestTicketCommands(t *testing.T) {
	desk := newTestDesk(t)
	id, short := desk.createJane()

	out := desk.mustRun("list")
	if !strings.Contains(out, "#"+short) || !strings.Contains(out, "Jane Doe") {
		t.Fatalf("list output = %q", out)
	}
	if out := desk.mustRun("list", "--status", "closed"); !strings.Contains(out, "No tickets found") {
		t.Fatalf("closed list = %q", out)
	}
	if out := desk.mustRun("list", "-q", "thinkpad"); !strings.Contains(out, "#"+short) {
		t.Fatalf("search by model = %q", out)
	}

	out = desk.mustRun("update", "#"+short, "--status", "in-progress", "--note", "Diagnosing")
	if !strings.Contains(out, "Status changed to in-progress") {
		t.Fatalf("update output = %q", out)
	}

	out = desk.mustRun("show", strings.ToLower(short))
	for _, want := range []string{id, "Diagnosing", domain.DescriptionCreated, "ThinkPad X1"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q", want)
		}
	}

	if out := desk.mustRun("stats"); !strings.Contains(out, "Total:        1") {
		t.Fatalf("stats output = %q", out)
	}

	desk.mustRun("delete", id)
	if _, err := desk.run("", "show", id); err == nil || !strings.Contains(FormatError(err), "not found") {
		t.Fatalf("show after delete error = %v", err)
	}
}

func TestCreateReportsMissingFields(t *testing.T) {
	desk := newTestDesk(t)
	_, err := desk.run("", "create", "--customer", "Jane Doe")
	if err == nil {
		t.Fatal("create with missing fields should fail")
	}
	msg := FormatError(err)
	for _, field := range []string{"contactNumber", "productCategory", "productModel", "serialNumber", "problem"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error %q does not name %s", msg, field)
		}
	}
	if strings.Contains(msg, "customerName") {
		t.Errorf("error %q names a filled field", msg)
	}
}

func TestUpdateRejectsNoOpAndUnknownStatus(t *testing.T) {
	desk := newTestDesk(t)
	id, _ := desk.createJane()

	_, err := desk.run("", "update", id, "--status", "open")
	if err == nil || !strings.Contains(FormatError(err), "changes nothing") {
		t.Fatalf("no-op update error = %v", err)
	}

	_, err = desk.run("", "update", id, "--status", "waiting")
	if err == nil || !strings.Contains(FormatError(err), `"waiting"`) || !strings.Contains(FormatError(err), "in-progress") {
		t.Fatalf("unknown status error = %v", err)
	}

	if _, err := desk.run("", "show", "#FFFFFF"); err == nil || !strings.Contains(FormatError(err), "not found") {
		t.Fatalf("unknown short id error = %v", err)
	}
}

type recordingSurface struct {
	err  error
	docs map[string][]byte
}

func (s *recordingSurface) Present(_ context.Context, name string, document []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.docs == nil {
		s.docs = map[string][]byte{}
	}
	s.docs[name] = document
	return "window:" + name, nil
}

func TestPrintCommand(t *testing.T) {
	desk := newTestDesk(t)
	id, short := desk.createJane()
	dir := t.TempDir()

	ticketPath := filepath.Join(dir, "ticket.html")
	desk.mustRun("print", id, "--out", ticketPath)
	doc, err := os.ReadFile(ticketPath)
	if err != nil {
		t.Fatalf("read ticket document: %v", err)
	}
	if !strings.Contains(string(doc), "SERVICE TICKET") || strings.Contains(string(doc), "window.print") {
		t.Fatalf("ticket document is not a plain service ticket")
	}

	labelPath := filepath.Join(dir, "label.html")
	desk.mustRun("print", "#"+short, "--label", "--out", labelPath)
	doc, _ = os.ReadFile(labelPath)
	if !strings.Contains(string(doc), "SERVICE LABEL") {
		t.Fatalf("label document missing title")
	}

	surface := &recordingSurface{}
	desk.surface = surface
	out := desk.mustRun("print", id)
	if !strings.Contains(out, "window:") || len(surface.docs) != 1 {
		t.Fatalf("print output = %q, docs = %d", out, len(surface.docs))
	}
	for _, document := range surface.docs {
		if !strings.Contains(string(document), "window.print") {
			t.Fatal("document opened on a surface should print itself")
		}
	}

	desk.surface = &recordingSurface{err: printing.ErrSurfaceUnavailable}
	out, err = desk.run("", "print", id)
	if !errors.Is(err, printing.ErrSurfaceUnavailable) {
		t.Fatalf("print error = %v", err)
	}
	if !strings.Contains(out, "Unable to open a print window") {
		t.Fatalf("missing notice, output = %q", out)
	}
}

func TestBackupCommands(t *testing.T) {
	desk := newTestDesk(t)
	desk.createJane()

	if out := desk.mustRun("backup", "snapshot"); !strings.Contains(out, "Saved 1 tickets") {
		t.Fatalf("snapshot output = %q", out)
	}

	dir := t.TempDir()
	desk.mustRun("backup", "export", "--dir", dir)
	path := filepath.Join(dir, desk.deps.Backup.ExportFileName())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export file: %v", err)
	}
	if !strings.Contains(string(data), `"customerName": "Jane Doe"`) {
		t.Fatalf("export is not indented ticket JSON: %s", data)
	}

	if out := desk.mustRun("backup", "import", path); !strings.Contains(out, "Imported 1 tickets") {
		t.Fatalf("import output = %q", out)
	}

	garbage := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(garbage, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := desk.run("", "backup", "import", garbage); err == nil || FormatError(err) != "invalid file format" {
		t.Fatalf("garbage import error = %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	desk := newTestDesk(t)
	out, err := desk.run("s3cret\n", "hash-password")
	if err != nil {
		t.Fatalf("hash-password error = %v", err)
	}
	if err := auth.ComparePassword(strings.TrimSpace(out), "s3cret"); err != nil {
		t.Fatalf("printed hash does not verify: %v", err)
	}

	if _, err := desk.run("", "hash-password"); err == nil {
		t.Fatal("empty password should be rejected")
	}
}

func TestEventsTailRequiresBroker(t *testing.T) {
	desk := newTestDesk(t)
	_, err := desk.run("", "events", "tail")
	if err == nil || !strings.Contains(err.Error(), "RABBITMQ_URL") {
		t.Fatalf("events tail error = %v", err)
	}
}

func TestFormatEvent(t *testing.T) {
	line := formatEvent(events.Event{
		Type:      events.EventTicketNoteAdded,
		ShortID:   "ABC123",
		Actor:     events.CLIActor("alice"),
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Payload:   events.TicketNoteAddedPayload{Note: "Called customer"},
	})
	for _, want := range []string{"ticket.note_added", "#ABC123", "cli:alice", `"note":"Called customer"`} {
		if !strings.Contains(line, want) {
			t.Errorf("formatEvent() = %q, missing %q", line, want)
		}
	}
}

func TestTicketsPersistAcrossInvocationsByDefault(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "POSTGRES_DSN", "SQLITE_PATH", "RABBITMQ_URL", "AMQP_URL"} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("FALLBACK_DIR", t.TempDir())
	t.Setenv("FALLBACK_USE_REDIS", "false")

	invoke := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		root, closeDesk := NewRootCmd(Options{Out: &out, Err: &out, Logger: zap.NewNop(), User: "tester"})
		defer closeDesk()
		root.SetArgs(args)
		if err := root.Execute(); err != nil {
			t.Fatalf("ticketctl %s: %s", strings.Join(args, " "), FormatError(err))
		}
		return out.String()
	}

	invoke("create", "--customer", "Jane Doe", "--contact", "555-0100", "--category", "Printer",
		"--model", "LX-200", "--serial", "SN123", "--problem", "Paper jam")
	if out := invoke("list"); !strings.Contains(out, "Jane Doe") {
		t.Fatalf("second invocation lost the ticket: %q", out)
	}
}

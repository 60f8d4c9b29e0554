// Package printing renders tickets as printable HTML documents and hands them to a surface
// that can show or store them.
package printing

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Date layouts used on printed documents.
const (
	DateTimeLayout = "Jan 02, 2006 15:04"
	DateLayout     = "Jan 02, 2006"
)

// Kind selects the document layout.
type Kind string

const (
	KindTicket Kind = "ticket"
	KindLabel  Kind = "label"
)

// Options tunes rendering.
type Options struct {
	// AutoPrint embeds a script that prints and closes the document shortly after it loads.
	AutoPrint bool
	// Location is used for displayed times. Nil means time.Local.
	Location *time.Location
}

type documentData struct {
	Ticket      *domain.Ticket
	ShortID     string
	Created     string
	CreatedDate string
	Updated     string
	StatusText  string
	BadgeText   string
	AutoPrint   bool
}

// Render renders the document of the given kind.
func Render(kind Kind, t *domain.Ticket, opts Options) ([]byte, error) {
	switch kind {
	case KindTicket:
		return RenderTicket(t, opts)
	case KindLabel:
		return RenderLabel(t, opts)
	}
	return nil, fmt.Errorf("unknown document kind %q", kind)
}

// RenderTicket renders the full A6 service ticket.
func RenderTicket(t *domain.Ticket, opts Options) ([]byte, error) {
	return execute("ticket.html", t, opts)
}

// RenderLabel renders the 100mm x 50mm device label.
func RenderLabel(t *domain.Ticket, opts Options) ([]byte, error) {
	return execute("label.html", t, opts)
}

func execute(name string, t *domain.Ticket, opts Options) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("render %s: nil ticket", name)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	data := documentData{
		Ticket:      t,
		ShortID:     t.ShortID(),
		Created:     t.CreatedAt.In(loc).Format(DateTimeLayout),
		CreatedDate: t.CreatedAt.In(loc).Format(DateLayout),
		Updated:     t.UpdatedAt.In(loc).Format(DateTimeLayout),
		StatusText:  StatusText(t.Status),
		BadgeText:   strings.ToUpper(string(t.Status)),
		AutoPrint:   opts.AutoPrint,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// StatusText is the printed form of a status: upper case with the first hyphen as a space.
func StatusText(status domain.TicketStatus) string {
	return strings.ToUpper(strings.Replace(string(status), "-", " ", 1))
}

package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/api/http/handlers"
	"github.com/spec-kit/service-desk/internal/auth"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/fallback"
	"github.com/spec-kit/service-desk/internal/observability"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/printing"
	"github.com/spec-kit/service-desk/internal/repository"
	"github.com/spec-kit/service-desk/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	repo := repository.NewTicketRepository(persistence.NewMemoryStore(), logger)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repo,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})
	backup := service.NewBackupService(repo, fallback.NewStore(fallback.NewMemoryArea(), fallback.NewMemoryArea(), logger), logger)

	hash, err := auth.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	tokens := auth.NewTokenManager("test-secret", 5)
	authService := service.NewAuthService(config.AuthConfig{OperatorName: "desk", OperatorPasswordHash: hash}, tokens, logger)

	app := NewApp("service-desk")
	RegisterMiddlewares(app, logger, metrics, time.Second)
	routes := RouteConfig{
		Health:  handlers.NewHealthHandler("service-desk", "test", nil),
		Metrics: handlers.NewMetricsHandler(metrics),
		Auth:    handlers.NewAuthHandler(authService),
		Tickets: handlers.NewTicketsHandler(tickets, printing.Options{Location: time.UTC}),
		Backup:  handlers.NewBackupHandler(backup),
	}
	if withAuth {
		routes.AuthMiddleware = auth.NewAuthMiddleware(tokens)
	}
	RegisterRoutes(app, routes)
	return &testServer{app: app, tokens: tokens}
}

type apiResponse struct {
	status int
	header func(string) string
	body   []byte
}

func (s *testServer) do(t *testing.T, method, path, body, token string) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return apiResponse{status: resp.StatusCode, header: resp.Header.Get, body: data}
}

func decode[T any](t *testing.T, r apiResponse) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(r.body, &out); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
	return out
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type ticketBody struct {
	Data struct {
		ID      string `json:"id"`
		ShortID string `json:"shortId"`
		Status  string `json:"status"`
		History []struct {
			Action      string  `json:"action"`
			Description string  `json:"description"`
			Status      *string `json:"status"`
		} `json:"history"`
	} `json:"data"`
}

const janeDoe = `{"customerName":"Jane Doe","contactNumber":"555-0100","productCategory":"Laptop",` +
	`"productModel":"ThinkPad X1","serialNumber":"SN-42","problem":"Won't boot"}`

func TestTicketLifecycle(t *testing.T) {
	srv := newTestServer(t, false)

	created := srv.do(t, "POST", "/api/tickets", janeDoe, "")
	if created.status != fiber.StatusCreated {
		t.Fatalf("create status = %d body = %s", created.status, created.body)
	}
	ticket := decode[ticketBody](t, created)
	if ticket.Data.Status != "open" || len(ticket.Data.History) != 1 || ticket.Data.History[0].Action != "Created" {
		t.Fatalf("created ticket = %+v", ticket.Data)
	}
	id := ticket.Data.ID

	updated := srv.do(t, "PATCH", "/api/tickets/"+id, `{"status":"in-progress","note":"Diagnosing"}`, "")
	if updated.status != fiber.StatusOK {
		t.Fatalf("patch status = %d body = %s", updated.status, updated.body)
	}
	ticket = decode[ticketBody](t, updated)
	latest := ticket.Data.History[0]
	if ticket.Data.Status != "in-progress" || latest.Action != "Status changed to in-progress" ||
		latest.Description != "Diagnosing" || latest.Status == nil || *latest.Status != "in-progress" {
		t.Fatalf("updated ticket = %+v", ticket.Data)
	}

	list := decode[struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}](t, srv.do(t, "GET", "/api/tickets?q=jane&status=in-progress", "", ""))
	if len(list.Data) != 1 || list.Data[0].ID != id {
		t.Fatalf("list = %+v", list.Data)
	}

	stats := decode[struct {
		Data struct {
			Total      int `json:"total"`
			InProgress int `json:"inProgress"`
		} `json:"data"`
	}](t, srv.do(t, "GET", "/api/tickets/stats", "", ""))
	if stats.Data.Total != 1 || stats.Data.InProgress != 1 {
		t.Fatalf("stats = %+v", stats.Data)
	}

	if resp := srv.do(t, "DELETE", "/api/tickets/"+id, "", ""); resp.status != fiber.StatusNoContent {
		t.Fatalf("delete status = %d", resp.status)
	}
	missing := srv.do(t, "GET", "/api/tickets/"+id, "", "")
	if missing.status != fiber.StatusNotFound || decode[errorBody](t, missing).Error.Code != "NOT_FOUND" {
		t.Fatalf("get after delete = %d %s", missing.status, missing.body)
	}
}

func TestCreateTicketReportsBlankFields(t *testing.T) {
	srv := newTestServer(t, false)

	resp := srv.do(t, "POST", "/api/tickets", `{"customerName":"  ","contactNumber":"555"}`, "")
	if resp.status != fiber.StatusBadRequest {
		t.Fatalf("status = %d", resp.status)
	}
	body := decode[errorBody](t, resp)
	if body.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("code = %s", body.Error.Code)
	}
	fields, _ := body.Error.Details["fields"].([]any)
	if len(fields) != 5 || fields[0] != "customerName" {
		t.Fatalf("fields = %v", body.Error.Details)
	}
}

func TestUpdateTicketRejectsNoOp(t *testing.T) {
	srv := newTestServer(t, false)
	id := decode[ticketBody](t, srv.do(t, "POST", "/api/tickets", janeDoe, "")).Data.ID

	for _, payload := range []string{`{}`, `{"status":"open"}`, `{"note":"   "}`} {
		resp := srv.do(t, "PATCH", "/api/tickets/"+id, payload, "")
		if resp.status != fiber.StatusBadRequest || decode[errorBody](t, resp).Error.Code != "NO_CHANGES" {
			t.Fatalf("PATCH %s = %d %s", payload, resp.status, resp.body)
		}
	}

	resp := srv.do(t, "PATCH", "/api/tickets/"+id, `{"status":"waiting"}`, "")
	if resp.status != fiber.StatusBadRequest || decode[errorBody](t, resp).Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("invalid status = %d %s", resp.status, resp.body)
	}

	ticket := decode[ticketBody](t, srv.do(t, "GET", "/api/tickets/"+id, "", ""))
	if len(ticket.Data.History) != 1 {
		t.Fatalf("rejected updates wrote history: %+v", ticket.Data.History)
	}
}

func TestPrintEndpointsRenderHTML(t *testing.T) {
	srv := newTestServer(t, false)
	ticket := decode[ticketBody](t, srv.do(t, "POST", "/api/tickets", janeDoe, "")).Data

	resp := srv.do(t, "GET", "/api/tickets/"+ticket.ID+"/print", "", "")
	if resp.status != fiber.StatusOK || !strings.HasPrefix(resp.header(fiber.HeaderContentType), "text/html") {
		t.Fatalf("print = %d %s", resp.status, resp.header(fiber.HeaderContentType))
	}
	if !strings.Contains(string(resp.body), ticket.ShortID) || strings.Contains(string(resp.body), "window.print") {
		t.Fatalf("print body missing short id or has autoprint script")
	}

	resp = srv.do(t, "GET", "/api/tickets/"+ticket.ID+"/label?autoprint=1", "", "")
	if resp.status != fiber.StatusOK || !strings.Contains(string(resp.body), "window.print") {
		t.Fatalf("label autoprint = %d", resp.status)
	}

	if resp := srv.do(t, "GET", "/api/tickets/nope/label", "", ""); resp.status != fiber.StatusNotFound {
		t.Fatalf("label for missing ticket = %d", resp.status)
	}
}

func TestBackupEndpoints(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, "POST", "/api/tickets", janeDoe, "")

	snap := srv.do(t, "POST", "/api/backup/snapshot", "", "")
	if snap.status != fiber.StatusOK || !strings.Contains(string(snap.body), `"saved":1`) {
		t.Fatalf("snapshot = %d %s", snap.status, snap.body)
	}

	export := srv.do(t, "GET", "/api/backup/export", "", "")
	disposition := export.header(fiber.HeaderContentDisposition)
	if export.status != fiber.StatusOK || !strings.Contains(disposition, "service-tickets-") {
		t.Fatalf("export = %d %q", export.status, disposition)
	}
	if !strings.Contains(string(export.body), "Jane Doe") {
		t.Fatalf("export body = %s", export.body)
	}

	imported := srv.do(t, "POST", "/api/backup/import", string(export.body), "")
	if imported.status != fiber.StatusOK || !strings.Contains(string(imported.body), `"imported":1`) {
		t.Fatalf("import = %d %s", imported.status, imported.body)
	}

	bad := srv.do(t, "POST", "/api/backup/import", `{"not":"a list"}`, "")
	if bad.status != fiber.StatusBadRequest || decode[errorBody](t, bad).Error.Message != "invalid file format" {
		t.Fatalf("bad import = %d %s", bad.status, bad.body)
	}
}

func TestAPIRequiresOperatorTokenWhenAuthEnabled(t *testing.T) {
	srv := newTestServer(t, true)

	if resp := srv.do(t, "GET", "/api/tickets", "", ""); resp.status != fiber.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", resp.status)
	}

	bad := srv.do(t, "POST", "/auth/login", `{"name":"desk","password":"nope"}`, "")
	if bad.status != fiber.StatusUnauthorized {
		t.Fatalf("bad login = %d", bad.status)
	}

	login := srv.do(t, "POST", "/auth/login", `{"name":"desk","password":"s3cret"}`, "")
	if login.status != fiber.StatusOK {
		t.Fatalf("login = %d %s", login.status, login.body)
	}
	token := decode[struct {
		Token string `json:"token"`
	}](t, login).Token

	if resp := srv.do(t, "GET", "/api/tickets", "", token); resp.status != fiber.StatusOK {
		t.Fatalf("authorized status = %d %s", resp.status, resp.body)
	}
	if resp := srv.do(t, "GET", "/health/live", "", ""); resp.status != fiber.StatusOK {
		t.Fatalf("health must stay open, got %d", resp.status)
	}
}

func TestTicketSurvivesLaterRequestsAfterPatch(t *testing.T) {
	srv := newTestServer(t, false)
	id := decode[ticketBody](t, srv.do(t, "POST", "/api/tickets", janeDoe, "")).Data.ID

	if resp := srv.do(t, "PATCH", "/api/tickets/"+id, `{"status":"closed","note":"Fuse replaced"}`, ""); resp.status != fiber.StatusOK {
		t.Fatalf("patch status = %d body = %s", resp.status, resp.body)
	}
	// Same-length paths overwrite the request buffer the id was read from.
	other := "/api/tickets/" + strings.Repeat("x", len(id))
	for i := 0; i < 20; i++ {
		srv.do(t, "GET", other, "", "")
	}

	resp := srv.do(t, "GET", "/api/tickets/"+id, "", "")
	if resp.status != fiber.StatusOK {
		t.Fatalf("get after patch status = %d body = %s", resp.status, resp.body)
	}
	ticket := decode[ticketBody](t, resp)
	if ticket.Data.Status != "closed" || len(ticket.Data.History) != 2 {
		t.Fatalf("ticket after patch = %+v", ticket.Data)
	}
	if resp := srv.do(t, "DELETE", "/api/tickets/"+id, "", ""); resp.status != fiber.StatusNoContent {
		t.Fatalf("delete status = %d body = %s", resp.status, resp.body)
	}
}

func TestMetricsCountRequests(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, "GET", "/api/categories", "", "")
	srv.do(t, "GET", "/api/tickets/missing-1", "", "")
	srv.do(t, "GET", "/api/tickets/missing-2", "", "")

	snap := decode[observability.Snapshot](t, srv.do(t, "GET", "/metrics", "", ""))
	var categories bool
	for _, r := range snap.Requests {
		if strings.HasSuffix(r.Key, "|GET|200") && strings.Contains(r.Key, "categories") {
			categories = true
		}
	}
	var notFound []observability.ErrorStat
	for _, e := range snap.Errors {
		if strings.HasSuffix(e.Key, "|GET|NOT_FOUND") {
			notFound = append(notFound, e)
		}
	}
	if !categories {
		t.Fatalf("metrics snapshot = %+v", snap)
	}
	// Error counters are keyed by route pattern, not by the id in the path.
	if len(notFound) != 1 || notFound[0].Key != "/api/tickets/:id|GET|NOT_FOUND" || notFound[0].Count != 2 {
		t.Fatalf("not found counters = %+v", notFound)
	}
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kshitizz36/Urumi-AI/cmd/urumid/handlers"
	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
)

// requestOption mirrors the teacher's internal/testutils/http helper,
// adapted locally since that package isn't importable outside its own
// module.
type requestOption func(*http.Request) *http.Request

func withJSONBody() requestOption {
	return func(req *http.Request) *http.Request {
		req.Header.Set("Content-Type", "application/json")
		return req
	}
}

func newCtx(e *echo.Echo, method, target string, body io.Reader, opts ...requestOption) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, body)
	for _, opt := range opts {
		req = opt(req)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

type fakeOrchestrator struct {
	createFn func(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error)
	deleteFn func(ctx context.Context, id string) (*domain.Store, error)
	getFn    func(ctx context.Context, id string) (*domain.Store, error)
	listFn   func(ctx context.Context) ([]*domain.Store, error)
}

func (f *fakeOrchestrator) Create(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error) {
	return f.createFn(ctx, sourceIP, req)
}
func (f *fakeOrchestrator) Delete(ctx context.Context, id string) (*domain.Store, error) {
	return f.deleteFn(ctx, id)
}
func (f *fakeOrchestrator) Get(ctx context.Context, id string) (*domain.Store, error) {
	return f.getFn(ctx, id)
}
func (f *fakeOrchestrator) List(ctx context.Context) ([]*domain.Store, error) {
	return f.listFn(ctx)
}

func sampleStore() *domain.Store {
	now := time.Now().UTC()
	return &domain.Store{
		ID: "abcd1234", Name: "acme-shop", Namespace: "store-abcd1234",
		Engine: domain.EngineWoocommerce, Status: domain.StatusProvisioning,
		Phase:     phasePtr(domain.PhaseNamespace),
		CreatedAt: now, UpdatedAt: now,
	}
}

func phasePtr(p domain.Phase) *domain.Phase { return &p }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("response body is not valid JSON: %v (%s)", err, rec.Body.String())
	}
}

func TestCreateStoreHandlerAccepted(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	orch := &fakeOrchestrator{
		createFn: func(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error) {
			if req.Name != "acme-shop" || req.Engine != domain.EngineWoocommerce {
				t.Fatalf("unexpected request: %+v", req)
			}
			return sampleStore(), nil
		},
	}
	var appended []domain.AuditEntry
	audit := &fakeAudit{appendFn: func(ctx context.Context, e domain.AuditEntry) error {
		appended = append(appended, e)
		return nil
	}}

	body := bytes.NewBufferString(`{"name":"acme-shop","engine":"woocommerce"}`)
	c, rec := newCtx(e, http.MethodPost, "/api/stores", body, withJSONBody())

	if err := handlers.CreateStoreHandler(orch, audit)(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", rec.Code, rec.Body.String())
	}

	if len(appended) != 1 || appended[0].Action != domain.ActionCreateRequested {
		t.Fatalf("expected a store.create.requested audit entry, got %+v", appended)
	}
	if appended[0].StoreName == nil || *appended[0].StoreName != "acme-shop" {
		t.Errorf("expected audit entry to carry the requested name, got %+v", appended[0])
	}
	if appended[0].SourceIP == nil {
		t.Error("expected audit entry to carry the source IP")
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Store struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"store"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Data.Store.ID != "abcd1234" || resp.Data.Store.Status != "provisioning" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreateStoreHandlerValidationError(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	orch := &fakeOrchestrator{
		createFn: func(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error) {
			t.Fatal("orchestrator should not be called for an invalid body")
			return nil, nil
		},
	}
	audit := &fakeAudit{appendFn: func(ctx context.Context, e domain.AuditEntry) error {
		t.Fatal("audit should not be appended for an invalid body")
		return nil
	}}

	body := bytes.NewBufferString(`{"name":"AB","engine":"woocommerce"}`)
	c, rec := newCtx(e, http.MethodPost, "/api/stores", body, withJSONBody())

	err := handlers.CreateStoreHandler(orch, audit)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	if resp.Success || resp.Error.Code != "validation-error" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreateStoreHandlerCapConflict(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	orch := &fakeOrchestrator{
		createFn: func(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error) {
			return nil, domain.NewConflict("active store cap reached")
		},
	}
	audit := &fakeAudit{}

	body := bytes.NewBufferString(`{"name":"acme-shop","engine":"woocommerce"}`)
	c, rec := newCtx(e, http.MethodPost, "/api/stores", body, withJSONBody())

	err := handlers.CreateStoreHandler(orch, audit)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestGetStoreHandlerNotFound(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	orch := &fakeOrchestrator{
		getFn: func(ctx context.Context, id string) (*domain.Store, error) {
			return nil, domain.NewNotFound("store not found")
		},
	}

	c, rec := newCtx(e, http.MethodGet, "/api/stores/missing", nil)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := handlers.GetStoreHandler(orch)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestListStoresHandler(t *testing.T) {
	e := echo.New()
	orch := &fakeOrchestrator{
		listFn: func(ctx context.Context) ([]*domain.Store, error) {
			return []*domain.Store{sampleStore()}, nil
		},
	}

	c, rec := newCtx(e, http.MethodGet, "/api/stores", nil)
	if err := handlers.ListStoresHandler(orch)(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Stores []struct {
				ID string `json:"id"`
			} `json:"stores"`
		} `json:"data"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Data.Stores) != 1 || resp.Data.Stores[0].ID != "abcd1234" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestDeleteStoreHandlerSuccess(t *testing.T) {
	e := echo.New()
	deleted := sampleStore()
	deleted.Status = domain.StatusDeleted

	orch := &fakeOrchestrator{
		deleteFn: func(ctx context.Context, id string) (*domain.Store, error) {
			return deleted, nil
		},
	}
	var appended []domain.AuditEntry
	audit := &fakeAudit{appendFn: func(ctx context.Context, e domain.AuditEntry) error {
		appended = append(appended, e)
		return nil
	}}

	c, rec := newCtx(e, http.MethodDelete, "/api/stores/abcd1234", nil)
	c.SetParamNames("id")
	c.SetParamValues("abcd1234")

	if err := handlers.DeleteStoreHandler(orch, audit)(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	if len(appended) != 1 || appended[0].Action != domain.ActionDeleteRequested {
		t.Fatalf("expected a store.delete.requested audit entry, got %+v", appended)
	}
	if appended[0].StoreID == nil || *appended[0].StoreID != "abcd1234" {
		t.Errorf("expected audit entry to carry the store id, got %+v", appended[0])
	}
}

func TestDeleteStoreHandlerRejectsMidProvisioning(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	orch := &fakeOrchestrator{
		deleteFn: func(ctx context.Context, id string) (*domain.Store, error) {
			return nil, &domain.ErrInvalidStateChange{From: domain.StatusProvisioning, To: domain.StatusDeleting}
		},
	}
	audit := &fakeAudit{}

	c, rec := newCtx(e, http.MethodDelete, "/api/stores/abcd1234", nil)
	c.SetParamNames("id")
	c.SetParamValues("abcd1234")

	err := handlers.DeleteStoreHandler(orch, audit)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

type fakeAudit struct {
	queryFn  func(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error)
	appendFn func(ctx context.Context, e domain.AuditEntry) error
}

func (f *fakeAudit) Append(ctx context.Context, e domain.AuditEntry) error {
	if f.appendFn == nil {
		return nil
	}
	return f.appendFn(ctx, e)
}

func (f *fakeAudit) Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	return f.queryFn(ctx, q)
}
func (f *fakeAudit) HealthPing(ctx context.Context) bool { return true }

func TestListAuditHandlerLeavesDefaultLimitToAuditLog(t *testing.T) {
	e := echo.New()
	var gotLimit int
	audit := &fakeAudit{
		queryFn: func(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
			gotLimit = q.Limit
			return []domain.AuditEntry{{ID: 1, Action: domain.ActionCreateStarted, Details: "x"}}, nil
		},
	}

	c, rec := newCtx(e, http.MethodGet, "/api/audit", nil)
	if err := handlers.ListAuditHandler(audit)(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 0 {
		t.Errorf("expected no explicit limit forwarded (caller applies default), got %d", gotLimit)
	}
}

func TestListAuditHandlerRejectsBadLimit(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
	audit := &fakeAudit{
		queryFn: func(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
			t.Fatal("query should not run for a malformed limit")
			return nil, nil
		},
	}

	c, rec := newCtx(e, http.MethodGet, "/api/audit?limit=abc", nil)
	err := handlers.ListAuditHandler(audit)(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	e := echo.New()
	c, rec := newCtx(e, http.MethodGet, "/health/live", nil)
	if err := handlers.LivenessHandler()(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

type fakeRepoHealth struct{ ok bool }

func (f *fakeRepoHealth) HealthPing(ctx context.Context) bool { return f.ok }

func TestReadinessHandlerReflectsBothPings(t *testing.T) {
	e := echo.New()
	gw := gateway.NewFake()
	gw.Impl.HealthPing = func(ctx context.Context) bool { return true }

	c, rec := newCtx(e, http.MethodGet, "/health/ready", nil)
	if err := handlers.ReadinessHandler(gw, &fakeRepoHealth{ok: false})(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when repository ping fails, got %d", rec.Code)
	}
}

func TestReadinessHandlerOKWhenBothHealthy(t *testing.T) {
	e := echo.New()
	gw := gateway.NewFake()
	gw.Impl.HealthPing = func(ctx context.Context) bool { return true }

	c, rec := newCtx(e, http.MethodGet, "/health/ready", nil)
	if err := handlers.ReadinessHandler(gw, &fakeRepoHealth{ok: true})(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

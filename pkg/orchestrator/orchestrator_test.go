package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	kubeapps "k8s.io/api/apps/v1"

	"github.com/kshitizz36/Urumi-AI/pkg/config"
	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/posthook"
	"github.com/kshitizz36/Urumi-AI/pkg/tenancy"
	"github.com/kshitizz36/Urumi-AI/pkg/workload/application"
	"github.com/kshitizz36/Urumi-AI/pkg/workload/database"
)

type fakeRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.Store
	order []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*domain.Store{}}
}

func (r *fakeRepo) Create(ctx context.Context, s *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	r.order = append(r.order, s.ID)
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, s *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFound("store not found")
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) FindAll(ctx context.Context) ([]*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Store, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) CountActive(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if s.Status.Active() {
			n++
		}
	}
	return n, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *fakeAudit) Append(ctx context.Context, e domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		StoreDomain:             "stores.test.local",
		IngressClass:            "nginx",
		DatabaseReadyTimeout:    2 * time.Second,
		ApplicationReadyTimeout: 2 * time.Second,
		ProvisioningDeadline:    5 * time.Second,
		DeleteWaitTimeout:       2 * time.Second,
		DatabaseStorageSize:     "1Gi",
		ApplicationStorageSize:  "1Gi",
		ActiveStoreCap:          10,
		ShutdownGrace:           time.Second,
	}
}

// newTestOrchestrator wires an Orchestrator whose fake cluster marks a
// StatefulSet/Deployment ready the instant it's created, so readiness
// polling resolves on its first check instead of racing the test.
func newTestOrchestrator(cfg *config.Config) (*orchestrator, *fakeRepo, *fakeAudit, *gateway.FakeGateway) {
	fakeGW := gateway.NewFake()
	fakeGW.Impl.EnsureStatefulSet = func(ctx context.Context, namespace string, spec *kubeapps.StatefulSet) error {
		fakeGW.ReadyReplicas[namespace+"/"+spec.Name] = 1
		return nil
	}
	fakeGW.Impl.EnsureDeployment = func(ctx context.Context, namespace string, spec *kubeapps.Deployment) error {
		fakeGW.ReadyReplicas[namespace+"/"+spec.Name] = 1
		return nil
	}

	repo := newFakeRepo()
	audit := &fakeAudit{}
	logger := log.New("orchestrator-test")
	logger.SetLevel(log.OFF)

	o := New(
		repo, audit, fakeGW,
		tenancy.New(fakeGW), database.New(fakeGW), application.New(fakeGW),
		posthook.New(fakeGW, time.Second, logger),
		cfg, logger,
	).(*orchestrator)
	return o, repo, audit, fakeGW
}

func waitForStatus(t *testing.T, repo *fakeRepo, id string, want domain.Status, timeout time.Duration) *domain.Store {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s, err := repo.FindByID(context.Background(), id)
		if err == nil && s.Status == want {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store %s never reached status %s", id, want)
	return nil
}

func TestCreateProvisionsThroughToReady(t *testing.T) {
	o, repo, audit, fakeGW := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	store, err := o.Create(context.Background(), "1.2.3.4", domain.CreateRequest{Name: "acme-shop", Engine: domain.EngineWoocommerce})
	if err != nil {
		t.Fatal(err)
	}
	if store.Status != domain.StatusProvisioning {
		t.Fatalf("expected provisioning status immediately, got %s", store.Status)
	}

	ready := waitForStatus(t, repo, store.ID, domain.StatusReady, 2*time.Second)
	if ready.Phase != nil {
		t.Errorf("expected nil phase once ready, got %v", ready.Phase)
	}
	if ready.URL == nil || ready.AdminURL == nil || ready.ReadyAt == nil {
		t.Fatal("expected url/adminUrl/readyAt to be set")
	}
	if !ready.DBReady || !ready.AppReady {
		t.Error("expected both db and app ready flags set")
	}

	if fakeGW.Called.EnsureNamespace == 0 || fakeGW.Called.EnsureStatefulSet == 0 || fakeGW.Called.EnsureDeployment == 0 {
		t.Error("expected tenancy/database/application objects to be ensured")
	}

	actions := audit.actions()
	if len(actions) != 2 || actions[0] != domain.ActionCreateStarted || actions[1] != domain.ActionCreateSucceeded {
		t.Errorf("unexpected audit trail: %v", actions)
	}
}

func TestCreateRejectsReservedEngine(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	_, err := o.Create(context.Background(), "1.2.3.4", domain.CreateRequest{Name: "acme-shop", Engine: domain.EngineMedusa})
	if !domain.AsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsAtActiveCap(t *testing.T) {
	cfg := testConfig()
	cfg.ActiveStoreCap = 1
	o, repo, audit, _ := newTestOrchestrator(cfg)
	defer o.Shutdown(context.Background())

	repo.Create(context.Background(), &domain.Store{ID: "existing1", Status: domain.StatusReady, Namespace: "store-existing1"})

	_, err := o.Create(context.Background(), "1.2.3.4", domain.CreateRequest{Name: "acme-shop", Engine: domain.EngineWoocommerce})
	if !domain.AsConflict(err) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(audit.actions()) != 0 {
		t.Error("expected no audit entry on cap rejection")
	}
}

func TestFailedNamespacePhaseMarksStoreFailedAndCleansUp(t *testing.T) {
	o, repo, audit, fakeGW := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	injected := errors.New("cluster unreachable")
	fakeGW.Impl.EnsureNamespace = func(ctx context.Context, name string) error {
		return injected
	}

	store, err := o.Create(context.Background(), "1.2.3.4", domain.CreateRequest{Name: "acme-shop", Engine: domain.EngineWoocommerce})
	if err != nil {
		t.Fatal(err)
	}

	failed := waitForStatus(t, repo, store.ID, domain.StatusFailed, 2*time.Second)
	if failed.ErrorMessage == nil {
		t.Error("expected error message on failed store")
	}
	if failed.ErrorPhase == nil || *failed.ErrorPhase != domain.PhaseNamespace {
		t.Errorf("expected error phase namespace, got %v", failed.ErrorPhase)
	}

	actions := audit.actions()
	if len(actions) != 2 || actions[1] != domain.ActionCreateFailed {
		t.Errorf("unexpected audit trail: %v", actions)
	}
	if fakeGW.Called.DeleteNamespace == 0 {
		t.Error("expected cascade cleanup to delete the namespace")
	}
}

func TestDeleteIsIdempotentWhenAlreadyDeleted(t *testing.T) {
	o, repo, _, _ := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	repo.Create(context.Background(), &domain.Store{ID: "gone1", Status: domain.StatusDeleted, Namespace: "store-gone1"})

	s, err := o.Delete(context.Background(), "gone1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != domain.StatusDeleted {
		t.Errorf("expected deleted, got %s", s.Status)
	}
}

func TestDeleteRemovesNamespaceAndSoftDeletes(t *testing.T) {
	o, repo, audit, fakeGW := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	repo.Create(context.Background(), &domain.Store{ID: "ready1", Status: domain.StatusReady, Namespace: "store-ready1"})

	s, err := o.Delete(context.Background(), "ready1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != domain.StatusDeleted || s.DeletedAt == nil {
		t.Errorf("expected deleted with deletedAt set, got %+v", s)
	}
	if fakeGW.Called.DeleteNamespace == 0 {
		t.Error("expected namespace deletion")
	}

	actions := audit.actions()
	if len(actions) != 1 || actions[0] != domain.ActionDeleteSucceeded {
		t.Errorf("unexpected audit trail: %v", actions)
	}
}

func TestDeleteUnknownIDFails(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	if _, err := o.Delete(context.Background(), "missing"); !domain.AsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestDeleteWhileProvisioningIsRejected(t *testing.T) {
	o, repo, _, _ := newTestOrchestrator(testConfig())
	defer o.Shutdown(context.Background())

	repo.Create(context.Background(), &domain.Store{ID: "mid1", Status: domain.StatusProvisioning, Namespace: "store-mid1"})

	_, err := o.Delete(context.Background(), "mid1")
	if !domain.AsInvalidStateChange(err) {
		t.Fatalf("expected an invalid-state-change error, got %v", err)
	}
}

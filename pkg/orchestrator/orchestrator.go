// Package orchestrator is the phased state machine of §4.8: it runs
// admission checks synchronously, reserves a store record, and drives
// the rest of a create (or delete) through a background worker bound to
// a shared per-run deadline.
//
// Grounded on the teacher's plain `go func(){...}()` worker dispatch in
// cmd/knitd_backend/main.go (no worker-pool abstraction, just a tracked
// goroutine per unit of work) and on pkg/retry's Deadline/Wrap for
// budget propagation across phases.
package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/kshitizz36/Urumi-AI/pkg/config"
	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/posthook"
	"github.com/kshitizz36/Urumi-AI/pkg/retry"
	"github.com/kshitizz36/Urumi-AI/pkg/tenancy"
	"github.com/kshitizz36/Urumi-AI/pkg/workload/application"
	"github.com/kshitizz36/Urumi-AI/pkg/workload/database"
)

// StoreRepository is the subset of the Store Repository (§4.3) the
// orchestrator depends on. Satisfied structurally by
// pkg/store/postgres.Repository.
type StoreRepository interface {
	Create(ctx context.Context, s *domain.Store) error
	Update(ctx context.Context, s *domain.Store) error
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	FindAll(ctx context.Context) ([]*domain.Store, error)
	CountActive(ctx context.Context) (int, error)
}

// AuditLog is the subset of the Audit Log (§4.4) the orchestrator
// depends on. Satisfied structurally by pkg/audit/postgres.Log.
type AuditLog interface {
	Append(ctx context.Context, e domain.AuditEntry) error
}

// Orchestrator is the Orchestrator interface of §4.8: everything the
// admission surface needs to drive store lifecycle.
type Orchestrator interface {
	Create(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error)
	Delete(ctx context.Context, id string) (*domain.Store, error)
	Get(ctx context.Context, id string) (*domain.Store, error)
	List(ctx context.Context) ([]*domain.Store, error)
	Shutdown(ctx context.Context) error
}

type orchestrator struct {
	repo    StoreRepository
	audit   AuditLog
	gw      gateway.Gateway
	tenancy tenancy.Builder
	db      database.Workload
	app     application.Workload
	hook    posthook.Hook
	cfg     *config.Config
	log     *log.Logger

	workCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New wires one Orchestrator over its collaborators. The background
// worker context is derived here and cancelled on Shutdown.
func New(
	repo StoreRepository,
	audit AuditLog,
	gw gateway.Gateway,
	tenancyBuilder tenancy.Builder,
	db database.Workload,
	app application.Workload,
	hook posthook.Hook,
	cfg *config.Config,
	logger *log.Logger,
) Orchestrator {
	workCtx, cancel := context.WithCancel(context.Background())
	return &orchestrator{
		repo: repo, audit: audit, gw: gw,
		tenancy: tenancyBuilder, db: db, app: app, hook: hook,
		cfg: cfg, log: logger,
		workCtx: workCtx, cancel: cancel,
	}
}

// generateID returns an 8-char URL-safe opaque identifier (§3): 5
// random bytes, base32-encoded and lowercased, truncated to 8 chars.
// The base32 alphabet is already URL-safe, so no further escaping is
// needed.
func generateID() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	enc := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf))
	if len(enc) < 8 {
		return "", fmt.Errorf("short id encoding too short: %q", enc)
	}
	return enc[:8], nil
}

// Create runs the §4.8 admission checks and reservation, then dispatches
// the background pipeline. The returned record reflects the reservation
// only; later phases land via repository updates the caller observes
// through Get/List.
func (o *orchestrator) Create(ctx context.Context, sourceIP string, req domain.CreateRequest) (*domain.Store, error) {
	if req.Engine != domain.EngineWoocommerce {
		return nil, domain.NewValidation(fmt.Sprintf("engine %q is not provisionable", req.Engine))
	}

	active, err := o.repo.CountActive(ctx)
	if err != nil {
		return nil, domain.NewInternalCausedBy("failed to count active stores", err)
	}
	if active >= o.cfg.ActiveStoreCap {
		return nil, domain.NewConflict("active store cap reached")
	}

	id, err := generateID()
	if err != nil {
		return nil, domain.NewInternalCausedBy("failed to generate store id", err)
	}
	namespace := domain.NamespaceForID(id)
	phase := domain.PhaseNamespace
	now := time.Now().UTC()

	store := &domain.Store{
		ID:        id,
		Name:      req.Name,
		Namespace: namespace,
		Engine:    req.Engine,
		Status:    domain.StatusProvisioning,
		Phase:     &phase,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.repo.Create(ctx, store); err != nil {
		return nil, domain.NewInternalCausedBy("failed to reserve store record", err)
	}

	o.audit.Append(ctx, domain.AuditEntry{
		Timestamp: now, Action: domain.ActionCreateStarted,
		StoreID: &store.ID, StoreName: &store.Name, Engine: &store.Engine,
		SourceIP: nonEmptyPtr(sourceIP),
		Details:  fmt.Sprintf("namespace=%s", namespace),
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runPipeline(id)
	}()

	return store, nil
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// runPipeline drives the background phases of one store (§4.8). It owns
// the store's only writer during provisioning; phase order is strict
// and each checkpoint is committed before the next phase starts.
func (o *orchestrator) runPipeline(id string) {
	ctx := o.workCtx
	deadline := retry.NewDeadline(o.cfg.ProvisioningDeadline)

	store, err := o.repo.FindByID(ctx, id)
	if err != nil {
		o.log.Warnf("orchestrator: lost reservation for %s before pipeline start: %v", id, err)
		return
	}

	if err := o.phaseNamespace(ctx, deadline, store); err != nil {
		o.failPipeline(ctx, store, err)
		return
	}
	connDesc, err := o.phaseDatabase(ctx, deadline, store)
	if err != nil {
		o.failPipeline(ctx, store, err)
		return
	}
	result, err := o.phaseApplication(ctx, deadline, store, connDesc)
	if err != nil {
		o.failPipeline(ctx, store, err)
		return
	}
	o.phaseValidation(ctx, store, result)
}

func (o *orchestrator) phaseNamespace(ctx context.Context, deadline *retry.Deadline, store *domain.Store) error {
	_, err := retry.Wrap(ctx, deadline, func(cctx context.Context) (struct{}, error) {
		return struct{}{}, o.tenancy.Build(cctx, store.Namespace, store)
	})
	if err != nil {
		return err
	}
	return o.checkpoint(ctx, store, domain.StorePatch{Phase: phasePtr(domain.PhaseDatabase)})
}

func (o *orchestrator) phaseDatabase(ctx context.Context, deadline *retry.Deadline, store *domain.Store) (database.ConnectionDescriptor, error) {
	var zero database.ConnectionDescriptor
	conn, err := retry.Wrap(ctx, deadline, func(cctx context.Context) (database.ConnectionDescriptor, error) {
		return o.db.Deploy(cctx, store.Namespace, o.cfg.DatabaseStorageSize)
	})
	if err != nil {
		return zero, err
	}
	if _, err := retry.Wrap(ctx, deadline, func(cctx context.Context) (struct{}, error) {
		return struct{}{}, o.db.WaitReady(cctx, store.Namespace, o.cfg.DatabaseReadyTimeout)
	}); err != nil {
		return zero, err
	}
	if err := o.checkpoint(ctx, store, domain.StorePatch{
		DBReady: boolPtr(true), Phase: phasePtr(domain.PhaseApplication),
	}); err != nil {
		return zero, err
	}
	return conn, nil
}

func (o *orchestrator) phaseApplication(ctx context.Context, deadline *retry.Deadline, store *domain.Store, conn database.ConnectionDescriptor) (application.DeployResult, error) {
	var zero application.DeployResult
	appConn := application.ConnectionDescriptor{
		Host: conn.Host, Port: conn.Port, DBName: conn.DBName, User: conn.User, SecretName: conn.SecretName,
	}
	result, err := retry.Wrap(ctx, deadline, func(cctx context.Context) (application.DeployResult, error) {
		return o.app.Deploy(cctx, store.Namespace, store.ID, store.Name, o.cfg.StoreDomain, o.cfg.IngressClass, o.cfg.ApplicationStorageSize, appConn)
	})
	if err != nil {
		return zero, err
	}
	if _, err := retry.Wrap(ctx, deadline, func(cctx context.Context) (struct{}, error) {
		return struct{}{}, o.app.WaitReady(cctx, store.Namespace, o.cfg.ApplicationReadyTimeout)
	}); err != nil {
		return zero, err
	}
	if err := o.checkpoint(ctx, store, domain.StorePatch{
		AppReady: boolPtr(true), Phase: phasePtr(domain.PhaseValidation),
	}); err != nil {
		return zero, err
	}
	return result, nil
}

// phaseValidation runs the best-effort post-install hook and transitions
// to ready regardless of the hook's own outcome (§4.8 step 4).
func (o *orchestrator) phaseValidation(ctx context.Context, store *domain.Store, result application.DeployResult) {
	o.hook.Run(ctx, store.Namespace, store.ID, result.Hostname)

	url := fmt.Sprintf("http://%s", result.Hostname)
	adminURL := url + "/wp-admin"
	readyAt := time.Now().UTC()
	durationMs := readyAt.Sub(store.CreatedAt).Milliseconds()

	if err := o.repo.Update(ctx, applyOrPanic(store, domain.StorePatch{
		Status: statusPtr(domain.StatusReady), ClearPhase: true,
		URL: &url, AdminURL: &adminURL, ReadyAt: &readyAt,
		ProvisioningDurationMs: &durationMs,
	})); err != nil {
		o.log.Warnf("orchestrator: failed to commit ready state for %s: %v", store.ID, err)
		return
	}

	o.audit.Append(ctx, domain.AuditEntry{
		Timestamp: readyAt, Action: domain.ActionCreateSucceeded,
		StoreID: &store.ID, StoreName: &store.Name, Engine: &store.Engine,
		Details:  fmt.Sprintf("url=%s", url),
		Duration: durationPtr(time.Duration(durationMs) * time.Millisecond),
	})
}

// checkpoint commits patch to the repository and mutates store in place
// so later phases observe the latest committed state (§5 ordering
// guarantee).
func (o *orchestrator) checkpoint(ctx context.Context, store *domain.Store, patch domain.StorePatch) error {
	next := applyOrPanic(store, patch)
	if err := o.repo.Update(ctx, next); err != nil {
		return err
	}
	*store = *next
	return nil
}

// failPipeline implements §4.8's failure handling: read the current
// phase, transition to failed, record the audit entry, and best-effort
// cascade-delete the namespace.
func (o *orchestrator) failPipeline(ctx context.Context, store *domain.Store, cause error) {
	current, err := o.repo.FindByID(ctx, store.ID)
	if err != nil {
		current = store
	}
	errPhase := current.Phase
	msg := cause.Error()

	failed := applyOrPanic(current, domain.StorePatch{
		Status: statusPtr(domain.StatusFailed),
		ClearPhase: true,
		ErrorMessage: &msg, ErrorPhase: errPhase,
	})
	if err := o.repo.Update(ctx, failed); err != nil {
		o.log.Warnf("orchestrator: failed to record failure for %s: %v", store.ID, err)
	}

	o.audit.Append(ctx, domain.AuditEntry{
		Timestamp: time.Now().UTC(), Action: domain.ActionCreateFailed,
		StoreID: &store.ID, StoreName: &store.Name, Engine: &store.Engine,
		Details: msg,
	})

	if err := o.gw.DeleteNamespace(context.Background(), store.Namespace); err != nil {
		o.log.Warnf("orchestrator: cascade cleanup of namespace %s failed: %v", store.Namespace, err)
	}
}

// Delete implements the §4.8 delete flow.
func (o *orchestrator) Delete(ctx context.Context, id string) (*domain.Store, error) {
	store, err := o.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if store.Status == domain.StatusDeleted {
		return store, nil
	}

	// A store still mid-pipeline has no provisioning -> deleting entry in
	// the §4.8 table; reject it instead of racing the background pipeline.
	if err := domain.CheckTransition(store.Status, domain.StatusDeleting); err != nil {
		return nil, err
	}

	deleting := applyOrPanic(store, domain.StorePatch{Status: statusPtr(domain.StatusDeleting)})
	if err := o.repo.Update(ctx, deleting); err != nil {
		return nil, domain.NewInternalCausedBy("failed to record deleting state", err)
	}

	if err := o.deleteAndWait(ctx, deleting); err != nil {
		msg := fmt.Sprintf("Deletion failed: %v", err)
		failed := applyOrPanic(deleting, domain.StorePatch{
			Status: statusPtr(domain.StatusFailed), ErrorMessage: &msg,
		})
		o.repo.Update(ctx, failed)
		o.audit.Append(ctx, domain.AuditEntry{
			Timestamp: time.Now().UTC(), Action: domain.ActionDeleteFailed,
			StoreID: &store.ID, StoreName: &store.Name, Engine: &store.Engine,
			Details: msg,
		})
		return nil, domain.NewInternalCausedBy(msg, err)
	}

	deletedAt := time.Now().UTC()
	deleted := applyOrPanic(deleting, domain.StorePatch{
		Status: statusPtr(domain.StatusDeleted), DeletedAt: &deletedAt,
	})
	if err := o.repo.Update(ctx, deleted); err != nil {
		return nil, domain.NewInternalCausedBy("failed to record deleted state", err)
	}
	o.audit.Append(ctx, domain.AuditEntry{
		Timestamp: deletedAt, Action: domain.ActionDeleteSucceeded,
		StoreID: &store.ID, StoreName: &store.Name, Engine: &store.Engine,
		Details: "namespace removed",
	})
	return deleted, nil
}

const (
	namespaceGoneCheckInterval = 2 * time.Second
)

// deleteAndWait deletes the namespace with foreground propagation and
// polls for it to disappear, up to the configured wait timeout (§4.8).
func (o *orchestrator) deleteAndWait(ctx context.Context, store *domain.Store) error {
	if err := o.gw.DeleteNamespace(ctx, store.Namespace); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, o.cfg.DeleteWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(namespaceGoneCheckInterval)
	defer ticker.Stop()

	for {
		ns, err := o.gw.GetNamespace(cctx, store.Namespace)
		if err != nil {
			return err
		}
		if ns == nil {
			return nil
		}
		select {
		case <-cctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("namespace %s not gone after %s", store.Namespace, o.cfg.DeleteWaitTimeout)
		case <-ticker.C:
		}
	}
}

func (o *orchestrator) Get(ctx context.Context, id string) (*domain.Store, error) {
	return o.repo.FindByID(ctx, id)
}

func (o *orchestrator) List(ctx context.Context) ([]*domain.Store, error) {
	return o.repo.FindAll(ctx)
}

// Shutdown cancels in-flight workers cooperatively and waits up to
// cfg.ShutdownGrace for them to unwind (§5).
func (o *orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(o.cfg.ShutdownGrace):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func applyOrPanic(store *domain.Store, patch domain.StorePatch) *domain.Store {
	next := *store
	if err := next.Apply(patch); err != nil {
		// Every caller here applies a transition already permitted by
		// §4.8's table for the state it just read; an error means a
		// concurrent mutation raced this one.
		panic(fmt.Sprintf("orchestrator: unexpected invalid transition: %v", err))
	}
	next.UpdatedAt = time.Now().UTC()
	return &next
}

func statusPtr(s domain.Status) *domain.Status { return &s }
func phasePtr(p domain.Phase) *domain.Phase     { return &p }
func boolPtr(b bool) *bool                      { return &b }
func durationPtr(d time.Duration) *time.Duration { return &d }

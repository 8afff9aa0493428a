package orchestrator

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/kshitizz36/Urumi-AI/pkg/config"
	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/loop"
)

// Reaper resolves §9's crash-recovery open question: a record left in
// `provisioning` past its deadline (because the process crashed or was
// killed mid-pipeline) is not resumed — it is failed and its namespace
// is best-effort cleaned up, the same outcome a live worker would reach
// on its own deadline.
//
// Grounded on pkg/loop.Start for the periodic-task shape, generalizing
// the teacher's polling idiom from a single-resource wait into a
// repository-wide sweep.
type Reaper struct {
	repo     StoreRepository
	audit    AuditLog
	gw       gateway.Gateway
	deadline time.Duration
	grace    time.Duration
	interval time.Duration
	log      *log.Logger
}

// NewReaper builds a Reaper over repo/audit/gw, reaping provisioning
// records older than deadline+grace, checked every interval.
func NewReaper(repo StoreRepository, audit AuditLog, gw gateway.Gateway, cfg *config.Config, logger *log.Logger) *Reaper {
	return &Reaper{
		repo: repo, audit: audit, gw: gw,
		deadline: cfg.ProvisioningDeadline, grace: cfg.ReaperGrace,
		interval: cfg.ReaperInterval, log: logger,
	}
}

// Start runs the sweep loop until ctx is done.
func (r *Reaper) Start(ctx context.Context) error {
	_, err := loop.Start(ctx, struct{}{}, func(ctx context.Context, v struct{}) (struct{}, loop.Next) {
		if err := r.sweep(ctx); err != nil {
			r.log.Warnf("reaper: sweep failed: %v", err)
		}
		return v, loop.Continue(r.interval)
	})
	return err
}

func (r *Reaper) sweep(ctx context.Context) error {
	stores, err := r.repo.FindAll(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-(r.deadline + r.grace))
	for _, s := range stores {
		if s.Status != domain.StatusProvisioning || s.CreatedAt.After(cutoff) {
			continue
		}
		r.reapOne(ctx, s)
	}
	return nil
}

func (r *Reaper) reapOne(ctx context.Context, store *domain.Store) {
	msg := "stale: provisioning exceeded its deadline and was not resumed after a restart"
	failed := applyOrPanic(store, domain.StorePatch{
		Status: statusPtr(domain.StatusFailed), ClearPhase: true,
		ErrorMessage: &msg, ErrorPhase: store.Phase,
	})
	if err := r.repo.Update(ctx, failed); err != nil {
		r.log.Warnf("reaper: failed to mark %s failed: %v", store.ID, err)
		return
	}

	r.audit.Append(ctx, domain.AuditEntry{
		Timestamp: time.Now().UTC(), Action: domain.ActionCreateFailed,
		StoreID: &store.ID, StoreName: &store.Name, Engine: &store.Engine,
		Details: msg,
	})

	if err := r.gw.DeleteNamespace(ctx, store.Namespace); err != nil {
		r.log.Warnf("reaper: cascade cleanup of namespace %s failed: %v", store.Namespace, err)
	}
}

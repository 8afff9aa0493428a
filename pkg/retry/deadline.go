package retry

import (
	"context"
	"time"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

// Deadline is a per-run time budget shared by all phases of a single
// provisioning run (§4.1, §9 glossary). All phase and inner operations
// of one run share one Deadline value.
type Deadline struct {
	deadline time.Time
}

// NewDeadline acquires a deadline with a total budget starting now.
func NewDeadline(budget time.Duration) *Deadline {
	return &Deadline{deadline: time.Now().Add(budget)}
}

// Remaining reports the time left before the deadline. It is never
// negative.
func (d *Deadline) Remaining() time.Duration {
	r := time.Until(d.deadline)
	if r < 0 {
		return 0
	}
	return r
}

// Expired reports whether the budget has been exhausted.
func (d *Deadline) Expired() bool {
	return !time.Now().Before(d.deadline)
}

// Check fails with a deadline-exceeded error (§7) when expired.
func (d *Deadline) Check() error {
	if d.Expired() {
		return domain.NewDeadlineExceeded("deadline exceeded")
	}
	return nil
}

// Wrap races f against the remaining budget, deriving a bounded context
// from ctx. A deadline already expired fails immediately with
// deadline-exceeded, honoring §8's "a deadline of 0 causes immediate
// deadline-exceeded".
func Wrap[T any](ctx context.Context, d *Deadline, f func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := d.Check(); err != nil {
		return zero, err
	}

	cctx, cancel := context.WithTimeout(ctx, d.Remaining())
	defer cancel()

	v, err := f(cctx)
	if err != nil && cctx.Err() != nil {
		return v, domain.NewDeadlineExceeded("deadline exceeded")
	}
	return v, err
}

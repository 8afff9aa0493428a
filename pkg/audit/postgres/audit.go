// Package postgres is the Audit Log of §4.4: an append-only,
// monotonic-id record of every store lifecycle event, persisted
// alongside the Store Repository (resolving §9's durability open
// question — see DESIGN.md) and mirrored to structured logs.
//
// Grounded on the same pool/scanner repository idiom as
// pkg/store/postgres, and on the teacher's convention of routing
// everything interesting through the echo/gommon logger.
package postgres

import (
	"context"
	"regexp"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/kshitizz36/Urumi-AI/pkg/conn/db/postgres/pool"
	"github.com/kshitizz36/Urumi-AI/pkg/conn/db/postgres/scanner"
	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id          bigserial PRIMARY KEY,
	ts          timestamptz NOT NULL,
	action      text NOT NULL,
	store_id    text,
	store_name  text,
	engine      text,
	source_ip   text,
	details     text NOT NULL,
	duration_ms bigint
);
CREATE INDEX IF NOT EXISTS audit_log_store_id_idx ON audit_log (store_id);
CREATE INDEX IF NOT EXISTS audit_log_action_idx ON audit_log (action);
`

// redactPattern matches `key=value`, `key: value`, or `"key":"value"`
// pairs whose key looks like a credential (§9).
var redactPattern = regexp.MustCompile(`(?i)((?:password|secret|token)[a-z0-9_-]*"?\s*[:=]\s*"?)[^\s"',}]+`)

// row is the wire shape the scanner maps audit_log columns onto.
type row struct {
	ID         int64      `sql:"id"`
	Timestamp  time.Time  `sql:"ts"`
	Action     string     `sql:"action"`
	StoreID    *string    `sql:"store_id"`
	StoreName  *string    `sql:"store_name"`
	Engine     *string    `sql:"engine"`
	SourceIP   *string    `sql:"source_ip"`
	Details    string     `sql:"details"`
	DurationMs *int64     `sql:"duration_ms"`
}

func (r row) toDomain() domain.AuditEntry {
	e := domain.AuditEntry{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Action:    r.Action,
		StoreID:   r.StoreID,
		StoreName: r.StoreName,
		SourceIP:  r.SourceIP,
		Details:   r.Details,
	}
	if r.Engine != nil {
		eng := domain.Engine(*r.Engine)
		e.Engine = &eng
	}
	if r.DurationMs != nil {
		d := time.Duration(*r.DurationMs) * time.Millisecond
		e.Duration = &d
	}
	return e
}

// Log is the Audit Log interface the orchestrator and admission surface
// depend on.
type Log interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, e domain.AuditEntry) error
	Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error)
	HealthPing(ctx context.Context) bool
}

type auditLog struct {
	pool pool.Pool
}

// New wraps p into a Log.
func New(p pool.Pool) Log {
	return &auditLog{pool: p}
}

func (a *auditLog) withConn(ctx context.Context, f func(pool.Conn) error) error {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return f(conn)
}

func (a *auditLog) Init(ctx context.Context) error {
	return a.withConn(ctx, func(c pool.Conn) error {
		_, err := c.Exec(ctx, schema)
		return err
	})
}

// Append inserts e and emits a matching structured log line with any
// value under a password/secret/token-shaped key redacted.
func (a *auditLog) Append(ctx context.Context, e domain.AuditEntry) error {
	var durationMs *int64
	if e.Duration != nil {
		ms := e.Duration.Milliseconds()
		durationMs = &ms
	}
	var engine *string
	if e.Engine != nil {
		s := string(*e.Engine)
		engine = &s
	}

	err := a.withConn(ctx, func(c pool.Conn) error {
		_, err := c.Exec(ctx, `
			INSERT INTO audit_log (ts, action, store_id, store_name, engine, source_ip, details, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.Timestamp, e.Action, e.StoreID, e.StoreName, engine, e.SourceIP, e.Details, durationMs)
		return err
	})
	if err != nil {
		return err
	}

	log.Infof("audit: action=%s store=%v %s", e.Action, e.StoreID, redact(e.Details))
	return nil
}

// redact masks the value half of any `key=value`/`key: value` pair
// whose key matches /(?i)(password|secret|token)/ (§9).
func redact(details string) string {
	return redactPattern.ReplaceAllString(details, "${1}***")
}

// Query returns matching entries, most-recent first, limited to
// q.Limit (default domain.DefaultAuditLimit).
func (a *auditLog) Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultAuditLimit
	}

	var out []domain.AuditEntry
	err := a.withConn(ctx, func(c pool.Conn) error {
		sql := `
			SELECT id, ts, action, store_id, store_name, engine, source_ip, details, duration_ms
			FROM audit_log
			WHERE ($1::text IS NULL OR store_id = $1)
			  AND ($2::text IS NULL OR action = $2)
			ORDER BY id DESC
			LIMIT $3
		`
		rows, err := scanner.New[row]().QueryAll(ctx, c, sql, q.StoreID, q.Action, limit)
		if err != nil {
			return err
		}
		out = make([]domain.AuditEntry, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return nil
	})
	return out, err
}

func (a *auditLog) HealthPing(ctx context.Context) bool {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer conn.Release()
	return conn.Ping(ctx) == nil
}

// Package postgres is the Store Repository of §4.3: the durable system
// of record for store entities, backed by a single Postgres table with
// an auto-initialized schema.
//
// Grounded on the teacher's pgx/v4 stack: pool.Pool for connection
// management and scanner.Scanner[T] (pkg/conn/db/postgres/{pool,
// scanner}) for mapping result rows onto the local row struct by
// `sql:"..."` tag (then converted to *domain.Store by row.toDomain),
// reused verbatim rather than reimplemented.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kshitizz36/Urumi-AI/pkg/conn/db/postgres/pool"
	"github.com/kshitizz36/Urumi-AI/pkg/conn/db/postgres/scanner"
	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS store (
	id                         text PRIMARY KEY,
	name                       text NOT NULL,
	namespace                  text NOT NULL,
	engine                     text NOT NULL,
	status                     text NOT NULL,
	phase                      text,
	url                        text,
	admin_url                  text,
	db_ready                   boolean NOT NULL DEFAULT false,
	app_ready                  boolean NOT NULL DEFAULT false,
	error_message              text,
	error_phase                text,
	created_at                 timestamptz NOT NULL,
	updated_at                 timestamptz NOT NULL,
	ready_at                   timestamptz,
	deleted_at                 timestamptz,
	provisioning_duration_ms   bigint
);
CREATE INDEX IF NOT EXISTS store_status_idx ON store (status);
CREATE INDEX IF NOT EXISTS store_created_at_idx ON store (created_at DESC);
`

// row is the wire shape the scanner maps result columns onto.
type row struct {
	ID                     string     `sql:"id"`
	Name                   string     `sql:"name"`
	Namespace              string     `sql:"namespace"`
	Engine                 string     `sql:"engine"`
	Status                 string     `sql:"status"`
	Phase                  *string    `sql:"phase"`
	URL                    *string    `sql:"url"`
	AdminURL               *string    `sql:"admin_url"`
	DBReady                bool       `sql:"db_ready"`
	AppReady               bool       `sql:"app_ready"`
	ErrorMessage           *string    `sql:"error_message"`
	ErrorPhase             *string    `sql:"error_phase"`
	CreatedAt              time.Time  `sql:"created_at"`
	UpdatedAt              time.Time  `sql:"updated_at"`
	ReadyAt                *time.Time `sql:"ready_at"`
	DeletedAt              *time.Time `sql:"deleted_at"`
	ProvisioningDurationMs *int64     `sql:"provisioning_duration_ms"`
}

func (r row) toDomain() *domain.Store {
	s := &domain.Store{
		ID:                     r.ID,
		Name:                   r.Name,
		Namespace:              r.Namespace,
		Engine:                 domain.Engine(r.Engine),
		Status:                 domain.Status(r.Status),
		URL:                    r.URL,
		AdminURL:               r.AdminURL,
		DBReady:                r.DBReady,
		AppReady:               r.AppReady,
		ErrorMessage:           r.ErrorMessage,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
		ReadyAt:                r.ReadyAt,
		DeletedAt:              r.DeletedAt,
		ProvisioningDurationMs: r.ProvisioningDurationMs,
	}
	if r.Phase != nil {
		p := domain.Phase(*r.Phase)
		s.Phase = &p
	}
	if r.ErrorPhase != nil {
		p := domain.Phase(*r.ErrorPhase)
		s.ErrorPhase = &p
	}
	return s
}

// Repository is the Store Repository interface the orchestrator and
// admission surface depend on.
type Repository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, s *domain.Store) error
	Update(ctx context.Context, s *domain.Store) error
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	FindAll(ctx context.Context) ([]*domain.Store, error)
	CountActive(ctx context.Context) (int, error)
	HealthPing(ctx context.Context) bool
}

type repository struct {
	pool pool.Pool
}

// New wraps p into a Repository.
func New(p pool.Pool) Repository {
	return &repository{pool: p}
}

// withConn acquires a connection for the lifetime of f, grounded on the
// teacher's pgxPool.AcquireFunc shape (pool.go), since Pool itself
// exposes no Exec/Query — only Begin/Acquire.
func (r *repository) withConn(ctx context.Context, f func(pool.Conn) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return f(conn)
}

// Init creates the schema if absent. Safe to call on every startup.
func (r *repository) Init(ctx context.Context) error {
	return r.withConn(ctx, func(c pool.Conn) error {
		_, err := c.Exec(ctx, schema)
		return err
	})
}

func (r *repository) Create(ctx context.Context, s *domain.Store) error {
	return r.withConn(ctx, func(c pool.Conn) error {
		_, err := c.Exec(ctx, `
			INSERT INTO store (
				id, name, namespace, engine, status, phase,
				db_ready, app_ready, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			s.ID, s.Name, s.Namespace, string(s.Engine), string(s.Status), phaseOrNil(s.Phase),
			s.DBReady, s.AppReady, s.CreatedAt, s.UpdatedAt,
		)
		return err
	})
}

func (r *repository) Update(ctx context.Context, s *domain.Store) error {
	return r.withConn(ctx, func(c pool.Conn) error {
		_, err := c.Exec(ctx, `
			UPDATE store SET
				status = $2, phase = $3, url = $4, admin_url = $5,
				db_ready = $6, app_ready = $7,
				error_message = $8, error_phase = $9,
				updated_at = $10, ready_at = $11, deleted_at = $12,
				provisioning_duration_ms = $13
			WHERE id = $1
		`,
			s.ID, string(s.Status), phaseOrNil(s.Phase), s.URL, s.AdminURL,
			s.DBReady, s.AppReady,
			s.ErrorMessage, phaseOrNil(s.ErrorPhase),
			s.UpdatedAt, s.ReadyAt, s.DeletedAt,
			s.ProvisioningDurationMs,
		)
		return err
	})
}

func (r *repository) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	var found *domain.Store
	err := r.withConn(ctx, func(c pool.Conn) error {
		rows, err := scanner.New[row]().QueryAll(ctx, c, `
			SELECT id, name, namespace, engine, status, phase, url, admin_url,
			       db_ready, app_ready, error_message, error_phase,
			       created_at, updated_at, ready_at, deleted_at, provisioning_duration_ms
			FROM store WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return domain.NewNotFound(fmt.Sprintf("store %s not found", id))
		}
		found = rows[0].toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindAll lists non-deleted stores, most-recent first (§3, §6).
func (r *repository) FindAll(ctx context.Context) ([]*domain.Store, error) {
	var out []*domain.Store
	err := r.withConn(ctx, func(c pool.Conn) error {
		rows, err := scanner.New[row]().QueryAll(ctx, c, `
			SELECT id, name, namespace, engine, status, phase, url, admin_url,
			       db_ready, app_ready, error_message, error_phase,
			       created_at, updated_at, ready_at, deleted_at, provisioning_duration_ms
			FROM store WHERE status != 'deleted'
			ORDER BY created_at DESC
		`)
		if err != nil {
			return err
		}
		out = make([]*domain.Store, 0, len(rows))
		for _, rr := range rows {
			out = append(out, rr.toDomain())
		}
		return nil
	})
	return out, err
}

// CountActive counts records whose status is not {failed, deleted}
// (§4.8 step 1's admission cap).
func (r *repository) CountActive(ctx context.Context) (int, error) {
	count := 0
	err := r.withConn(ctx, func(c pool.Conn) error {
		rows, err := scanner.New[int]().QueryAll(ctx, c, `
			SELECT count(*) FROM store WHERE status NOT IN ('failed', 'deleted')
		`)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			count = rows[0]
		}
		return nil
	})
	return count, err
}

func (r *repository) HealthPing(ctx context.Context) bool {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false
	}
	defer conn.Release()
	return conn.Ping(ctx) == nil
}

func phaseOrNil(p *domain.Phase) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

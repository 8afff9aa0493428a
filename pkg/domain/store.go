package domain

import (
	"fmt"
	"time"
)

// Engine identifies the e-commerce platform a store is built on.
type Engine string

const (
	EngineWoocommerce Engine = "woocommerce"
	// Medusa is a recognized tag but reserved: admission always rejects it.
	EngineMedusa Engine = "medusa"
)

func (e Engine) String() string { return string(e) }

// Status is the lifecycle state of a Store record (§3).
type Status string

const (
	StatusPending       Status = "pending"
	StatusProvisioning  Status = "provisioning"
	StatusReady         Status = "ready"
	StatusFailed        Status = "failed"
	StatusDeleting      Status = "deleting"
	StatusDeleted       Status = "deleted"
)

func (s Status) String() string { return string(s) }

// Active reports whether a record still counts against the active-store
// cap (§4.8: "count of store records whose status ∉ {failed, deleted}").
func (s Status) Active() bool {
	switch s {
	case StatusFailed, StatusDeleted:
		return false
	default:
		return true
	}
}

// Phase is one of the four ordered provisioning stages (§3, §4.8).
// Present on a record only while status == provisioning.
type Phase string

const (
	PhaseNamespace   Phase = "namespace"
	PhaseDatabase    Phase = "database"
	PhaseApplication Phase = "application"
	PhaseValidation  Phase = "validation"
)

func (p Phase) String() string { return string(p) }

// allowedTransitions is the state machine table in §4.8. Any pair not
// present here is rejected by CheckTransition.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:      {StatusProvisioning: true, StatusFailed: true, StatusDeleting: true},
	StatusProvisioning: {StatusReady: true, StatusFailed: true},
	StatusReady:        {StatusDeleting: true},
	StatusFailed:       {StatusProvisioning: true, StatusDeleting: true},
	StatusDeleting:     {StatusFailed: true, StatusDeleted: true},
	StatusDeleted:      {},
}

// CheckTransition reports whether moving a record from `from` to `to` is
// permitted by the table in §4.8. Implementations must not rely on loose
// string comparison elsewhere (§9 Design Notes).
func CheckTransition(from, to Status) error {
	if allowedTransitions[from][to] {
		return nil
	}
	return &ErrInvalidStateChange{From: from, To: to}
}

// Store is the durable entity described in §3.
type Store struct {
	ID         string
	Name       string
	Namespace  string
	Engine     Engine
	Status     Status
	Phase      *Phase
	URL        *string
	AdminURL   *string
	DBReady    bool
	AppReady   bool
	ErrorMessage *string
	ErrorPhase   *Phase

	CreatedAt time.Time
	UpdatedAt time.Time
	ReadyAt   *time.Time
	DeletedAt *time.Time

	ProvisioningDurationMs *int64
}

// NamespaceForID derives the namespace name for a store id (§3: "namespace
// == store-{id}", never mutated after creation).
func NamespaceForID(id string) string {
	return fmt.Sprintf("store-%s", id)
}

// StorePatch carries the subset of fields an update mutates; nil fields
// are left untouched (§4.3: "mutate only the provided fields").
type StorePatch struct {
	Status   *Status
	Phase    *Phase
	ClearPhase bool

	URL      *string
	AdminURL *string
	DBReady  *bool
	AppReady *bool

	ErrorMessage *string
	ErrorPhase   *Phase
	ClearError   bool

	ReadyAt                *time.Time
	DeletedAt               *time.Time
	ProvisioningDurationMs *int64
}

// Apply mutates s in place per patch. A status change is checked against
// the state machine (CheckTransition) and rejected without mutating s;
// every other field is copied from the patch without further checks.
// UpdatedAt is left for the caller (repositories stamp it at write time,
// matching §4.3).
func (s *Store) Apply(patch StorePatch) error {
	if patch.Status != nil && *patch.Status != s.Status {
		if err := CheckTransition(s.Status, *patch.Status); err != nil {
			return err
		}
		s.Status = *patch.Status
	}

	if patch.ClearPhase {
		s.Phase = nil
	} else if patch.Phase != nil {
		s.Phase = patch.Phase
	}

	if patch.URL != nil {
		s.URL = patch.URL
	}
	if patch.AdminURL != nil {
		s.AdminURL = patch.AdminURL
	}
	if patch.DBReady != nil {
		s.DBReady = *patch.DBReady
	}
	if patch.AppReady != nil {
		s.AppReady = *patch.AppReady
	}

	if patch.ClearError {
		s.ErrorMessage = nil
		s.ErrorPhase = nil
	} else {
		if patch.ErrorMessage != nil {
			s.ErrorMessage = patch.ErrorMessage
		}
		if patch.ErrorPhase != nil {
			s.ErrorPhase = patch.ErrorPhase
		}
	}

	if patch.ReadyAt != nil {
		s.ReadyAt = patch.ReadyAt
	}
	if patch.DeletedAt != nil {
		s.DeletedAt = patch.DeletedAt
	}
	if patch.ProvisioningDurationMs != nil {
		s.ProvisioningDurationMs = patch.ProvisioningDurationMs
	}

	return nil
}

package handlers

import (
	"time"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

// storeDTO is the §6 wire shape of a store record. domain.Store itself
// carries no json tags, since the repository and orchestrator address
// its fields by name, not by wire shape.
type storeDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Namespace string  `json:"namespace"`
	Engine    string  `json:"engine"`
	Status    string  `json:"status"`
	Phase     *string `json:"phase,omitempty"`

	URL      *string `json:"url,omitempty"`
	AdminURL *string `json:"adminUrl,omitempty"`
	DBReady  bool    `json:"dbReady"`
	AppReady bool    `json:"appReady"`

	ErrorMessage *string `json:"errorMessage,omitempty"`
	ErrorPhase   *string `json:"errorPhase,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ReadyAt   *time.Time `json:"readyAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`

	ProvisioningDurationMs *int64 `json:"provisioningDurationMs,omitempty"`
}

func toStoreDTO(s *domain.Store) storeDTO {
	return storeDTO{
		ID: s.ID, Name: s.Name, Namespace: s.Namespace,
		Engine: s.Engine.String(), Status: s.Status.String(),
		Phase: phaseString(s.Phase),

		URL: s.URL, AdminURL: s.AdminURL, DBReady: s.DBReady, AppReady: s.AppReady,

		ErrorMessage: s.ErrorMessage, ErrorPhase: phaseString(s.ErrorPhase),

		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
		ReadyAt: s.ReadyAt, DeletedAt: s.DeletedAt,

		ProvisioningDurationMs: s.ProvisioningDurationMs,
	}
}

func phaseString(p *domain.Phase) *string {
	if p == nil {
		return nil
	}
	s := p.String()
	return &s
}

// auditEntryDTO is the §6 wire shape of an audit record.
type auditEntryDTO struct {
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Action    string     `json:"action"`
	StoreID   *string    `json:"storeId,omitempty"`
	StoreName *string    `json:"storeName,omitempty"`
	Engine    *string    `json:"engine,omitempty"`
	SourceIP  *string    `json:"sourceIp,omitempty"`
	Details   string     `json:"details,omitempty"`
	DurationMs *int64    `json:"durationMs,omitempty"`
}

func toAuditEntryDTO(e domain.AuditEntry) auditEntryDTO {
	dto := auditEntryDTO{
		ID: e.ID, Timestamp: e.Timestamp, Action: e.Action,
		StoreID: e.StoreID, StoreName: e.StoreName,
		SourceIP: e.SourceIP, Details: e.Details,
	}
	if e.Engine != nil {
		s := e.Engine.String()
		dto.Engine = &s
	}
	if e.Duration != nil {
		ms := e.Duration.Milliseconds()
		dto.DurationMs = &ms
	}
	return dto
}

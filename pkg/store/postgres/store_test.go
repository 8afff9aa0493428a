package postgres

import (
	"testing"
	"time"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

func TestRowToDomainMapsOptionalPhaseFields(t *testing.T) {
	phase := "database"
	now := time.Now().UTC()
	r := row{
		ID:        "abcd1234",
		Name:      "acme-shop",
		Namespace: "store-abcd1234",
		Engine:    "woocommerce",
		Status:    "provisioning",
		Phase:     &phase,
		DBReady:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s := r.toDomain()
	if s.Phase == nil || *s.Phase != domain.PhaseDatabase {
		t.Fatalf("expected phase to be mapped, got %v", s.Phase)
	}
	if s.ErrorPhase != nil {
		t.Fatalf("expected nil error phase, got %v", s.ErrorPhase)
	}
	if s.Engine != domain.EngineWoocommerce || s.Status != domain.StatusProvisioning {
		t.Fatalf("unexpected engine/status: %v %v", s.Engine, s.Status)
	}
}

func TestRowToDomainLeavesNilPhaseFieldsAlone(t *testing.T) {
	now := time.Now().UTC()
	r := row{ID: "abcd1234", Engine: "woocommerce", Status: "ready", CreatedAt: now, UpdatedAt: now}

	s := r.toDomain()
	if s.Phase != nil {
		t.Fatalf("expected nil phase, got %v", s.Phase)
	}
}

func TestPhaseOrNil(t *testing.T) {
	if phaseOrNil(nil) != nil {
		t.Fatal("expected nil for nil phase")
	}
	p := domain.PhaseApplication
	got := phaseOrNil(&p)
	if got == nil || *got != "application" {
		t.Fatalf("unexpected phaseOrNil result: %v", got)
	}
}

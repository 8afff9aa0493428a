package domain_test

import (
	"errors"
	"testing"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

func TestNamespaceForID(t *testing.T) {
	for name, testcase := range map[string]struct {
		when string
		then string
	}{
		"it derives the namespace by prefixing store-": {
			when: "ab12cd34", then: "store-ab12cd34",
		},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := domain.NamespaceForID(testcase.when); actual != testcase.then {
				t.Errorf("(actual, expected) = (%s, %s)", actual, testcase.then)
			}
		})
	}
}

func TestCheckTransition(t *testing.T) {
	type when struct {
		from domain.Status
		to   domain.Status
	}

	for name, testcase := range map[string]struct {
		when    when
		wantErr bool
	}{
		"pending -> provisioning is allowed": {
			when: when{domain.StatusPending, domain.StatusProvisioning},
		},
		"pending -> ready is rejected": {
			when:    when{domain.StatusPending, domain.StatusReady},
			wantErr: true,
		},
		"provisioning -> ready is allowed": {
			when: when{domain.StatusProvisioning, domain.StatusReady},
		},
		"provisioning -> failed is allowed": {
			when: when{domain.StatusProvisioning, domain.StatusFailed},
		},
		"ready -> deleting is allowed": {
			when: when{domain.StatusReady, domain.StatusDeleting},
		},
		"ready -> failed is rejected": {
			when:    when{domain.StatusReady, domain.StatusFailed},
			wantErr: true,
		},
		"failed -> provisioning is allowed (retry)": {
			when: when{domain.StatusFailed, domain.StatusProvisioning},
		},
		"deleting -> deleted is allowed": {
			when: when{domain.StatusDeleting, domain.StatusDeleted},
		},
		"deleted -> anything is rejected": {
			when:    when{domain.StatusDeleted, domain.StatusPending},
			wantErr: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := domain.CheckTransition(testcase.when.from, testcase.when.to)
			if testcase.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !testcase.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStoreApply(t *testing.T) {
	t.Run("it rejects a disallowed status transition and leaves the record unchanged", func(t *testing.T) {
		s := &domain.Store{Status: domain.StatusReady}
		err := s.Apply(domain.StorePatch{Status: statusPtr(domain.StatusProvisioning)})
		if err == nil {
			t.Fatal("expected error")
		}
		if s.Status != domain.StatusReady {
			t.Errorf("status mutated despite rejected transition: %s", s.Status)
		}
	})

	t.Run("it clears phase and sets url on ready transition", func(t *testing.T) {
		phase := domain.PhaseValidation
		s := &domain.Store{Status: domain.StatusProvisioning, Phase: &phase}
		url := "http://store-x.example.org"
		err := s.Apply(domain.StorePatch{
			Status:     statusPtr(domain.StatusReady),
			ClearPhase: true,
			URL:        &url,
		})
		if err != nil {
			t.Fatal(err)
		}
		if s.Phase != nil {
			t.Errorf("phase not cleared: %v", *s.Phase)
		}
		if s.URL == nil || *s.URL != url {
			t.Errorf("url not set: %v", s.URL)
		}
	})

	t.Run("it reports invalid-state-change as a typed error", func(t *testing.T) {
		s := &domain.Store{Status: domain.StatusDeleted}
		err := s.Apply(domain.StorePatch{Status: statusPtr(domain.StatusPending)})

		var invalid *domain.ErrInvalidStateChange
		if !errors.As(err, &invalid) {
			t.Fatalf("expected *ErrInvalidStateChange, got %T (%v)", err, err)
		}
	})
}

func statusPtr(s domain.Status) *domain.Status { return &s }

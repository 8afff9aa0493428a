package domain_test

import (
	"testing"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
)

func TestCreateRequestValidate(t *testing.T) {
	for name, testcase := range map[string]struct {
		when    domain.CreateRequest
		wantErr bool
	}{
		"name length 2 is rejected": {
			when:    domain.CreateRequest{Name: "ab", Engine: domain.EngineWoocommerce},
			wantErr: true,
		},
		"name length 3 is accepted": {
			when: domain.CreateRequest{Name: "abc", Engine: domain.EngineWoocommerce},
		},
		"name length 50 is accepted": {
			when: domain.CreateRequest{Name: repeat("a", 50), Engine: domain.EngineWoocommerce},
		},
		"name length 51 is rejected": {
			when:    domain.CreateRequest{Name: repeat("a", 51), Engine: domain.EngineWoocommerce},
			wantErr: true,
		},
		"underscore is rejected": {
			when:    domain.CreateRequest{Name: "abc_def", Engine: domain.EngineWoocommerce},
			wantErr: true,
		},
		"hyphen is accepted": {
			when: domain.CreateRequest{Name: "abc-def", Engine: domain.EngineWoocommerce},
		},
		"uppercase is rejected": {
			when:    domain.CreateRequest{Name: "ABC", Engine: domain.EngineWoocommerce},
			wantErr: true,
		},
		"digits only is accepted": {
			when: domain.CreateRequest{Name: "123", Engine: domain.EngineWoocommerce},
		},
		"medusa engine is rejected": {
			when:    domain.CreateRequest{Name: "my-shop", Engine: domain.EngineMedusa},
			wantErr: true,
		},
		"unknown engine is rejected": {
			when:    domain.CreateRequest{Name: "my-shop", Engine: "shopify"},
			wantErr: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := testcase.when.Validate()
			if testcase.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !testcase.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err != nil && !domain.AsValidation(err) {
				t.Errorf("error is not ErrValidation: %T", err)
			}
		})
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s[0])
	}
	return string(out)
}

package tenancy

import (
	"context"
	"testing"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
)

func TestBuildAppliesEachOfTheFourObjectsOnce(t *testing.T) {
	fake := gateway.NewFake()
	b := New(fake)

	store := &domain.Store{ID: "abcd1234", Name: "acme-shop", Engine: domain.EngineWoocommerce}
	if err := b.Build(context.Background(), "store-abcd1234", store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.Called.EnsureNamespace != 1 {
		t.Fatalf("expected EnsureNamespace to be called once, got %d", fake.Called.EnsureNamespace)
	}
	if fake.Called.EnsureQuota != 1 {
		t.Fatalf("expected EnsureQuota to be called once, got %d", fake.Called.EnsureQuota)
	}
	if fake.Called.EnsureLimitRange != 1 {
		t.Fatalf("expected EnsureLimitRange to be called once, got %d", fake.Called.EnsureLimitRange)
	}
	if fake.Called.EnsureNetworkPolicy != 1 {
		t.Fatalf("expected EnsureNetworkPolicy to be called once, got %d", fake.Called.EnsureNetworkPolicy)
	}
}

func TestBuildStopsAtFirstFailure(t *testing.T) {
	fake := gateway.NewFake()
	wantErr := context.DeadlineExceeded
	fake.Impl.EnsureNamespace = func(ctx context.Context, name string) error {
		return wantErr
	}
	b := New(fake)

	store := &domain.Store{ID: "abcd1234", Name: "acme-shop", Engine: domain.EngineWoocommerce}
	err := b.Build(context.Background(), "store-abcd1234", store)
	if err != wantErr {
		t.Fatalf("expected namespace failure to propagate, got %v", err)
	}
	if fake.Called.EnsureQuota != 0 {
		t.Fatalf("expected quota step to be skipped after namespace failure, got %d calls", fake.Called.EnsureQuota)
	}
}

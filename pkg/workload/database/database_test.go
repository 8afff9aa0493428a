package database

import (
	"context"
	"testing"
	"time"

	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
)

func TestDeployReturnsWellKnownConnectionDescriptor(t *testing.T) {
	fake := gateway.NewFake()
	w := New(fake)

	conn, err := w.Deploy(context.Background(), "store-abcd1234", "5Gi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.Host != "db-service.store-abcd1234.svc.cluster.local" {
		t.Fatalf("unexpected host: %s", conn.Host)
	}
	if conn.Port != mysqlPort {
		t.Fatalf("unexpected port: %d", conn.Port)
	}
	if conn.DBName != dbName || conn.User != dbUser || conn.SecretName != secretName {
		t.Fatalf("unexpected descriptor: %+v", conn)
	}
	if fake.Called.EnsureSecret != 1 || fake.Called.EnsureStatefulSet != 1 || fake.Called.EnsureService != 1 {
		t.Fatalf("expected exactly one ensure call per object, got %+v", fake.Called)
	}
}

func TestWaitReadySucceedsOnceReplicaIsReady(t *testing.T) {
	fake := gateway.NewFake()
	fake.ReadyReplicas["store-abcd1234/db"] = 1
	w := New(fake)

	if err := w.WaitReady(context.Background(), "store-abcd1234", time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitReadyTimesOutWhenNeverReady(t *testing.T) {
	fake := gateway.NewFake()
	w := New(fake)

	err := w.WaitReady(context.Background(), "store-abcd1234", 5*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error when readyReplicas never reaches 1")
	}
}

package storage

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

type fakeChecker struct{ db fakePinger }

func (f fakeChecker) CheckHealth(ctx context.Context) *HealthData {
	return PingHealth(ctx, f.db)
}

func TestHealthManager(t *testing.T) {
	hm := NewHealthManager()
	hm.Register("sqlite", fakeChecker{})

	results := hm.Refresh(context.Background())
	if results["sqlite"].Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %+v", results["sqlite"])
	}
	if !hm.Healthy() {
		t.Error("expected manager to be healthy")
	}

	hm.Register("timescaledb", fakeChecker{db: fakePinger{err: errors.New("connection refused")}})
	results = hm.Refresh(context.Background())
	if results["timescaledb"].Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %+v", results["timescaledb"])
	}
	if results["timescaledb"].Error != "connection refused" {
		t.Errorf("unexpected error text %q", results["timescaledb"].Error)
	}
	if hm.Healthy() {
		t.Error("expected manager to be unhealthy")
	}
}

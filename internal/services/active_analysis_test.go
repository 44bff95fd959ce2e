package services

import (
	"context"
	"errors"
	"testing"

	"github.com/thoraxlab/thorax-backend/internal/pkg/errs"
)

func TestActiveAnalysisAcquireRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := env.activeAnalysisService()

	busy, err := svc.IsBusy(ctx, nil)
	if err != nil {
		t.Fatalf("IsBusy: %v", err)
	}
	if busy {
		t.Fatal("fresh database must not be busy")
	}

	if err := svc.Acquire(ctx, nil); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	busy, err = svc.IsBusy(ctx, nil)
	if err != nil {
		t.Fatalf("IsBusy: %v", err)
	}
	if !busy {
		t.Error("expected busy after acquire")
	}

	if err := svc.Acquire(ctx, nil); !errors.Is(err, errs.ErrBusy) {
		t.Errorf("second acquire = %v, want ErrBusy", err)
	}

	if err := svc.Release(ctx, nil); err != nil {
		t.Fatalf("Release: %v", err)
	}
	busy, err = svc.IsBusy(ctx, nil)
	if err != nil {
		t.Fatalf("IsBusy: %v", err)
	}
	if busy {
		t.Error("expected idle after release")
	}

	// The marker can be taken again after a full cycle.
	if err := svc.Acquire(ctx, nil); err != nil {
		t.Errorf("reacquire after release: %v", err)
	}
}

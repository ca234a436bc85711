package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(context.Background(), nil)
	if err := s.Add("refresh", "not a schedule", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestJobsRun(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, nil)

	var runs atomic.Int32
	ran := make(chan struct{}, 1)
	err := s.Add("refresh", "@every 1s", func(context.Context) error {
		runs.Add(1)
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("failures are logged, not fatal")
	})
	if err != nil {
		t.Fatal(err)
	}

	s.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		s.Stop(stopCtx)
	}()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	if runs.Load() < 1 {
		t.Fatal("expected at least one run")
	}
}

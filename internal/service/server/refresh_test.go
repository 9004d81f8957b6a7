package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/service/auth"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(context.Context) (*domain.TokenPair, error) {
	r.calls.Add(1)

	if r.err != nil {
		return nil, r.err
	}

	return &domain.TokenPair{AccessToken: "a", RefreshToken: "r", ObtainedAt: time.Now()}, nil
}

// TestRefreshOnce tolerates every refresh outcome.
func TestRefreshOnce(t *testing.T) {
	t.Parallel()

	for _, err := range []error{nil, auth.ErrNoRefreshToken, errors.New("identity down")} {
		r := &countingRefresher{err: err}

		require.NotPanics(t, func() {
			RefreshOnce(context.Background(), r)
		})
		require.EqualValues(t, 1, r.calls.Load())
	}
}

// TestRunRefreshSchedule_InvalidSchedule fails fast on a bad schedule.
func TestRunRefreshSchedule_InvalidSchedule(t *testing.T) {
	t.Parallel()

	err := RunRefreshSchedule(context.Background(), "not a schedule", &countingRefresher{})
	require.Error(t, err)
}

// TestRunRefreshSchedule_StopsOnCancel returns once the context is done.
func TestRunRefreshSchedule_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- RunRefreshSchedule(ctx, "@every 10ms", &countingRefresher{})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresh schedule did not stop")
	}
}

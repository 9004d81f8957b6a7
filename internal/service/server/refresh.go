package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	domain "github.com/oshokin/alarm-dispatch/internal/domain/dispatch"
	"github.com/oshokin/alarm-dispatch/internal/logger"
	"github.com/oshokin/alarm-dispatch/internal/service/auth"
)

// Refresher renews the process-wide dispatch tokens.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.TokenPair, error)
}

// RunRefreshSchedule refreshes tokens on the standard cron schedule spec
// until ctx is canceled. Runs never overlap.
func RunRefreshSchedule(ctx context.Context, spec string, tokens Refresher) error {
	ctx = logger.WithName(ctx, "token-refresh")

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := scheduler.AddFunc(spec, func() {
		RefreshOnce(ctx, tokens)
	}); err != nil {
		return fmt.Errorf("schedule token refresh %q: %w", spec, err)
	}

	logger.InfoKV(ctx, "Token refresh scheduled", "schedule", spec)

	scheduler.Start()
	<-ctx.Done()

	// Wait for a running refresh to finish.
	<-scheduler.Stop().Done()

	return nil
}

// RefreshOnce refreshes tokens once and logs the outcome.
// Having no tokens yet is normal before the first login.
func RefreshOnce(ctx context.Context, tokens Refresher) {
	pair, err := tokens.Refresh(ctx)

	switch {
	case errors.Is(err, auth.ErrNoRefreshToken):
		logger.DebugKV(ctx, "Token refresh skipped", "reason", err)
	case err != nil:
		logger.ErrorKV(ctx, "Token refresh failed", "error", err)
	default:
		logger.InfoKV(ctx, "Tokens refreshed", "obtained_at", pair.ObtainedAt)
	}
}

package bot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner drives bot execution cycles: one bot on demand, or every running
// bot in a bounded concurrent batch. Cycle failures are already isolated
// inside Cycle.Run, so a batch always completes and always reports per-bot
// results.
type Runner struct {
	cycle        *Cycle
	bots         *Store
	cycleTimeout time.Duration
	maxParallel  int
	logger       *zap.Logger
}

// NewRunner creates a batch runner.
func NewRunner(cycle *Cycle, bots *Store, cycleTimeout time.Duration, maxParallel int, logger *zap.Logger) *Runner {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Runner{
		cycle:        cycle,
		bots:         bots,
		cycleTimeout: cycleTimeout,
		maxParallel:  maxParallel,
		logger:       logger.Named("runner"),
	}
}

// RunOne executes a single bot's cycle under the cycle deadline.
func (r *Runner) RunOne(ctx context.Context, botID uint) Result {
	cctx, cancel := context.WithTimeout(ctx, r.cycleTimeout)
	defer cancel()
	return r.cycle.Run(cctx, botID)
}

// RunAll executes a cycle for every running bot, at most maxParallel at a
// time. Results come back in no particular order; a bot that fails is a
// result with errors, never a missing result.
func (r *Runner) RunAll(ctx context.Context) []Result {
	bots, err := r.bots.Running()
	if err != nil {
		r.logger.Error("failed to list running bots", zap.Error(err))
		return nil
	}
	if len(bots) == 0 {
		return nil
	}

	results := make([]Result, len(bots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)

	for i, b := range bots {
		i, botID := i, b.ID
		g.Go(func() error {
			results[i] = r.RunOne(gctx, botID)
			return nil
		})
	}
	// Cycles never return errors past their boundary, so Wait cannot fail.
	_ = g.Wait()

	r.logger.Info("batch run complete", zap.Int("bots", len(bots)))
	return results
}

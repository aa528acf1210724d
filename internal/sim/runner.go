package sim

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives the simulator in the background, one round per interval.
// It exists for long-lived server deployments; batch runs call
// Simulator.Run directly.
type Runner struct {
	sim      *Simulator
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewRunner creates a runner. interval is the pause between rounds.
func NewRunner(sim *Simulator, interval time.Duration) *Runner {
	return &Runner{
		sim:      sim,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the round loop in a goroutine. It keeps running through
// quiescent rounds: a later external proposal can wake the market back up.
func (r *Runner) Start(ctx context.Context) {
	slog.Info("auto-round runner started", "interval", r.interval)
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("auto-round runner stopped", "reason", ctx.Err())
				return
			case <-r.stop:
				slog.Info("auto-round runner stopped")
				return
			case <-ticker.C:
				if _, err := r.sim.Run(ctx, 1); err != nil {
					slog.Warn("auto round aborted", "error", err)
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight round to finish.
func (r *Runner) Stop() {
	close(r.stop)
	<-r.done
}

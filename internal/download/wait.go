package download

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/zoomfetch/internal/zoom"
)

// pollInterval is the delay between readiness probes.
const pollInterval = 30 * time.Second

// ReadyProbe checks whether a recording has finished server-side
// processing.
type ReadyProbe func(ctx context.Context) (bool, error)

// WaitUntilReady polls the probe until the recording is ready or maxWait
// elapses. With maxWait <= 0 it probes exactly once. It never issues
// download requests itself; callers abort the download when it fails.
func WaitUntilReady(ctx context.Context, probe ReadyProbe, maxWait time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	deadline := time.Now().Add(maxWait)
	for {
		ready, err := probe(ctx)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		if maxWait <= 0 {
			return zoom.NewError(zoom.CodeRecordingNotProcessed,
				"recording is still processing",
				"use --wait to poll until it is ready")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zoom.NewError(zoom.CodeTimeout,
				"recording did not become ready in time",
				"the recording is still processing; try again later")
		}

		logger.Info("recording still processing",
			slog.Duration("remaining", remaining.Truncate(time.Second)),
			slog.Duration("next_check", pollInterval),
		)

		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

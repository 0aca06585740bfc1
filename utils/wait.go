package utils

import (
	"context"
	"fmt"
	"time"
)

// WaitConfig holds the parameters for readiness polling: how long to
// keep probing and how long to pause between probes.
type WaitConfig struct {
	Timeout  time.Duration
	Interval time.Duration
	Logger   *Logger
}

// Until polls probe until it reports ready, returns an error, or the
// timeout elapses. It replaces fixed-duration sleeps with explicit
// readiness checks against the browser session.
func (w *WaitConfig) Until(ctx context.Context, name string, probe func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(w.Timeout)

	for {
		ready, err := probe(ctx)
		if err != nil {
			return fmt.Errorf("%s probe: %w", name, err)
		}
		if ready {
			return nil
		}

		if time.Now().After(deadline) {
			w.Logger.Warn("[wait] %s not ready after %v", name, w.Timeout)
			return fmt.Errorf("%s: not ready after %v", name, w.Timeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(w.Interval):
		}
	}
}

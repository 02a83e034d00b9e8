package syncer

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Run wires the engine to its triggers and blocks until ctx is cancelled:
// a drain on every offline→online transition, plus a cron safety-net drain
// (schedule is a 5-field cron expression) in case a transition was missed
// or backoffs have elapsed. Drain passes serialize internally, so
// overlapping triggers are harmless.
func (e *Engine) Run(ctx context.Context, monitor OnlineSource, schedule string) error {
	if monitor == nil {
		return fmt.Errorf("syncer: monitor is required")
	}

	monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			if _, err := e.Drain(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("drain after reconnect", zap.Error(err))
			}
		}()
	})

	runner := cron.New(cron.WithParser(cronParser))
	_, err := runner.AddFunc(schedule, func() {
		if !monitor.IsOnline() {
			return
		}
		if _, err := e.Drain(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("scheduled drain", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("syncer: bad drain schedule %q: %w", schedule, err)
	}
	runner.Start()
	defer runner.Stop()

	// An initial pass picks up whatever survived the last shutdown.
	if monitor.IsOnline() {
		if _, err := e.Drain(ctx); err != nil && ctx.Err() == nil {
			e.logger.Error("initial drain", zap.Error(err))
		}
	}

	<-ctx.Done()
	return nil
}

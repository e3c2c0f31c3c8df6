package watch

import (
	"context"
	"sync"

	"github.com/maxkimambo/sitepipe/internal/dag"
	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
	"github.com/maxkimambo/sitepipe/internal/logger"
	"github.com/maxkimambo/sitepipe/internal/metrics"
	"github.com/maxkimambo/sitepipe/internal/pipeline"
)

// Runner runs pipeline targets.
type Runner interface {
	Run(ctx context.Context, targets ...string) (*dag.ExecutionResult, error)
}

// Dispatcher maps events to subscriptions. Each matching subscription
// runs its task in its own goroutine, so runs of the same task may
// overlap.
type Dispatcher struct {
	subs     []Subscription
	runner   Runner
	notifier pipeline.Notifier
	recorder metrics.Recorder
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher over subs. notifier and rec may be nil.
func NewDispatcher(subs []Subscription, runner Runner, notifier pipeline.Notifier, rec metrics.Recorder) *Dispatcher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Dispatcher{
		subs:     subs,
		runner:   runner,
		notifier: notifier,
		recorder: rec,
	}
}

// Match returns the enabled subscriptions for a source path.
func (d *Dispatcher) Match(path string) []Subscription {
	var matched []Subscription
	for _, sub := range d.subs {
		if sub.Enabled && sub.Matches(path) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// Dispatch starts the tasks subscribed to ev and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	for _, sub := range d.Match(ev.Path) {
		d.recorder.IncWatchEvent(sub.Category)
		logger.User.Watchf("%s %s, running %s", ev.Path, ev.Op, sub.Task)

		d.wg.Add(1)
		go func(sub Subscription) {
			defer d.wg.Done()
			d.run(ctx, sub, ev)
		}(sub)
	}
}

func (d *Dispatcher) run(ctx context.Context, sub Subscription, ev Event) {
	if _, err := d.runner.Run(ctx, sub.Task); err != nil {
		if ctx.Err() == nil {
			logger.User.Errorf("%s failed: %s", sub.Task, buildErrors.DisplayErrorSummary(err))
		}
		return
	}
	if !sub.Reload || d.notifier == nil {
		return
	}
	path := sub.ReloadPath
	if path == "" {
		path = ev.Path
	}
	d.notifier.Reload(path)
}

// Run consumes events until ctx is cancelled or events is closed, then
// waits for in-flight task runs.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	defer d.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// Wait blocks until every dispatched run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

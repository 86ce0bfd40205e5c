package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"pulsefut/internal/logging"
	"pulsefut/internal/telemetry"
	"pulsefut/pulse"
	"pulsefut/sink"
	"pulsefut/task"
)

type namedSink struct {
	name string
	sink.Adapter
}

// Runner forwards change notifications to the configured sinks and to any
// live watchers. Start and the sinks run on the scheduler goroutine;
// Subscribe may be called from anywhere.
type Runner struct {
	instance string
	metrics  *telemetry.Metrics
	now      func() time.Time

	sinks []namedSink
	seq   uint64

	mu     sync.Mutex
	subs   map[int]func(sink.Record)
	nextID int
}

func NewRunner(instance string, m *telemetry.Metrics) *Runner {
	return &Runner{instance: instance, metrics: m, now: time.Now, subs: map[int]func(sink.Record){}}
}

func (r *Runner) AddSink(name string, s sink.Adapter) {
	r.sinks = append(r.sinks, namedSink{name: name, Adapter: s})
}

// Sinks returns the sink names in push order.
func (r *Runner) Sinks() []string {
	out := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		out[i] = s.name
	}
	return out
}

// Subscribe registers fn for every record after the sinks have seen it.
// fn runs on the scheduler goroutine and must not block. The returned
// function removes it.
func (r *Runner) Subscribe(fn func(sink.Record)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Watchers returns the number of live subscriptions.
func (r *Runner) Watchers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

/*──────── event routing ───────*/
func (r *Runner) pushEvent(ev pulse.Event) error {
	r.seq++
	rec := sink.NewRecord(r.seq, ev, r.instance, r.now())

	var errs []error
	for _, s := range r.sinks {
		err := s.Push(rec)
		if r.metrics != nil {
			r.metrics.SinkPushes.WithLabelValues(s.name, telemetry.Result(err)).Inc()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}

	r.mu.Lock()
	handlers := make([]func(sink.Record), 0, len(r.subs))
	for _, fn := range r.subs {
		handlers = append(handlers, fn)
	}
	r.mu.Unlock()
	for _, fn := range handlers {
		fn(rec)
	}
	return errors.Join(errs...)
}

// Start drains src on s. A failing sink is logged and skipped; the first
// stream error stops the runner. done receives that error, or nil when the
// stream simply ended.
func (r *Runner) Start(s task.Scheduler, src task.Stream[pulse.Event], done func(error)) *task.Handle {
	log := logging.Component("pipeline")
	return task.SpawnStream(s, src, func(ev pulse.Event, err error) bool {
		if err != nil {
			log.Error("subscription ended", "err", err)
			if done != nil {
				done(err)
			}
			return false
		}
		if perr := r.pushEvent(ev); perr != nil {
			log.Warn("push failed", "event", ev.String(), "err", perr)
		}
		return true
	}, func() {
		if done != nil {
			done(nil)
		}
	})
}

// Close closes every sink.
func (r *Runner) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

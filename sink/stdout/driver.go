// pulsefut/sink/stdout/driver.go
package stdout

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"pulsefut/sink"
)

/* ────────── public config ────────── */
type Config struct {
	Out       io.Writer // nil → os.Stdout
	Pretty    bool      // indented JSON instead of one line per record
	KnownOnly bool      // drop records with unknown facility/operation
	// BatchSize flushes after that many buffered records; 0 = every record
	// unless FlushInterval is set.
	BatchSize     int
	FlushInterval time.Duration
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu      sync.Mutex // guards w+pending+timer
	w       *bufio.Writer
	pending int
	timer   *time.Timer // nil → no timer armed
	closed  bool
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.BatchSize < 0 || c.FlushInterval < 0 {
		return fmt.Errorf("stdout-sink: batch size and flush interval must not be negative")
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	d.w = bufio.NewWriter(c.Out)
	return nil
}

func (d *driver) Push(r sink.Record) error {
	if d.cfg.KnownOnly && !r.Known {
		return nil
	}
	var (
		line []byte
		err  error
	)
	if d.cfg.Pretty {
		line, err = json.MarshalIndent(r, "", "  ")
	} else {
		line, err = json.Marshal(r)
	}
	if err != nil {
		return fmt.Errorf("stdout-sink: encode: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("stdout-sink: closed")
	}
	if _, err := d.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("stdout-sink: write: %w", err)
	}
	d.pending++

	/* 1. flush on batch size (or immediately when batching is off) */
	if d.pending >= d.cfg.BatchSize && (d.cfg.BatchSize > 0 || d.cfg.FlushInterval == 0) {
		return d.flushLocked()
	}

	/* 2. arm the one-shot timer if needed */
	if d.cfg.FlushInterval > 0 && d.timer == nil {
		d.timer = time.AfterFunc(d.cfg.FlushInterval, d.timerFlush)
	}
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.w == nil {
		return nil
	}
	return d.flushLocked()
}

/* ────────── internals ────────── */

// called by the background timer goroutine
func (d *driver) timerFlush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = nil
	_ = d.flushLocked()
}

// must be called with d.mu held
func (d *driver) flushLocked() error {
	d.stopTimerLocked() // re-armed on next Push if needed
	d.pending = 0
	if err := d.w.Flush(); err != nil {
		return fmt.Errorf("stdout-sink: flush: %w", err)
	}
	return nil
}

func (d *driver) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}

package sink

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"pulsefut/pulse"
)

// Record is the form in which a change notification leaves the daemon.
type Record struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"time"`
	Instance  string    `json:"instance,omitempty"`
	Facility  string    `json:"facility"`
	Operation string    `json:"operation"`
	Index     uint32    `json:"index"`
	Known     bool      `json:"known"`
}

func NewRecord(seq uint64, ev pulse.Event, instance string, at time.Time) Record {
	return Record{
		Seq:       seq,
		Time:      at.UTC(),
		Instance:  instance,
		Facility:  ev.Facility.String(),
		Operation: ev.Operation.String(),
		Index:     ev.Index,
		Known:     ev.Known(),
	}
}

// Key identifies the object the record is about, e.g. "sink/3".
func (r Record) Key() string { return fmt.Sprintf("%s/%d", r.Facility, r.Index) }

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Push(Record) error   // consume one record
	Close() error        // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var (
	mu  sync.RWMutex
	reg = map[string]factory{}
)

func Register(name string, f factory) {
	mu.Lock()
	reg[name] = f
	mu.Unlock()
}

func NewAdapter(name string) (Adapter, error) {
	mu.RLock()
	f, ok := reg[name]
	mu.RUnlock()
	if ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

// Names lists the registered sinks.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

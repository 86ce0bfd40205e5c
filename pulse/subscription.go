package pulse

import (
	"fmt"

	"pulsefut/native"
	"pulsefut/task"
)

// Event is one change notification.
type Event struct {
	Facility  native.Facility
	Operation native.EventOperation
	Index     uint32
}

// Known reports whether both facility and operation are defined values.
func (e Event) Known() bool { return e.Facility.Known() && e.Operation.Known() }

func (e Event) String() string {
	return fmt.Sprintf("%s %s #%d", e.Operation, e.Facility, e.Index)
}

// eventQueue buffers notifications between the persistent callback and the
// stream, in callback order.
type eventQueue struct {
	events []Event
	head   int
	failed bool
}

func (q *eventQueue) push(ev Event) {
	q.events = append(q.events, ev)
}

func (q *eventQueue) pop() (Event, bool) {
	if q.head == len(q.events) {
		return Event{}, false
	}
	ev := q.events[q.head]
	q.head++
	if q.head == len(q.events) {
		q.events, q.head = q.events[:0], 0
	} else if q.head > 64 && q.head*2 > len(q.events) {
		n := copy(q.events, q.events[q.head:])
		q.events, q.head = q.events[:n], 0
	}
	return ev, true
}

func (q *eventQueue) len() int { return len(q.events) - q.head }

// Subscribe installs the Context's persistent notification callback and
// enables notifications for mask. A previous subscription on the same
// Context is failed: it yields ErrSubscription and ends. The returned stream
// never ends on its own; after its first error item, which Disconnect and a
// later Subscribe also trigger, it only reports end of stream.
func (c *Context) Subscribe(mask native.InterestMask) *Subscription {
	q := &eventQueue{}
	s := &Subscription{c: c, q: q}
	if c.closed {
		q.failed = true
		return s
	}
	if c.events != nil {
		c.events.failed = true
	}
	c.events = q
	c.nc.SetSubscribeCallback(func(f native.Facility, op native.EventOperation, index uint32) {
		q.push(Event{Facility: f, Operation: op, Index: index})
	})
	s.enable = c.nc.Subscribe(mask, func(ok bool) {
		if !ok {
			q.failed = true
		}
	})
	return s
}

// Subscription is the stream of change notifications.
type Subscription struct {
	c          *Context
	q          *eventQueue
	enable     native.Operation
	terminated bool
}

// Buffered returns the number of queued, unconsumed events.
func (s *Subscription) Buffered() int { return s.q.len() }

func (s *Subscription) PollNext(w task.Waker) task.Next[Event] {
	if s.terminated {
		return task.End[Event]()
	}
	if s.c.pollDriver(w).Failed() {
		return s.terminate(ErrLoop)
	}
	if s.c.closed {
		s.q.failed = true
	}
	if s.enable != nil && s.enable.State() == native.OperationCancelled {
		s.q.failed = true
	}
	if s.q.failed {
		return s.terminate(ErrSubscription)
	}
	if ev, ok := s.q.pop(); ok {
		s.c.obs.Delivered(ev, nil)
		return task.Yield(ev)
	}
	return task.NextPending[Event]()
}

func (s *Subscription) terminate(err error) task.Next[Event] {
	s.terminated = true
	s.c.obs.Delivered(Event{}, err)
	return task.YieldErr[Event](err)
}

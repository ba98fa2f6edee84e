// Package progress carries human-readable status updates from long running
// package operations to whoever is presenting them.
package progress

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Stage marks where a package is in its install or uninstall lifecycle.
type Stage int

const (
	StageInfo Stage = iota
	StageResolving
	StageRegistering
	StageExecuting
	StageSucceeded
	StageFailed
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "resolving-bucket"
	case StageRegistering:
		return "registering-bucket"
	case StageExecuting:
		return "executing"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	case StageDone:
		return "done"
	}
	return "info"
}

// Event is a single status update. Package is empty for messages that are
// not about one package.
type Event struct {
	OpID    string
	Stage   Stage
	Package string
	Message string
}

// Notifier receives events. Implementations must not block the caller.
type Notifier interface {
	Notify(Event)
}

// Func adapts a plain message callback to a Notifier.
type Func func(message string)

func (f Func) Notify(e Event) {
	if f != nil {
		f(e.Message)
	}
}

type nop struct{}

func (nop) Notify(Event) {}

// Nop discards every event.
var Nop Notifier = nop{}

// Channel is a buffered event stream. When the buffer is full new events
// are dropped instead of blocking the operation that emits them.
type Channel struct {
	ch      chan Event
	dropped atomic.Int64
}

// NewChannel creates a Channel holding up to size pending events.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan Event, size)}
}

func (c *Channel) Notify(e Event) {
	select {
	case c.ch <- e:
	default:
		c.dropped.Add(1)
	}
}

// Events returns the receive side of the stream.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Dropped reports how many events were discarded because the buffer was full.
func (c *Channel) Dropped() int64 {
	return c.dropped.Load()
}

// Op tags every event it emits with one operation ID so interleaved events
// from concurrent operations can be told apart.
type Op struct {
	ID string
	n  Notifier
}

// Start begins a new operation reporting to n. A nil n discards events.
// If n is already an Op, nested work shares its ID.
func Start(n Notifier) *Op {
	if op, ok := n.(*Op); ok {
		return op
	}
	if n == nil {
		n = Nop
	}
	return &Op{ID: uuid.NewString(), n: n}
}

func (o *Op) Notify(e Event) {
	e.OpID = o.ID
	o.n.Notify(e)
}

// Info emits a message that is not tied to a package stage.
func (o *Op) Info(msg string) {
	o.n.Notify(Event{OpID: o.ID, Stage: StageInfo, Message: msg})
}

// Stage emits a stage transition for pkg.
func (o *Op) Stage(stage Stage, pkg, msg string) {
	o.n.Notify(Event{OpID: o.ID, Stage: stage, Package: pkg, Message: msg})
}

// Done emits the terminal summary for the operation.
func (o *Op) Done(msg string) {
	o.n.Notify(Event{OpID: o.ID, Stage: StageDone, Message: msg})
}

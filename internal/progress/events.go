// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Stage names a pipeline stage.
type Stage string

// Pipeline stages, in execution order.
const (
	StageGenerate  Stage = "generate"
	StageDispatch  Stage = "dispatch"
	StageMonitor   Stage = "monitor"
	StageValidate  Stage = "validate"
	StageAggregate Stage = "aggregate"
	StagePublish   Stage = "publish"
)

// Event is a single progress update.
type Event struct {
	Stage     Stage     // Stage that emitted the event
	Type      EventType // What happened
	Index     int       // Work unit index for unit events, 0 otherwise
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStageStarted indicates a stage has begun.
	EventStageStarted EventType = iota
	// EventStageCompleted indicates a stage finished without a fatal error.
	EventStageCompleted
	// EventStageFailed indicates a stage returned a fatal error.
	EventStageFailed
	// EventUnitStarted indicates a work unit has started on the local pool.
	EventUnitStarted
	// EventUnitFinished indicates a work unit exited successfully.
	EventUnitFinished
	// EventUnitFailed indicates a work unit failed. The failure is not escalated.
	EventUnitFailed
	// EventPoll indicates one scheduler status query by the monitor.
	EventPoll
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStageStarted:
		return "stage-started"
	case EventStageCompleted:
		return "stage-completed"
	case EventStageFailed:
		return "stage-failed"
	case EventUnitStarted:
		return "unit-started"
	case EventUnitFinished:
		return "unit-finished"
	case EventUnitFailed:
		return "unit-failed"
	case EventPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For unit events
	ExitCode int
	Error    error

	// For EventPoll
	Outstanding int // Jobs still queued or running, -1 if the query failed

	// For EventStageCompleted
	Duration time.Duration
	Count    int // Stage-specific count: files written, units dispatched, lines combined
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends a progress event.
	Report(event Event)
	// Close signals that no more events will be sent and waits for listeners to drain.
	Close()
}

// Listener receives progress events.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(event Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(event Event) {
	f(event)
}

// Multi fans each event out to every listener in order.
type Multi []Listener

// OnEvent implements Listener.
func (m Multi) OnEvent(event Event) {
	for _, l := range m {
		if l != nil {
			l.OnEvent(event)
		}
	}
}

// NullReporter is a no-op implementation of Reporter.
type NullReporter struct{}

// Report implements Reporter.Report by doing nothing.
func (NullReporter) Report(Event) {}

// Close implements Reporter.Close by doing nothing.
func (NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return NullReporter{}
}

// Emit stamps the event and sends it. A nil reporter is ignored.
func Emit(r Reporter, event Event) {
	if r == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.Report(event)
}

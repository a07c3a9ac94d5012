// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"sync"
)

// ChannelReporter implements Reporter using a buffered channel.
// Report blocks while the buffer is full, so listeners see every event;
// it stops blocking once the context is cancelled and then drops events.
type ChannelReporter struct {
	ch     chan Event
	ctx    context.Context
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

// NewChannelReporter creates a new ChannelReporter with the specified buffer size.
func NewChannelReporter(ctx context.Context, bufferSize int) *ChannelReporter {
	return &ChannelReporter{
		ch:  make(chan Event, bufferSize),
		ctx: ctx,
	}
}

// Report implements Reporter.Report.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	case <-cr.ctx.Done():
	}
}

// Close implements Reporter.Close. Events already buffered are delivered
// to listeners before Close returns.
func (cr *ChannelReporter) Close() {
	cr.once.Do(func() {
		cr.mu.Lock()
		cr.closed = true
		close(cr.ch)
		cr.mu.Unlock()
		cr.wg.Wait()
	})
}

// Listen starts a goroutine forwarding events to listener until the reporter is closed.
// Call Listen once, before the first Report.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for event := range cr.ch {
			listener.OnEvent(event)
		}
	}()
}

// Events returns a read-only channel of progress events.
// Useful when you want to handle events manually instead of using a listener.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}

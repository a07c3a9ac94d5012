// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runWatch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) *sync.WaitGroup {
	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		Watch(ctx, sigCh, cancel)
	}()

	return &wg
}

func TestWatchFirstSignalNoCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	wg := runWatch(ctx, sigCh, cancel)

	sigCh <- os.Interrupt

	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, ctx.Err(), "context should not be cancelled after first signal")

	close(sigCh)
	wg.Wait()
}

func TestWatchSecondSignalCancels(t *testing.T) {
	tests := []struct {
		name   string
		first  os.Signal
		second os.Signal
	}{
		{name: "same signal", first: syscall.SIGINT, second: syscall.SIGINT},
		{name: "different signals", first: syscall.SIGINT, second: syscall.SIGTERM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 2)
			wg := runWatch(ctx, sigCh, cancel)

			sigCh <- tt.first
			sigCh <- tt.second

			wg.Wait()
			assert.ErrorIs(t, ctx.Err(), context.Canceled)
		})
	}
}

func TestWatchReturnsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal)
	wg := runWatch(ctx, sigCh, cancel)

	cancel()
	wg.Wait()
}

func TestNewAndStop(t *testing.T) {
	ch := New(context.Background(), syscall.SIGUSR1)
	assert.Equal(t, 1, cap(ch))
	Stop(ch)
}

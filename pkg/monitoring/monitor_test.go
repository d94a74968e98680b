package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/fieldradar/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestMonitorRunsInitialAndPeriodicChecks(t *testing.T) {
	var calls int32

	m := NewMonitor(MonitorConfig{Name: "test", Interval: 10 * time.Millisecond}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})

	go func() {
		m.StartMonitoring(ctx, func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return errors.New("keep going")
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, 5*time.Millisecond)

	m.Stop(ctx)
	m.Stop(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitorSkipInitial(t *testing.T) {
	var calls int32

	m := NewMonitor(MonitorConfig{Name: "test", Interval: time.Hour, SkipInitial: true}, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m.StartMonitoring(ctx, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	assert.Zero(t, atomic.LoadInt32(&calls))
}

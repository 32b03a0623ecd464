package goroutine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	done := make(chan struct{})
	rh.SafeGo(func() {
		defer close(done)
		panic("boom")
	})

	<-done
	assert.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestEvery_KeepsTickingAfterPanicAndStopsOnCancel(t *testing.T) {
	log := &recordingLogger{}
	rh := NewRecoveryHandler(log)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	rh.Every(ctx, 5*time.Millisecond, func(context.Context) {
		if calls.Add(1) == 1 {
			panic("first tick")
		}
	})

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	stopped := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), stopped+1)
	assert.Equal(t, 1, log.count())
}

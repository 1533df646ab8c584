package safe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func exportLike(shouldPanic bool) (ret int) {
	defer Recover("read", &ret, -1)
	if shouldPanic {
		panic("boom")
	}
	return 42
}

func TestRecover_ReplacesResultWithSentinel(t *testing.T) {
	before := GetStats().PanicCount

	assert.Equal(t, 42, exportLike(false))
	assert.Equal(t, -1, exportLike(true))
	assert.Equal(t, before+1, GetStats().PanicCount)
}

func TestRecover_Hook(t *testing.T) {
	defer SetPanicHook(nil)

	var gotOp string
	SetPanicHook(func(op string, recovered interface{}) { gotOp = op })
	exportLike(true)
	assert.Equal(t, "read", gotOp)
}

func TestGo_RecoversPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	Go("panicky", func() {
		defer wg.Done()
		panic("worker failed")
	})
	wg.Wait()

	assert.Eventually(t, func() bool { return GetStats().Active == 0 }, time.Second, 5*time.Millisecond)
}

func TestGoWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	GoWithContext(ctx, "waiter", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not observe cancellation")
	}
}

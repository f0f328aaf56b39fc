package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushLog struct {
	mu      sync.Mutex
	batches [][]string
	signal  chan struct{}
}

func newFlushLog() *flushLog {
	return &flushLog{signal: make(chan struct{}, 16)}
}

func (f *flushLog) record(values []string) {
	f.mu.Lock()
	f.batches = append(f.batches, values)
	f.mu.Unlock()
	f.signal <- struct{}{}
}

func (f *flushLog) snapshot() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batches...)
}

func (f *flushLog) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}
}

func TestBurstCollapsesToLatest(t *testing.T) {
	log := newFlushLog()
	d := New[string, string](50*time.Millisecond, 0, log.record)

	d.Add("q", "d")
	time.Sleep(10 * time.Millisecond)
	d.Add("q", "de")
	time.Sleep(10 * time.Millisecond)
	d.Add("q", "dep")

	log.wait(t)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, [][]string{{"dep"}}, log.snapshot())
}

func TestKeysKeepInsertionOrder(t *testing.T) {
	log := newFlushLog()
	d := New[string, string](20*time.Millisecond, 0, log.record)

	d.Add("b", "b1")
	d.Add("a", "a1")
	d.Add("b", "b2")

	log.wait(t)
	assert.Equal(t, [][]string{{"b2", "a1"}}, log.snapshot())
}

func TestMaxBatchFlushesImmediately(t *testing.T) {
	log := newFlushLog()
	d := New[string, string](time.Hour, 2, log.record)

	d.Add("a", "1")
	d.Add("b", "2")

	log.wait(t)
	assert.Equal(t, [][]string{{"1", "2"}}, log.snapshot())
	assert.False(t, d.Pending())
}

func TestCancelDropsPending(t *testing.T) {
	log := newFlushLog()
	d := New[string, string](20*time.Millisecond, 0, log.record)

	d.Add("q", "abc")
	require.True(t, d.Pending())
	d.Cancel()
	assert.False(t, d.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, log.snapshot())
}

func TestStopFlushesAndIgnoresLaterAdds(t *testing.T) {
	log := newFlushLog()
	d := New[string, string](time.Hour, 0, log.record)

	d.Add("q", "last")
	d.Stop()
	log.wait(t)

	d.Add("q", "ignored")
	d.Flush()
	assert.Equal(t, [][]string{{"last"}}, log.snapshot())
}

func TestFlushRunsNow(t *testing.T) {
	log := newFlushLog()
	d := New[int, int](time.Hour, 0, func(v []int) { log.record([]string{"n"}) })

	d.Add(1, 1)
	d.Flush()
	log.wait(t)
	assert.Len(t, log.snapshot(), 1)
}

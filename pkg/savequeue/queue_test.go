package savequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	ran []string
}

func (r *recorder) task(name string, gate <-chan struct{}) Task {
	return func(ctx context.Context) error {
		if gate != nil {
			<-gate
		}
		r.mu.Lock()
		r.ran = append(r.ran, name)
		r.mu.Unlock()
		return nil
	}
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func TestQueue_LatestPendingWins(t *testing.T) {
	q := New(context.Background(), Options{Debounce: -1})
	rec := &recorder{}
	gate := make(chan struct{})

	q.Submit(rec.task("a", gate))
	require.Eventually(t, func() bool { return q.Busy() && !q.Pending() }, time.Second, time.Millisecond)

	q.Submit(rec.task("b", nil))
	q.Submit(rec.task("c", nil))
	assert.True(t, q.Pending())

	close(gate)
	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, []string{"a", "c"}, rec.names())
	assert.False(t, q.Busy())
}

func TestQueue_NeverRunsConcurrently(t *testing.T) {
	q := New(context.Background(), Options{Debounce: -1})
	var inFlight, maxInFlight atomic.Int32

	task := func(context.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	for i := 0; i < 50; i++ {
		q.Submit(task)
	}
	require.NoError(t, q.Flush(context.Background()))
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestQueue_ScheduleDebounces(t *testing.T) {
	q := New(context.Background(), Options{Debounce: 50 * time.Millisecond})
	rec := &recorder{}

	q.Schedule(rec.task("first", nil))
	q.Schedule(rec.task("second", nil))
	q.Schedule(rec.task("third", nil))
	assert.True(t, q.Pending())
	assert.Empty(t, rec.names(), "nothing runs before the quiet period")

	require.Eventually(t, func() bool { return len(rec.names()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"third"}, rec.names())
}

func TestQueue_FlushSkipsDebounce(t *testing.T) {
	q := New(context.Background(), Options{Debounce: time.Hour})
	boom := errors.New("boom")
	var results []error
	var mu sync.Mutex
	q.onResult = func(err error) {
		mu.Lock()
		results = append(results, err)
		mu.Unlock()
	}

	q.Schedule(func(context.Context) error { return boom })
	err := q.Flush(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, q.LastError(), boom)

	mu.Lock()
	assert.Equal(t, []error{boom}, results)
	mu.Unlock()
}

func TestQueue_FlushIdle(t *testing.T) {
	q := New(context.Background(), Options{})
	assert.NoError(t, q.Flush(context.Background()))
	assert.Nil(t, q.LastError())
}

func TestQueue_FlushHonoursContext(t *testing.T) {
	q := New(context.Background(), Options{Debounce: -1})
	gate := make(chan struct{})
	defer close(gate)

	q.Submit(func(context.Context) error {
		<-gate
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Flush(ctx), context.DeadlineExceeded)
}

func TestQueue_Close(t *testing.T) {
	q := New(context.Background(), Options{Debounce: time.Hour})
	rec := &recorder{}

	q.Schedule(rec.task("last", nil))
	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, []string{"last"}, rec.names(), "close flushes the pending snapshot")

	q.Submit(rec.task("late", nil))
	assert.False(t, q.Busy())
	assert.ErrorIs(t, q.Flush(context.Background()), ErrClosed)
	assert.NoError(t, q.Close(context.Background()))
}

package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestLock_SerializesSameDate(t *testing.T) {
	d := New()
	var active, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := d.Lock(context.Background(), day)
			if !assert.NoError(t, err) {
				return
			}
			n :=atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, d.Len())
}

func TestLock_DistinctDatesIndependent(t *testing.T) {
	d := New()
	unlock, err := d.Lock(context.Background(), day)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := d.Lock(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	other()
}

func TestLock_ContextCancel(t *testing.T) {
	d := New()
	unlock, err := d.Lock(context.Background(), day)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = d.Lock(ctx, day)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, d.Len())
}

func TestLock_ZeroValue(t *testing.T) {
	var d Dates
	unlock, err := d.Lock(context.Background(), day)
	require.NoError(t, err)
	unlock()
}

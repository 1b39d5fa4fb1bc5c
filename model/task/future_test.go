package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_SettleOnce(t *testing.T) {
	future := NewFuture(1)
	_, _, ok := future.Result()
	assert.False(t, ok)

	var wg sync.WaitGroup
	var settled int32
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if future.Settle(i, nil) {
				mu.Lock()
				settled++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, settled)
	assert.False(t, future.Settle(nil, errors.New("late")))

	value, err, ok := future.Result()
	require.True(t, ok)
	assert.NoError(t, err)
	assert.NotNil(t, value)
}

func TestFuture_Wait(t *testing.T) {
	future := NewFuture(2)
	go func() {
		time.Sleep(10 * time.Millisecond)
		future.Settle("done", nil)
	}()
	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	pending := NewFuture(3)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRejected(t *testing.T) {
	boom := errors.New("boom")
	future := Rejected(4, boom)
	_, err, ok := future.Result()
	assert.True(t, ok)
	assert.ErrorIs(t, err, boom)
}

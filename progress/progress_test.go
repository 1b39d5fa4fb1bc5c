package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	tracker := New("session-1")
	var changes []Counters
	tracker.OnChange(func(c Counters) { changes = append(changes, c) })

	tracker.Update(Delta{Submitted: 1, Pending: 1})
	tracker.Update(Delta{Pending: -1, Running: 1})
	tracker.Update(Delta{Running: -1, Completed: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, "session-1", snapshot.SessionID)
	assert.Equal(t, 1, snapshot.Submitted)
	assert.Equal(t, 0, snapshot.Pending)
	assert.Equal(t, 0, snapshot.Running)
	assert.Equal(t, 1, snapshot.Completed)
	assert.Equal(t, 1, snapshot.Settled())
	assert.Len(t, changes, 3)
	assert.Equal(t, 1, changes[1].Running)
}

func TestProgress_Concurrent(t *testing.T) {
	tracker := New("session-2")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Delta{Submitted: 1, Rejected: 1})
		}()
	}
	wg.Wait()
	snapshot := tracker.Snapshot()
	assert.Equal(t, 50, snapshot.Submitted)
	assert.Equal(t, 50, snapshot.Settled())
}

func TestProgress_Nil(t *testing.T) {
	var tracker *Progress
	tracker.Update(Delta{Submitted: 1})
	assert.Equal(t, Counters{}, tracker.Snapshot())
}

package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/worker"
)

func states(statuses ...worker.Status) []worker.State {
	ret := make([]worker.State, len(statuses))
	for i, status := range statuses {
		ret[i] = worker.State{ID: i, Status: status}
	}
	return ret
}

func TestInOrder_Candidates(t *testing.T) {
	policy, err := New(InOrderPolicy, nil)
	require.NoError(t, err)
	all := states(worker.StatusBusy, worker.StatusIdle, worker.StatusRestarting, worker.StatusIdle)
	assert.Equal(t, []int{1, 3}, policy.Candidates(all))
	assert.Equal(t, []int{1, 3}, policy.Candidates(all))
}

func TestRoundRobin_Candidates(t *testing.T) {
	policy, err := New(RoundRobinPolicy, nil)
	require.NoError(t, err)
	all := states(worker.StatusIdle, worker.StatusIdle, worker.StatusIdle)
	assert.Equal(t, []int{0, 1, 2}, policy.Candidates(all))
	assert.Equal(t, []int{1, 2, 0}, policy.Candidates(all))
	assert.Equal(t, []int{2, 0, 1}, policy.Candidates(all))
	assert.Empty(t, policy.Candidates(nil))
}

func TestSticky_Bind(t *testing.T) {
	policy, err := New(InOrderPolicy, KeyByArg(0))
	require.NoError(t, err)

	lanes := map[string]int{}
	for i := 0; i < 20; i++ {
		for _, key := range []string{"a", "b", "c", "d"} {
			aTask := task.New(uint64(i+1), "get", []interface{}{key}, 0)
			lane := policy.Bind(aTask, 3)
			assert.True(t, lane >= 0 && lane < 3)
			assert.Equal(t, key, aTask.Key)
			if prev, ok := lanes[key]; ok {
				assert.Equal(t, prev, lane, key)
			}
			lanes[key] = lane
		}
	}

	unbound := task.New(100, "get", nil, 0)
	assert.Equal(t, task.AnyWorker, policy.Bind(unbound, 3))
}

func TestKeyByArg(t *testing.T) {
	key := KeyByArg(1)
	assert.Equal(t, "", key("m", []interface{}{"x"}))
	assert.Equal(t, "42", key("m", []interface{}{"x", 42}))
	assert.Equal(t, "get", KeyByMethod("get", nil))
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New("random", nil)
	assert.Error(t, err)
}

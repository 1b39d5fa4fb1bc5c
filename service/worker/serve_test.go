package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
)

func testMethods() types.Methods {
	return types.Methods{
		{Name: "add", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			return args[0].(float64) + args[1].(float64), nil
		}},
		{Name: "fail", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			return nil, errors.New("bad input")
		}},
		{Name: "whoami", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			id, _ := types.WorkerID(ctx)
			return id, nil
		}},
		{Name: "_private", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			return "secret", nil
		}},
	}
}

func TestServe(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	parent := NewStreamConn(respR, reqW)
	child := NewStreamConn(reqR, respW)

	done := make(chan error, 1)
	go func() {
		done <- Serve(context.Background(), 7, testMethods(), child, io.Discard, io.Discard)
		respW.Close()
	}()

	ctx := context.Background()
	msg, err := parent.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.KindReady, msg.Kind)
	assert.Equal(t, 7, msg.WorkerID)

	testCases := []struct {
		name      string
		call      *task.Message
		kind      task.Kind
		value     interface{}
		errSubstr string
	}{
		{name: "result", call: &task.Message{Kind: task.KindCall, TaskID: 1, Method: "add", Args: []interface{}{1, 2}}, kind: task.KindResult, value: float64(3)},
		{name: "handler error", call: &task.Message{Kind: task.KindCall, TaskID: 2, Method: "fail"}, kind: task.KindError, errSubstr: "bad input"},
		{name: "worker id", call: &task.Message{Kind: task.KindCall, TaskID: 3, Method: "whoami"}, kind: task.KindResult, value: float64(7)},
		{name: "unknown", call: &task.Message{Kind: task.KindCall, TaskID: 4, Method: "nope"}, kind: task.KindError, errSubstr: "method not found"},
		{name: "reserved", call: &task.Message{Kind: task.KindCall, TaskID: 5, Method: "_private"}, kind: task.KindError, errSubstr: "method not found"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, parent.Send(tc.call))
			reply, err := parent.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, reply.Kind)
			assert.Equal(t, tc.call.TaskID, reply.TaskID)
			if tc.errSubstr != "" {
				assert.Contains(t, reply.Error, tc.errSubstr)
				return
			}
			assert.EqualValues(t, tc.value, reply.Value)
		})
	}

	require.NoError(t, parent.Send(&task.Message{Kind: task.KindExit}))
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestServe_DuplicateMethods(t *testing.T) {
	methods := types.Methods{{Name: "a"}, {Name: "a"}}
	err := Serve(context.Background(), 0, methods, nil, nil, nil)
	var dup *types.DuplicateMethodError
	assert.ErrorAs(t, err, &dup)
}

func TestServeProcess_NotChild(t *testing.T) {
	t.Setenv(EnvChild, "")
	assert.False(t, IsChild())
	assert.Error(t, ServeProcess(context.Background(), testMethods()))
}

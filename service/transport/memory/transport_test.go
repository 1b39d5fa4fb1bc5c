package memory

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/service/transport"
)

func next(t *testing.T, ch transport.Channel) *task.Message {
	select {
	case msg, ok := <-ch.Messages():
		if !ok {
			return nil
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker message")
	}
	return nil
}

func TestChannel(t *testing.T) {
	release := make(chan struct{})
	methods := types.Methods{
		{Name: "echo", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			fmt.Fprint(types.Stdout(ctx), "out")
			return args[0], nil
		}},
		{Name: "panic", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			panic("boom")
		}},
		{Name: "block", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil, ctx.Err()
		}},
	}
	tr := New(methods)

	t.Run("call", func(t *testing.T) {
		ch, err := tr.Start(context.Background(), 0)
		require.NoError(t, err)
		go io.Copy(io.Discard, ch.Stderr())
		out := make(chan []byte, 1)
		go func() {
			data, _ := io.ReadAll(ch.Stdout())
			out <- data
		}()
		require.Equal(t, task.KindReady, next(t, ch).Kind)
		require.NoError(t, ch.Send(&task.Message{Kind: task.KindCall, TaskID: 1, Method: "echo", Args: []interface{}{42}}))
		reply := next(t, ch)
		assert.Equal(t, task.KindResult, reply.Kind)
		assert.Equal(t, 42, reply.Value)
		require.NoError(t, ch.Stop(context.Background()))
		assert.Nil(t, next(t, ch))
		assert.NoError(t, ch.Err())
		assert.Equal(t, "out", string(<-out))
	})

	t.Run("panic ends the worker", func(t *testing.T) {
		ch, err := tr.Start(context.Background(), 1)
		require.NoError(t, err)
		go io.Copy(io.Discard, ch.Stdout())
		go io.Copy(io.Discard, ch.Stderr())
		require.Equal(t, task.KindReady, next(t, ch).Kind)
		require.NoError(t, ch.Send(&task.Message{Kind: task.KindCall, TaskID: 2, Method: "panic"}))
		assert.Nil(t, next(t, ch))
		assert.ErrorContains(t, ch.Err(), "boom")
		assert.ErrorIs(t, ch.Send(&task.Message{Kind: task.KindCall}), transport.ErrClosed)
	})

	t.Run("kill while busy", func(t *testing.T) {
		ch, err := tr.Start(context.Background(), 2)
		require.NoError(t, err)
		go io.Copy(io.Discard, ch.Stdout())
		go io.Copy(io.Discard, ch.Stderr())
		require.Equal(t, task.KindReady, next(t, ch).Kind)
		require.NoError(t, ch.Send(&task.Message{Kind: task.KindCall, TaskID: 3, Method: "block"}))
		require.NoError(t, ch.Kill())
		assert.Nil(t, next(t, ch))
		assert.Error(t, ch.Err())
		assert.NoError(t, ch.Kill())
	})
}

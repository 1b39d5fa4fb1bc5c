package workerfarm_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/workerfarm"
	"github.com/viant/workerfarm/model/types"
	"github.com/viant/workerfarm/model/worker"
	"github.com/viant/workerfarm/policy"
	"github.com/viant/workerfarm/service/farm"
	"github.com/viant/workerfarm/service/selector"
	"github.com/viant/workerfarm/service/transport/process"
	wworker "github.com/viant/workerfarm/service/worker"
)

type Size struct {
	Width  int
	Height int
}

type ResizeInput struct {
	Image string
	Size  Size
	Scale int
}

type ResizeOutput struct {
	Image string
	Size  Size
}

func resize(ctx context.Context, input *ResizeInput) (*ResizeOutput, error) {
	if input.Scale <= 0 {
		return nil, fmt.Errorf("invalid scale: %v", input.Scale)
	}
	fmt.Fprintf(types.Stdout(ctx), "resizing %v\n", input.Image)
	return &ResizeOutput{Image: input.Image, Size: Size{Width: input.Size.Width * input.Scale, Height: input.Size.Height * input.Scale}}, nil
}

var testMethods = types.Methods{
	{Name: "resize", Description: "scales an image", Handler: types.NewTypedHandler(resize)},
	{Name: "echo", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
		return args, nil
	}},
	{Name: "pid", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
		return os.Getpid(), nil
	}},
	{Name: "exit", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
		os.Exit(2)
		return nil, nil
	}},
	{Name: "_internal", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
		return "hidden", nil
	}},
}

// TestMain serves testMethods when the test binary is started as a worker
func TestMain(m *testing.M) {
	if wworker.IsChild() {
		if err := wworker.ServeProcess(context.Background(), testMethods); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func waitFor(t *testing.T, invoke func() (interface{}, error)) (interface{}, error) {
	type outcome struct {
		value interface{}
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := invoke()
		done <- outcome{value, err}
	}()
	select {
	case ret := <-done:
		return ret.value, ret.err
	case <-time.After(10 * time.Second):
		t.Fatal("call did not settle")
	}
	return nil, nil
}

func TestService_Call(t *testing.T) {
	ctx := context.Background()
	srv, err := workerfarm.New(ctx, testMethods, workerfarm.WithWorkers(2))
	require.NoError(t, err)
	defer srv.End(ctx)

	assert.Equal(t, []string{"resize", "echo", "pid", "exit"}, srv.Methods())
	assert.Len(t, srv.Workers(), 2)
	assert.NotEmpty(t, srv.SessionID())

	resizeFn, ok := srv.Method("resize")
	require.True(t, ok)
	value, err := waitFor(t, func() (interface{}, error) {
		return resizeFn(ctx, &ResizeInput{Image: "cat.png", Size: Size{Width: 2, Height: 3}, Scale: 2}).Wait(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, &ResizeOutput{Image: "cat.png", Size: Size{Width: 4, Height: 6}}, value)

	_, err = waitFor(t, func() (interface{}, error) {
		return srv.Call(ctx, "resize", &ResizeInput{Image: "cat.png"}).Wait(ctx)
	})
	assert.EqualError(t, err, "invalid scale: 0")

	value, err = waitFor(t, func() (interface{}, error) {
		return srv.Call(ctx, "echo", 1, "two").Wait(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, "two"}, value)

	_, err = srv.Call(ctx, "_internal").Wait(ctx)
	assert.ErrorIs(t, err, types.ErrMethodNotFound)
	_, err = srv.Call(ctx, "missing").Wait(ctx)
	assert.ErrorIs(t, err, types.ErrMethodNotFound)
	_, ok = srv.Method("_internal")
	assert.False(t, ok)

	stats := srv.Stats()
	assert.Equal(t, 3, stats.Submitted)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
}

func TestService_Construction(t *testing.T) {
	handler := func(ctx context.Context, args []interface{}) (interface{}, error) { return nil, nil }
	testCases := []struct {
		description string
		methods     types.Methods
		options     []workerfarm.Option
		expectDup   string
		expectErr   bool
	}{
		{description: "reserved name", methods: types.Methods{{Name: "end", Handler: handler}}, expectDup: "end"},
		{description: "reserved mixed case", methods: types.Methods{{Name: "KILLANDDRAIN", Handler: handler}}, expectDup: "KILLANDDRAIN"},
		{description: "duplicate name", methods: types.Methods{{Name: "a", Handler: handler}, {Name: "a", Handler: handler}}, expectDup: "a"},
		{description: "reserved but hidden", methods: types.Methods{{Name: "Call", Handler: handler}, {Name: "a", Handler: handler}}, options: []workerfarm.Option{workerfarm.WithExposedMethods("a")}},
		{description: "unknown exposed method", methods: types.Methods{{Name: "a", Handler: handler}}, options: []workerfarm.Option{workerfarm.WithExposedMethods("b")}, expectErr: true},
		{description: "missing handler", methods: types.Methods{{Name: "a"}}, expectErr: true},
		{description: "invalid policy", methods: types.Methods{{Name: "a", Handler: handler}}, options: []workerfarm.Option{workerfarm.WithSchedulingPolicy("random")}, expectErr: true},
		{description: "process without command", methods: types.Methods{{Name: "a", Handler: handler}}, options: []workerfarm.Option{workerfarm.WithConfig(&workerfarm.Config{Workers: 1, Process: &process.Config{}})}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			options := append([]workerfarm.Option{workerfarm.WithWorkers(1)}, testCase.options...)
			srv, err := workerfarm.New(context.Background(), testCase.methods, options...)
			if testCase.expectDup != "" {
				dup := &types.DuplicateMethodError{}
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, testCase.expectDup, dup.Name)
				return
			}
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, srv.End(context.Background()))
		})
	}
}

func TestService_ExposurePolicy(t *testing.T) {
	ctx := context.Background()
	srv, err := workerfarm.New(ctx, testMethods,
		workerfarm.WithWorkers(1),
		workerfarm.WithExposurePolicy(&policy.Policy{BlockList: []string{"exit", "PID"}}))
	require.NoError(t, err)
	defer srv.End(ctx)
	assert.Equal(t, []string{"resize", "echo"}, srv.Methods())
	_, err = srv.Call(ctx, "exit").Wait(ctx)
	assert.ErrorIs(t, err, types.ErrMethodNotFound)
}

func TestService_Sticky(t *testing.T) {
	ctx := context.Background()
	var mux sync.Mutex
	workersByKey := map[string]map[int]bool{}
	methods := types.Methods{{Name: "touch", Handler: func(ctx context.Context, args []interface{}) (interface{}, error) {
		id, _ := types.WorkerID(ctx)
		mux.Lock()
		defer mux.Unlock()
		key := args[0].(string)
		if workersByKey[key] == nil {
			workersByKey[key] = map[int]bool{}
		}
		workersByKey[key][id] = true
		return id, nil
	}}}
	srv, err := workerfarm.New(ctx, methods, workerfarm.WithWorkers(4), workerfarm.WithComputeWorkerKey(selector.KeyByArg(0)))
	require.NoError(t, err)
	defer srv.End(ctx)

	touch, _ := srv.Method("touch")
	for i := 0; i < 40; i++ {
		_, err := waitFor(t, func() (interface{}, error) {
			return touch(ctx, fmt.Sprintf("user-%d", i%5)).Wait(ctx)
		})
		require.NoError(t, err)
	}
	for key, workers := range workersByKey {
		assert.Len(t, workers, 1, key)
	}
}

func TestService_Events(t *testing.T) {
	ctx := context.Background()
	var mux sync.Mutex
	var events []farm.EventType
	srv, err := workerfarm.New(ctx, testMethods, workerfarm.WithWorkers(1),
		workerfarm.WithListener(func(event *farm.Event) {
			mux.Lock()
			events = append(events, event.Type)
			mux.Unlock()
		}))
	require.NoError(t, err)
	_, err = waitFor(t, func() (interface{}, error) { return srv.Call(ctx, "echo", 1).Wait(ctx) })
	require.NoError(t, err)
	require.NoError(t, srv.End(ctx))

	mux.Lock()
	defer mux.Unlock()
	assert.Equal(t, []farm.EventType{farm.EventQueued, farm.EventDispatched, farm.EventCompleted}, events)
}

func TestService_End(t *testing.T) {
	ctx := context.Background()
	srv, err := workerfarm.New(ctx, testMethods, workerfarm.WithWorkers(2))
	require.NoError(t, err)
	require.NoError(t, srv.End(ctx))
	assert.ErrorIs(t, srv.End(ctx), types.ErrFarmEnded)

	_, err = srv.Call(ctx, "echo", 1).Wait(ctx)
	assert.ErrorIs(t, err, types.ErrFarmEnded)
	for _, state := range srv.Workers() {
		assert.Equal(t, worker.StatusDead, state.Status)
	}
}

func TestService_ProcessWorkers(t *testing.T) {
	ctx := context.Background()
	tr, err := process.New(process.Config{Command: os.Args[0]})
	require.NoError(t, err)
	stdout := &lockedBuffer{}
	srv, err := workerfarm.New(ctx, testMethods,
		workerfarm.WithWorkers(2),
		workerfarm.WithMaxRetries(1),
		workerfarm.WithTransport(tr),
		workerfarm.WithStdout(stdout))
	require.NoError(t, err)

	value, err := waitFor(t, func() (interface{}, error) {
		return srv.Call(ctx, "resize", ResizeInput{Image: "dog.png", Size: Size{Width: 1, Height: 1}, Scale: 3}).Wait(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"Image": "dog.png", "Size": map[string]interface{}{"Width": float64(3), "Height": float64(3)}}, value)

	pid, err := waitFor(t, func() (interface{}, error) { return srv.Call(ctx, "pid").Wait(ctx) })
	require.NoError(t, err)
	assert.NotEqual(t, float64(os.Getpid()), pid)

	_, err = waitFor(t, func() (interface{}, error) { return srv.Call(ctx, "exit").Wait(ctx) })
	exhausted := &types.RetriesExhaustedError{}
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)

	_, err = waitFor(t, func() (interface{}, error) { return srv.Call(ctx, "resize", map[string]interface{}{"Image": "x"}).Wait(ctx) })
	taskErr := &types.TaskError{}
	require.True(t, errors.As(err, &taskErr))
	assert.Contains(t, taskErr.Message, "invalid scale")

	require.NoError(t, srv.End(ctx))
	assert.Contains(t, stdout.String(), "resizing dog.png\n")
}

type lockedBuffer struct {
	mux sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(data []byte) (int, error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.buf.Write(data)
}

func (b *lockedBuffer) String() string {
	b.mux.Lock()
	defer b.mux.Unlock()
	return strings.Clone(b.buf.String())
}

// Package worker runs the worker side of the farm protocol: it announces
// readiness, executes call messages against a method table and answers
// with result or error messages until asked to exit.
package worker

import (
	"context"
	"errors"
	"io"

	"github.com/viant/workerfarm/model/task"
	"github.com/viant/workerfarm/model/types"
)

// Conn is the worker end of a transport channel
type Conn interface {
	Receive(ctx context.Context) (*task.Message, error)
	Send(msg *task.Message) error
}

// Serve processes calls until an exit message, ctx cancellation or a closed
// connection. Handler panics are not recovered: a panicking handler takes
// the worker down and the pool treats it as a crash.
func Serve(ctx context.Context, workerID int, methods types.Methods, conn Conn, stdout, stderr io.Writer) error {
	index, err := methods.Index()
	if err != nil {
		return err
	}
	if err = conn.Send(&task.Message{Kind: task.KindReady, WorkerID: workerID}); err != nil {
		return err
	}
	handlerCtx := types.WithWorker(ctx, workerID, stdout, stderr)
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		switch msg.Kind {
		case task.KindExit:
			return nil
		case task.KindCall:
			if err = conn.Send(call(handlerCtx, workerID, index, msg)); err != nil {
				return err
			}
		}
	}
}

func call(ctx context.Context, workerID int, index map[string]types.Handler, msg *task.Message) *task.Message {
	reply := &task.Message{WorkerID: workerID, TaskID: msg.TaskID, Method: msg.Method}
	handler, ok := index[msg.Method]
	if !ok || handler == nil || types.IsReserved(msg.Method) {
		err := types.NewMethodNotFoundError(msg.Method)
		reply.Kind, reply.Error, reply.Err = task.KindError, err.Error(), err
		return reply
	}
	value, err := handler(ctx, msg.Args)
	if err != nil {
		reply.Kind, reply.Error, reply.Err = task.KindError, err.Error(), err
		return reply
	}
	reply.Kind, reply.Value = task.KindResult, value
	return reply
}

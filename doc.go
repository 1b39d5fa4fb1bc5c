// Package workerfarm runs a table of methods on a pool of workers.
//
// Every exposed method becomes an asynchronous call: the farm queues it,
// hands it to an idle worker, retries it when the worker crashes and settles
// its future exactly once. Workers are goroutines by default or child
// processes when a process transport is configured:
//
//	srv, err := workerfarm.New(ctx, types.Methods{
//		{Name: "resize", Handler: resize},
//	}, workerfarm.WithWorkers(4))
//	resize, _ := srv.Method("resize")
//	value, err := resize(ctx, image).Wait(ctx)
//	_ = srv.End(ctx)
//
// For more details see the individual sub-packages.
package workerfarm

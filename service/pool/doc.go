// Package pool hosts the workers that execute tasks. Every worker is started
// through a transport, monitored for results and unexpected exits, and
// restarted under the same id when it crashes. The pool never queues work:
// a task is only sent to an idle worker.
package pool

// Package farm schedules tasks onto a worker pool. It owns the queue and the
// in-flight table, retries tasks whose worker crashed, and settles every
// task future exactly once.
package farm

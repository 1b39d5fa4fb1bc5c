// Package clock lets tests pin the time seen by tasks and workers.
package clock

import "time"

// NowFunc returns current time; tests override it.
var NowFunc = time.Now

// Now returns NowFunc()
func Now() time.Time { return NowFunc() }

// Since returns elapsed time measured with NowFunc
func Since(t time.Time) time.Duration { return Now().Sub(t) }

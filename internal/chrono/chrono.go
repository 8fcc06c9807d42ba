// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chrono provides monotonic timing helpers for the stress
// harness and tests. The core queues do not use it.
package chrono

import "time"

// Stopwatch measures elapsed time on the monotonic clock.
type Stopwatch struct {
	start time.Time
}

// Start returns a running stopwatch.
func Start() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Elapsed returns the time since Start.
func (s Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Measure runs fn iters times and returns the average duration per
// iteration. iters must be > 0.
func Measure(iters int, fn func()) time.Duration {
	sw := Start()
	for range iters {
		fn()
	}
	return sw.Elapsed() / time.Duration(iters)
}

// Throughput returns operations per second for n operations completed in
// elapsed time.
func Throughput(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}

// SpinFor busy-waits (with scheduler yields folded in by the runtime) for
// at least d. Used to simulate per-message processing time without
// sleeping the whole thread.
func SpinFor(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

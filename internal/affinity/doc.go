// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package affinity pins goroutines to CPU cores for latency measurement.
//
// Pinning keeps a polling consumer on one core so cache residency and
// measured latencies stay stable. Only the Linux implementation binds the
// thread; other platforms fall back to LockOSThread alone.
package affinity

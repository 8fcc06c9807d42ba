// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chrono_test

import (
	"testing"
	"time"

	"code.hybscloud.com/ordq/internal/chrono"
)

func TestMeasure(t *testing.T) {
	calls := 0
	avg := chrono.Measure(10, func() { calls++ })
	if calls != 10 {
		t.Fatalf("calls: got %d, want 10", calls)
	}
	if avg < 0 {
		t.Fatalf("average: got %v", avg)
	}
}

func TestThroughput(t *testing.T) {
	if got := chrono.Throughput(1000, time.Second); got != 1000 {
		t.Fatalf("Throughput: got %v, want 1000", got)
	}
	if got := chrono.Throughput(1000, 0); got != 0 {
		t.Fatalf("Throughput zero elapsed: got %v, want 0", got)
	}
}

func TestSpinFor(t *testing.T) {
	sw := chrono.Start()
	chrono.SpinFor(time.Millisecond)
	if sw.Elapsed() < time.Millisecond {
		t.Fatalf("SpinFor returned early: %v", sw.Elapsed())
	}
}

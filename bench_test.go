// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ordq_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/ordq"
)

// BenchmarkSPSCEnqueueDequeue measures the uncontended hot path:
// alternating enqueue and dequeue on one goroutine.
func BenchmarkSPSCEnqueueDequeue(b *testing.B) {
	q := ordq.NewSPSC[int](1024)
	v := 42

	b.ResetTimer()
	for range b.N {
		_ = q.Enqueue(&v)
		_, _ = q.Dequeue()
	}
}

// BenchmarkSPSCBulk64 measures batch transfer in 64-element chunks.
func BenchmarkSPSCBulk64(b *testing.B) {
	q := ordq.NewSPSC[int](1024)
	src := make([]int, 64)
	dst := make([]int, 64)

	b.ResetTimer()
	for range b.N {
		_ = q.EnqueueBulk(src)
		_ = q.DequeueBulk(dst)
	}
}

// BenchmarkSPSCPipe measures a producer goroutine streaming to a consumer
// goroutine through the ring.
func BenchmarkSPSCPipe(b *testing.B) {
	q := ordq.NewSPSC[int](1024)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := range b.N {
			v := i
			for q.Enqueue(&v) != nil {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	backoff := iox.Backoff{}
	for i := 0; i < b.N; {
		_, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		i++
	}
	wg.Wait()
}

// BenchmarkSeqMPSCEnqueueDequeue measures the slot-seq hot path without
// contention.
func BenchmarkSeqMPSCEnqueueDequeue(b *testing.B) {
	q := ordq.NewSeqMPSC[int](1024)
	v := 42

	b.ResetTimer()
	for range b.N {
		_ = q.Enqueue(&v)
		_, _ = q.Dequeue()
	}
}

// BenchmarkShardedMPSCEnqueueDequeue measures the sharded hot path with a
// single registered producer.
func BenchmarkShardedMPSCEnqueueDequeue(b *testing.B) {
	q := ordq.NewShardedMPSC[int](1024, 4)
	tok, err := q.RegisterProducer()
	if err != nil {
		b.Fatal(err)
	}
	v := 42

	b.ResetTimer()
	for range b.N {
		_ = q.Enqueue(tok, &v)
		_, _ = q.Dequeue()
	}
}

// BenchmarkReordererInOrder measures the reorderer direct-hit path.
func BenchmarkReordererInOrder(b *testing.B) {
	src := ordq.NewSeqMPSC[ordq.Sequenced[int]](1024)
	r := ordq.NewReorderer[int](src, true)
	defer r.Close()

	b.ResetTimer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := range b.N {
			msg := ordq.Sequenced[int]{Seq: uint64(i), Data: i}
			for src.Enqueue(&msg) != nil {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	backoff := iox.Backoff{}
	for i := 0; i < b.N; {
		_, err := r.GetNext()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		i++
	}
	wg.Wait()
}

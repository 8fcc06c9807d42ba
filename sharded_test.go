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

// =============================================================================
// Sharded MPSC
// =============================================================================

// TestShardedMPSCFanIn runs four producers against four shards and
// verifies every item arrives exactly once and each producer's items
// arrive in ascending order.
func TestShardedMPSCFanIn(t *testing.T) {
	if ordq.RaceEnabled {
		t.Skip("skip: generic queue data is guarded by cross-variable memory ordering")
	}
	const (
		producers = 4
		perProd   = 1000
	)

	q := ordq.NewShardedMPSC[int](1024, producers)
	var wg sync.WaitGroup

	for p := range producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tok, err := q.RegisterProducer()
			if err != nil {
				t.Errorf("RegisterProducer: %v", err)
				return
			}
			backoff := iox.Backoff{}
			for i := range perProd {
				v := id*perProd + i
				for q.Enqueue(tok, &v) != nil {
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	last := make([]int, producers)
	counts := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	backoff := iox.Backoff{}
	for got := 0; got < producers*perProd; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		id := v / perProd
		if v <= last[id] {
			t.Fatalf("producer %d: got %d after %d", id, v, last[id])
		}
		last[id] = v
		counts[id]++
		got++
	}
	wg.Wait()

	for id, n := range counts {
		if n != perProd {
			t.Fatalf("producer %d: got %d items, want %d", id, n, perProd)
		}
	}
}

// TestShardedMPSCBulkFanIn is the bulk variant: producers enqueue in
// batches and the consumer drains in batches.
func TestShardedMPSCBulkFanIn(t *testing.T) {
	if ordq.RaceEnabled {
		t.Skip("skip: generic queue data is guarded by cross-variable memory ordering")
	}
	const (
		producers = 4
		perProd   = 1000
	)

	q := ordq.NewShardedMPSC[int](256, producers)
	var wg sync.WaitGroup

	for p := range producers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tok, err := q.RegisterProducer()
			if err != nil {
				t.Errorf("RegisterProducer: %v", err)
				return
			}
			backoff := iox.Backoff{}
			next := 0
			for next < perProd {
				end := next + 37
				if end > perProd {
					end = perProd
				}
				batch := make([]int, 0, end-next)
				for i := next; i < end; i++ {
					batch = append(batch, id*perProd+i)
				}
				sent := 0
				for sent < len(batch) {
					k := q.EnqueueBulk(tok, batch[sent:])
					if k == 0 {
						backoff.Wait()
						continue
					}
					backoff.Reset()
					sent += k
				}
				next = end
			}
		}(p)
	}

	last := make([]int, producers)
	counts := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	backoff := iox.Backoff{}
	dst := make([]int, 100)
	for got := 0; got < producers*perProd; {
		k := q.DequeueBulk(dst)
		if k == 0 {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		for i := range k {
			v := dst[i]
			id := v / perProd
			if v <= last[id] {
				t.Fatalf("producer %d: got %d after %d", id, v, last[id])
			}
			last[id] = v
			counts[id]++
		}
		got += k
	}
	wg.Wait()

	for id, n := range counts {
		if n != perProd {
			t.Fatalf("producer %d: got %d items, want %d", id, n, perProd)
		}
	}
}

// TestShardedMPSCBulkShardCap verifies a single bulk dequeue takes at
// most 32 items from one shard before moving to the next, so a busy
// shard cannot monopolize the sweep.
func TestShardedMPSCBulkShardCap(t *testing.T) {
	q := ordq.NewShardedMPSC[int](256, 2)

	tok0, _ := q.RegisterProducer()
	tok1, _ := q.RegisterProducer()

	for i := range 100 {
		v := i
		if err := q.Enqueue(tok0, &v); err != nil {
			t.Fatalf("Enqueue shard0 (%d): %v", i, err)
		}
	}
	v := 1000
	if err := q.Enqueue(tok1, &v); err != nil {
		t.Fatalf("Enqueue shard1: %v", err)
	}

	// 64 requested: 32 from shard 0, then 1 from shard 1, then the sweep
	// ends (one round over two shards).
	dst := make([]int, 64)
	k := q.DequeueBulk(dst)
	if k != 33 {
		t.Fatalf("DequeueBulk: got %d, want 33", k)
	}
	seenShard1 := false
	for i := range k {
		if dst[i] == 1000 {
			seenShard1 = true
		}
	}
	if !seenShard1 {
		t.Fatal("DequeueBulk starved shard 1")
	}
}

// TestShardedMPSCFullShard verifies a full shard rejects its producer
// even while other shards are empty: no cross-shard spill-over.
func TestShardedMPSCFullShard(t *testing.T) {
	q := ordq.NewShardedMPSC[int](4, 2)

	tok0, _ := q.RegisterProducer()

	for i := range 3 {
		v := i
		if err := q.Enqueue(tok0, &v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	v := 99
	if err := q.Enqueue(tok0, &v); err == nil {
		t.Fatal("Enqueue on full shard: got nil, want ErrWouldBlock")
	}
	// Shard 1 is untouched and empty; the producer still may not use it.
	if q.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", q.Len())
	}
}

// TestShardedMPSCInPlace exercises the callback variants through the
// token indirection.
func TestShardedMPSCInPlace(t *testing.T) {
	q := ordq.NewShardedMPSC[[2]uint64](8, 1)

	tok, err := q.RegisterProducer()
	if err != nil {
		t.Fatalf("RegisterProducer: %v", err)
	}

	for i := range 4 {
		err := q.EnqueueWith(tok, func(p *[2]uint64) {
			p[0] = uint64(i)
			p[1] = uint64(i) * 7
		})
		if err != nil {
			t.Fatalf("EnqueueWith(%d): %v", i, err)
		}
	}

	for i := range 4 {
		err := q.DequeueWith(func(p *[2]uint64) {
			if p[0] != uint64(i) || p[1] != uint64(i)*7 {
				t.Fatalf("DequeueWith(%d): got %v", i, *p)
			}
		})
		if err != nil {
			t.Fatalf("DequeueWith(%d): %v", i, err)
		}
	}
}

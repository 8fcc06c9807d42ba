// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ordq-stress runs a fixed schedule of correctness and
// throughput scenarios against the queue components. It takes no flags
// and exits nonzero if any scenario observes an ordering violation or a
// lost message.
package main

import (
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/ordq"
	"code.hybscloud.com/ordq/internal/affinity"
	"code.hybscloud.com/ordq/internal/chrono"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug().Msgf(format, args...)
	}))

	ok := true
	ok = spscThroughput(log) && ok
	ok = shardedFanIn(log) && ok
	ok = explicitSeqScatter(log) && ok
	ok = reorderPipeline(log) && ok

	if !ok {
		log.Fatal().Msg("stress schedule failed")
	}
	log.Info().Msg("stress schedule passed")
}

// spscThroughput moves one million integers through a 1024-cell SPSC ring
// and verifies the consumer observes them in ascending order.
func spscThroughput(log zerolog.Logger) bool {
	const items = 1_000_000

	q := ordq.NewSPSC[int](1024)
	var wg sync.WaitGroup
	ok := true

	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := range items {
			v := i
			for q.Enqueue(&v) != nil {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	sw := chrono.Start()

	release, err := affinity.Pin(0)
	if err == nil {
		defer release()
	}

	backoff := iox.Backoff{}
	for i := 0; i < items; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if v != i {
			log.Error().Int("got", v).Int("want", i).Msg("spsc: order violation")
			ok = false
		}
		i++
	}
	wg.Wait()

	elapsed := sw.Elapsed()
	log.Info().
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", chrono.Throughput(items, elapsed)).
		Bool("ok", ok).
		Msg("spsc throughput")
	return ok
}

// shardedFanIn runs four registered producers against a sharded MPSC and
// verifies per-producer FIFO plus exact delivery counts.
func shardedFanIn(log zerolog.Logger) bool {
	const (
		producers = 4
		perProd   = 250_000
	)

	q := ordq.NewShardedMPSC[uint64](1024, producers)
	var wg sync.WaitGroup
	ok := true

	for p := range producers {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			tok, err := q.RegisterProducer()
			if err != nil {
				log.Error().Err(err).Msg("sharded: registration failed")
				return
			}
			backoff := iox.Backoff{}
			for i := range uint64(perProd) {
				v := id*perProd + i
				for q.Enqueue(tok, &v) != nil {
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(uint64(p))
	}

	sw := chrono.Start()
	lastPerProd := [producers]uint64{}
	counts := [producers]int{}
	backoff := iox.Backoff{}
	for got := 0; got < producers*perProd; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		id := v / perProd
		if counts[id] > 0 && v <= lastPerProd[id] {
			log.Error().Uint64("got", v).Uint64("prev", lastPerProd[id]).
				Msg("sharded: per-producer order violation")
			ok = false
		}
		lastPerProd[id] = v
		counts[id]++
		got++
	}
	wg.Wait()

	for id, n := range counts {
		if n != perProd {
			log.Error().Int("producer", id).Int("count", n).Msg("sharded: wrong count")
			ok = false
		}
	}

	elapsed := sw.Elapsed()
	log.Info().
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", chrono.Throughput(producers*perProd, elapsed)).
		Bool("ok", ok).
		Msg("sharded fan-in")
	return ok
}

// explicitSeqScatter pushes interleaved sequence ranges from four
// producers and verifies the consumer sees the exact ascending stream.
func explicitSeqScatter(log zerolog.Logger) bool {
	const (
		producers = 4
		total     = 200_000
	)

	q := ordq.NewSeqMPSCExplicit[uint64](1024)
	var wg sync.WaitGroup
	ok := true

	// Producer p owns sequences with seq % producers == p, pushed in
	// ascending order within each residue class but racing across
	// classes.
	for p := range producers {
		wg.Add(1)
		go func(p uint64) {
			defer wg.Done()
			for seq := p; seq < total; seq += producers {
				v := seq * 3
				q.EnqueueSeq(seq, &v)
			}
		}(uint64(p))
	}

	sw := chrono.Start()
	backoff := iox.Backoff{}
	for want := uint64(0); want < total; {
		v, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if v != want*3 {
			log.Error().Uint64("got", v).Uint64("want", want*3).
				Msg("explicit: order violation")
			ok = false
		}
		want++
	}
	wg.Wait()

	elapsed := sw.Elapsed()
	log.Info().
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", chrono.Throughput(total, elapsed)).
		Bool("ok", ok).
		Msg("explicit-seq scatter")
	return ok
}

// reorderPipeline scatters 100k sequenced messages across four lanes with
// randomized per-message processing time, then verifies the reorderer
// emits the exact original order and its counters reconcile.
func reorderPipeline(log zerolog.Logger) bool {
	const total = 100_000

	p := ordq.NewPipeline(4, 1024, true, func(m *ordq.Sequenced[uint64]) {
		chrono.SpinFor(time.Duration(100+rand.IntN(400)) * time.Nanosecond)
		m.Data ^= 0xdeadbeef
	}, ordq.WithLogger(log))

	ok := true
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := uint64(0); i < total; {
			if p.Submit(i) != nil {
				backoff.Wait()
				continue
			}
			backoff.Reset()
			i++
		}
	}()

	sw := chrono.Start()
	backoff := iox.Backoff{}
	for want := uint64(0); want < total; {
		msg, err := p.Next()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if msg.Seq != want {
			log.Error().Uint64("got", msg.Seq).Uint64("want", want).
				Msg("reorder: sequence violation")
			ok = false
		}
		if msg.Data != want^0xdeadbeef {
			log.Error().Uint64("seq", msg.Seq).Msg("reorder: payload corrupted")
			ok = false
		}
		want++
	}
	wg.Wait()
	p.Close()

	s := p.Stats()
	if s.Processed != s.DirectHit+s.L1Hit+s.L2Hit+s.Dropped {
		log.Error().
			Uint64("processed", s.Processed).
			Uint64("direct", s.DirectHit).
			Uint64("l1", s.L1Hit).
			Uint64("l2", s.L2Hit).
			Uint64("dropped", s.Dropped).
			Msg("reorder: counter identity violated")
		ok = false
	}

	elapsed := sw.Elapsed()
	log.Info().
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", chrono.Throughput(total, elapsed)).
		Uint64("direct_hit", s.DirectHit).
		Uint64("l1_hit", s.L1Hit).
		Uint64("l2_hit", s.L2Hit).
		Uint64("max_disordered", s.MaxDisordered).
		Bool("ok", ok).
		Msg("reorder pipeline")
	return ok
}

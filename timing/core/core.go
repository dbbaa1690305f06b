// Package core drives reference streams through a memory system.
//
// Each core is in-order and blocking: it issues its next reference once the
// previous one has completed. Cores that are ready in the same cycle issue
// in core id order.
package core

import (
	"log/slog"

	"github.com/sarchlab/memsim/loader"
	"github.com/sarchlab/memsim/timing/memsys"
)

// Stats holds the statistics of a run.
type Stats struct {
	// Cycles is the number of cycles simulated.
	Cycles uint64
	// References is the number of references issued by each core.
	References []uint64
	// MemoryCycles is the summed access delay seen by each core.
	MemoryCycles []uint64
}

// TotalReferences returns the number of references over all cores.
func (s Stats) TotalReferences() uint64 {
	var total uint64
	for _, n := range s.References {
		total += n
	}
	return total
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for per-reference debug records.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Runner feeds one reference stream per core into a memory system and owns
// the advance of its clock.
type Runner struct {
	sys     *memsys.MemorySystem
	streams [][]loader.Record

	next    []int
	readyAt []uint64
	start   uint64

	stats  Stats
	logger *slog.Logger
}

// NewRunner creates a runner. streams[i] is the reference stream of core i.
func NewRunner(sys *memsys.MemorySystem, streams [][]loader.Record, opts ...RunnerOption) *Runner {
	r := &Runner{
		sys:     sys,
		streams: streams,
		next:    make([]int, len(streams)),
		readyAt: make([]uint64, len(streams)),
		start:   sys.Clock().Now(),
		stats: Stats{
			References:   make([]uint64, len(streams)),
			MemoryCycles: make([]uint64, len(streams)),
		},
	}

	for i := range r.readyAt {
		r.readyAt[i] = r.start
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	return r
}

// Tick simulates one cycle: every ready core issues one reference, then the
// clock advances.
func (r *Runner) Tick() {
	if r.Halted() {
		return
	}

	clk := r.sys.Clock()
	now := clk.Now()

	for coreID, stream := range r.streams {
		if r.next[coreID] >= len(stream) || r.readyAt[coreID] > now {
			continue
		}

		rec := stream[r.next[coreID]]
		r.next[coreID]++

		delay := r.sys.Access(rec.Addr, rec.Type, coreID)
		r.readyAt[coreID] = now + max(1, delay)

		r.stats.References[coreID]++
		r.stats.MemoryCycles[coreID] += delay

		r.logger.Debug("issue",
			"cycle", now, "core", coreID, "type", rec.Type.String(),
			"addr", rec.Addr, "delay", delay)
	}

	clk.Advance(1)
	r.stats.Cycles = clk.Now() - r.start
}

// Halted returns true once every stream is consumed and its last reference
// has completed.
func (r *Runner) Halted() bool {
	now := r.sys.Clock().Now()
	for coreID, stream := range r.streams {
		if r.next[coreID] < len(stream) || r.readyAt[coreID] > now {
			return false
		}
	}
	return true
}

// Run simulates until the runner halts. Cycles in which no core can issue
// are skipped.
func (r *Runner) Run() Stats {
	clk := r.sys.Clock()
	for !r.Halted() {
		if wake, ok := r.nextReady(); ok && wake > clk.Now() {
			clk.Set(wake)
			r.stats.Cycles = clk.Now() - r.start
			continue
		}
		r.Tick()
	}
	return r.Stats()
}

// nextReady returns the earliest cycle at which any core can make progress.
func (r *Runner) nextReady() (uint64, bool) {
	var (
		wake  uint64
		found bool
	)
	for coreID := range r.streams {
		if r.next[coreID] >= len(r.streams[coreID]) && r.readyAt[coreID] <= r.sys.Clock().Now() {
			continue
		}
		if !found || r.readyAt[coreID] < wake {
			wake = r.readyAt[coreID]
			found = true
		}
	}
	return wake, found
}

// RunCycles simulates at most n cycles. It returns true if the runner has not
// halted yet.
func (r *Runner) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && !r.Halted(); i++ {
		r.Tick()
	}
	return !r.Halted()
}

// Stats returns a copy of the run statistics.
func (r *Runner) Stats() Stats {
	return Stats{
		Cycles:       r.stats.Cycles,
		References:   append([]uint64(nil), r.stats.References...),
		MemoryCycles: append([]uint64(nil), r.stats.MemoryCycles...),
	}
}

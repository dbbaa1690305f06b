package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/memsim/loader"
	"github.com/sarchlab/memsim/timing/cache"
	"github.com/sarchlab/memsim/timing/core"
	"github.com/sarchlab/memsim/timing/memsys"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Mode is the memory system mode the benchmark ran in
	Mode string `json:"mode"`

	// Skipped is true if the benchmark needs more cores than the mode has
	Skipped bool `json:"skipped,omitempty"`

	// SimulatedCycles is the cycle count until every core drained its stream
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// References is the number of memory references issued
	References uint64 `json:"references"`

	// AMAT is the average memory access time in cycles
	AMAT float64 `json:"amat"`

	// Miss rates in percent, summed over reads and writes
	L1DMissRate float64 `json:"l1d_miss_rate"`
	L1IMissRate float64 `json:"l1i_miss_rate,omitempty"`
	L2MissRate  float64 `json:"l2_miss_rate,omitempty"`

	// DirtyEvicts is the number of dirty lines evicted by any cache
	DirtyEvicts uint64 `json:"dirty_evicts"`

	// DRAM traffic
	DRAMReads      uint64  `json:"dram_reads,omitempty"`
	DRAMWrites     uint64  `json:"dram_writes,omitempty"`
	DRAMRowHitRate float64 `json:"dram_row_hit_rate,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single synthetic workload.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Cores is the number of reference streams the benchmark produces
	Cores int

	// Generate builds one reference stream per core
	Generate func() [][]loader.Record
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// System is the memory system every benchmark runs on. A fresh system is
	// built from it for each benchmark.
	System *memsys.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	config := memsys.DefaultConfig()
	config.Mode = memsys.ModeC

	return HarnessConfig{
		System:  config,
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.System == nil {
		config.System = DefaultConfig().System
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results. It fails only if the
// memory system configuration is invalid.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return nil, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh memory system.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	sys, err := memsys.New(h.config.System)
	if err != nil {
		return BenchmarkResult{}, err
	}

	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		Mode:        sys.Config().Mode.String(),
	}

	if bench.Cores > sys.Config().NumCores {
		result.Skipped = true
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "skipping %s: needs %d cores, mode %s has %d\n",
				bench.Name, bench.Cores, result.Mode, sys.Config().NumCores)
		}
		return result, nil
	}

	streams := bench.Generate()

	start := time.Now()
	stats := core.NewRunner(sys, streams).Run()
	result.WallTime = time.Since(start)

	result.SimulatedCycles = stats.Cycles
	result.References = stats.TotalReferences()

	sysStats := sys.Stats()
	if n := sysStats.Accesses(); n > 0 {
		total := sysStats.IFetchDelay + sysStats.LoadDelay + sysStats.StoreDelay
		result.AMAT = float64(total) / float64(n)
	}

	var l1d, l1i cache.Statistics
	for _, named := range sys.Caches() {
		s := named.Cache.Stats()
		result.DirtyEvicts += s.DirtyEvicts

		switch {
		case named.Cache == sys.L2():
			result.L2MissRate = missRate(s)
		case isICache(sys, named.Cache):
			l1i = addStats(l1i, s)
		default:
			l1d = addStats(l1d, s)
		}
	}
	result.L1DMissRate = missRate(l1d)
	result.L1IMissRate = missRate(l1i)

	if d := sys.DRAM(); d != nil {
		ds := d.Stats()
		result.DRAMReads = ds.ReadAccess
		result.DRAMWrites = ds.WriteAccess
		result.DRAMRowHitRate = 100 * ds.RowHitRate()
	}

	if h.config.Verbose {
		sys.PrintStats(h.config.Output)
	}

	return result, nil
}

func isICache(sys *memsys.MemorySystem, c *cache.Cache) bool {
	for i := 0; i < sys.Config().NumCores; i++ {
		if ic := sys.ICache(i); ic != nil && ic == c {
			return true
		}
		if !sys.Config().Mode.MultiCore() {
			break
		}
	}
	return false
}

func addStats(a, b cache.Statistics) cache.Statistics {
	return cache.Statistics{
		ReadAccess:  a.ReadAccess + b.ReadAccess,
		WriteAccess: a.WriteAccess + b.WriteAccess,
		ReadMiss:    a.ReadMiss + b.ReadMiss,
		WriteMiss:   a.WriteMiss + b.WriteMiss,
		DirtyEvicts: a.DirtyEvicts + b.DirtyEvicts,
	}
}

func missRate(s cache.Statistics) float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return 100 * float64(s.Misses()) / float64(s.Accesses())
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Memory Hierarchy Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Mode: %s\n", r.Mode)
		if r.Skipped {
			_, _ = fmt.Fprintln(h.config.Output, "  Skipped: not enough cores")
			_, _ = fmt.Fprintln(h.config.Output, "")
			continue
		}

		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles: %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  References:       %d\n", r.References)
		_, _ = fmt.Fprintf(h.config.Output, "  AMAT:             %.3f\n", r.AMAT)

		_, _ = fmt.Fprintln(h.config.Output, "  --- Caches ---")
		_, _ = fmt.Fprintf(h.config.Output, "  L1D Miss Rate: %.2f%%\n", r.L1DMissRate)
		if r.L1IMissRate > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  L1I Miss Rate: %.2f%%\n", r.L1IMissRate)
		}
		if r.L2MissRate > 0 {
			_, _ = fmt.Fprintf(h.config.Output, "  L2 Miss Rate:  %.2f%%\n", r.L2MissRate)
		}
		_, _ = fmt.Fprintf(h.config.Output, "  Dirty Evicts:  %d\n", r.DirtyEvicts)

		if r.DRAMReads > 0 || r.DRAMWrites > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- DRAM ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Reads:        %d\n", r.DRAMReads)
			_, _ = fmt.Fprintf(h.config.Output, "  Writes:       %d\n", r.DRAMWrites)
			_, _ = fmt.Fprintf(h.config.Output, "  Row Hit Rate: %.1f%%\n", r.DRAMRowHitRate)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,mode,skipped,cycles,references,amat,l1d_miss,l1i_miss,l2_miss,dirty_evicts,dram_reads,dram_writes,row_hit_rate")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%t,%d,%d,%.3f,%.2f,%.2f,%.2f,%d,%d,%d,%.1f\n",
			r.Name,
			r.Mode,
			r.Skipped,
			r.SimulatedCycles,
			r.References,
			r.AMAT,
			r.L1DMissRate,
			r.L1IMissRate,
			r.L2MissRate,
			r.DirtyEvicts,
			r.DRAMReads,
			r.DRAMWrites,
			r.DRAMRowHitRate,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config is the memory system configuration used
	Config *memsys.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run, skipped ones included
	TotalBenchmarks int `json:"total_benchmarks"`

	// Skipped is the number of benchmarks that did not run
	Skipped int `json:"skipped"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalReferences is the sum of all references issued
	TotalReferences uint64 `json:"total_references"`

	// AverageAMAT is the reference-weighted average memory access time
	AverageAMAT float64 `json:"average_amat"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Version is reported in the JSON metadata.
const Version = "0.3.0"

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	summary := ReportSummary{TotalBenchmarks: len(results)}

	var weighted float64
	for _, r := range results {
		if r.Skipped {
			summary.Skipped++
			continue
		}
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalReferences += r.References
		summary.TotalWallTime += r.WallTime
		weighted += r.AMAT * float64(r.References)
	}

	if summary.TotalReferences > 0 {
		summary.AverageAMAT = weighted / float64(summary.TotalReferences)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config:    h.config.System,
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

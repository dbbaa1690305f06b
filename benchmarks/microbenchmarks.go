// Package benchmarks provides synthetic workloads and a harness that runs
// them through the memory hierarchy.
package benchmarks

import (
	"math/rand/v2"

	"github.com/sarchlab/memsim/loader"
	"github.com/sarchlab/memsim/timing/memsys"
)

const (
	lineSize = 64
	codeBase = 0x400000
	dataBase = 0x10000000
)

// GetMicrobenchmarks returns the standard set of memory microbenchmarks.
// Each benchmark targets one behavior of the hierarchy.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		sequentialStream(),
		conflictThrash(),
		readModifyWrite(),
		randomAccess(),
		bankConflict(),
		twoCorePingPong(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		sequentialStream(),
		conflictThrash(),
		readModifyWrite(),
	}
}

// loop emits an instruction fetch from a small code loop before each data
// reference, like a tight kernel would.
type loop struct {
	core int
	pc   uint64
	body uint64
}

func (l *loop) fetch() loader.Record {
	rec := loader.Record{Core: l.core, Type: memsys.IFetch, Addr: codeBase + l.pc}
	l.pc = (l.pc + 4) % l.body
	return rec
}

func data(core int, typ memsys.AccessType, addr uint64) loader.Record {
	return loader.Record{Core: core, Type: typ, Addr: dataBase + addr}
}

// 1. Sequential Stream - one load per line over 256KB, no reuse
func sequentialStream() Benchmark {
	return Benchmark{
		Name:        "sequential_stream",
		Description: "4096 loads, one per line - measures compulsory misses and row buffer hits",
		Cores:       1,
		Generate: func() [][]loader.Record {
			l := &loop{body: 64}
			var stream []loader.Record
			for i := uint64(0); i < 4096; i++ {
				stream = append(stream, l.fetch(), data(0, memsys.Load, i*lineSize))
			}
			return [][]loader.Record{stream}
		},
	}
}

// 2. Conflict Thrash - 9 lines in one set of an 8-way cache, round robin
func conflictThrash() Benchmark {
	return Benchmark{
		Name:        "conflict_thrash",
		Description: "9 lines mapping to one L1 set, 256 rounds - defeats LRU in an 8-way cache",
		Cores:       1,
		Generate: func() [][]loader.Record {
			// 32KB, 8-way, 64B lines: lines 4KB apart share a set.
			const setStride = 4096
			var stream []loader.Record
			for round := 0; round < 256; round++ {
				for way := uint64(0); way < 9; way++ {
					stream = append(stream, data(0, memsys.Load, way*setStride))
				}
			}
			return [][]loader.Record{stream}
		},
	}
}

// 3. Read-Modify-Write - load then store each line of a 128KB array twice
func readModifyWrite() Benchmark {
	return Benchmark{
		Name:        "read_modify_write",
		Description: "load+store per line over 128KB, two passes - measures dirty writebacks",
		Cores:       1,
		Generate: func() [][]loader.Record {
			var stream []loader.Record
			for pass := 0; pass < 2; pass++ {
				for i := uint64(0); i < 2048; i++ {
					addr := i * lineSize
					stream = append(stream,
						data(0, memsys.Load, addr),
						data(0, memsys.Store, addr+8))
				}
			}
			return [][]loader.Record{stream}
		},
	}
}

// 4. Random Access - seeded uniform loads and stores over 4MB
func randomAccess() Benchmark {
	return Benchmark{
		Name:        "random_access",
		Description: "4096 random references over 4MB, 25% stores - measures capacity misses",
		Cores:       1,
		Generate: func() [][]loader.Record {
			rng := rand.New(rand.NewPCG(2024, 7))
			var stream []loader.Record
			for i := 0; i < 4096; i++ {
				addr := rng.Uint64N(4<<20) &^ 7
				typ := memsys.Load
				if rng.IntN(4) == 0 {
					typ = memsys.Store
				}
				stream = append(stream, data(0, typ, addr))
			}
			return [][]loader.Record{stream}
		},
	}
}

// 5. Bank Conflict - alternate between two rows of the same DRAM bank
func bankConflict() Benchmark {
	return Benchmark{
		Name:        "bank_conflict",
		Description: "alternating rows of one DRAM bank, new lines each time - measures row conflicts",
		Cores:       1,
		Generate: func() [][]loader.Record {
			// 16 banks of 1KB rows: addresses 16KB apart share a bank.
			const bankStride = 16 * 1024
			var stream []loader.Record
			for i := uint64(0); i < 512; i++ {
				col := (i % 16) * lineSize
				row := (i / 16) * 2 * bankStride
				stream = append(stream,
					data(0, memsys.Load, row+col),
					data(0, memsys.Load, row+bankStride+col))
			}
			return [][]loader.Record{stream}
		},
	}
}

// 6. Two-Core Ping-Pong - both cores stream the same virtual range
func twoCorePingPong() Benchmark {
	return Benchmark{
		Name:        "two_core_pingpong",
		Description: "two cores stream 512KB each through the shared L2 - measures partitioning",
		Cores:       2,
		Generate: func() [][]loader.Record {
			streams := make([][]loader.Record, 2)
			for core := 0; core < 2; core++ {
				l := &loop{core: core, body: 128}
				for pass := 0; pass < 2; pass++ {
					for i := uint64(0); i < 8192; i++ {
						streams[core] = append(streams[core],
							l.fetch(), data(core, memsys.Load, i*lineSize))
					}
				}
			}
			return streams
		},
	}
}

// Command memsim drives the memory hierarchy simulator.
//
// Usage:
//
//	memsim run [flags] <trace> [trace...]
//	memsim bench [flags]
//	memsim config [flags]
//
// Examples:
//
//	# Replay a trace through the row-buffer timed hierarchy
//	memsim run --mode C trace.txt.gz
//
//	# One trace per core with dynamic L2 partitioning
//	memsim run --mode F core0.txt core1.txt
//
//	# Run the synthetic workloads and emit CSV
//	memsim bench --mode D --format csv > results.csv
package main

import "github.com/tebeka/atexit"

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

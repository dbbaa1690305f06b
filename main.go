// Package main provides a pointer to the memsim command.
// Memsim is a trace-driven CPU memory hierarchy simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/memsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Memsim - Memory Hierarchy Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: memsim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run      Replay address traces and print statistics")
	fmt.Println("  bench    Run the synthetic memory workloads")
	fmt.Println("  config   Print the effective configuration")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/memsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/memsim' instead.")
	}
}

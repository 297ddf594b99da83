// Package main provides the entry point for BatchSim.
// BatchSim is a cycle-level simulator of a batched multi-channel I/O
// scheduler built on Akita.
//
// For the full CLI, use: go run ./cmd/batchsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("BatchSim - Batch Engine Scheduler Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: batchsim [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -slots     Number of compute-unit slots")
	fmt.Println("  -batches   Number of task batches to request")
	fmt.Println("  -config    Path to geometry configuration JSON file")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/batchsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/batchsim' instead.")
	}
}

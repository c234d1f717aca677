// Package parallel provides chunked parallel loop helpers for the
// estimation engine. Prediction callbacks supplied by model adapters may not
// be reentrant, so every entry point takes an explicit worker count and
// workers <= 1 degrades to a plain sequential loop.
package parallel

import (
	"runtime"
	"sync"
)

// Run divides items into contiguous chunks and executes fn over each chunk
// using at most workers goroutines. workers <= 1 runs fn(0, items) on the
// calling goroutine; workers <= 0 is treated as 1. A worker count above
// runtime.NumCPU() is allowed but rarely useful for CPU-bound evaluation.
func Run(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if workers <= 1 {
		fn(0, items)
		return
	}
	if workers > items {
		workers = items
	}

	// Ceiling division so every item lands in exactly one chunk.
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// RunAuto behaves like Run with workers equal to the CPU count. Use only for
// loops whose body is known to be reentrant, such as filling matrices the
// engine itself owns.
func RunAuto(items int, fn func(start, end int)) {
	Run(items, runtime.NumCPU(), fn)
}

// RunWithThreshold runs sequentially when items is at or below threshold and
// with RunAuto above it. Small inputs are not worth the goroutine overhead.
func RunWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	RunAuto(items, fn)
}

package utils

import "runtime"

// WorkerCount returns the number of workers to use for CPU bound hashing
// tasks. It will use GOMAXPROCS as a base, and then subtract one CPU which
// is meant to be left for other tasks, such as feeding the next batch.
func WorkerCount(requested int) int {
	cores := runtime.GOMAXPROCS(0)
	if requested > 0 {
		return min(requested, cores)
	}

	if cores == 1 {
		return 1
	}

	return cores - 1
}

// Package pacing holds the pure scheduling arithmetic behind the batch
// controller, kept free of queue machinery so chain behavior is testable
// without executing jobs.
package pacing

import "time"

// JobDelay returns the launch delay for the i-th record of a page. Successive
// research jobs start stagger apart to rate-limit outbound load.
func JobDelay(index int, stagger time.Duration) time.Duration {
	return time.Duration(index) * stagger
}

// Next decides whether a batch page chains into another. A full page means
// more rows may exist: the chain continues at the next offset after the
// current page's jobs have had time to launch. A short page terminates the
// chain.
func Next(pageLen, batchSize, offset int, stagger time.Duration) (nextOffset int, delay time.Duration, ok bool) {
	if pageLen < batchSize {
		return 0, 0, false
	}
	return offset + batchSize, time.Duration(batchSize) * stagger, true
}

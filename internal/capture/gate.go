package capture

import "sync/atomic"

// Gate is a one-shot latch guarding the Pending -> Dispatched transition.
// Exactly one call to Claim ever returns true.
type Gate struct {
	claimed atomic.Bool
}

// Claim flips the gate and reports whether the caller won it.
func (g *Gate) Claim() bool {
	return g.claimed.CompareAndSwap(false, true)
}

// Claimed reports whether the gate has been won.
func (g *Gate) Claimed() bool {
	return g.claimed.Load()
}

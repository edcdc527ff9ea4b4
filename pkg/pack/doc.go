// Package pack places non-overlapping circles inside a circular canvas.
//
// A packing is driven by a schedule of passes. Each [Pass] fixes a circle
// radius and an attempt budget; the packer draws a random candidate centre
// inside the canvas's inscribed circle, tests it against every circle accepted
// so far, and keeps it if nothing overlaps. Every test spends one attempt,
// whether the candidate is kept or discarded.
//
// Passes run in schedule order and are not interchangeable: earlier passes
// claim space first, so later (usually smaller) passes fill the gaps that are
// left. Correctness never depends on the order, only density does.
//
// # Invariants
//
// For every pair of placements a, b in the result:
//
//	(a.X-b.X)² + (a.Y-b.Y)² >= (a.R+b.R+spacing)²
//
// and every placement lies strictly inside the canvas's inscribed circle:
//
//	(X-w/2)² + (Y-w/2)² < (w/2-R)²
//
// Accept/reject decisions use squared distances only; no square root is taken
// when comparing circles.
//
// # Randomness
//
// The packer never touches a global random source. Callers pass a
// *rand.Rand, typically built with [NewRand], so identical seeds, schedules
// and spacing always reproduce the same ordered placements.
//
// # Usage
//
//	rng := pack.NewRand(42)
//	placements, err := pack.Pack(ctx, 1000, pack.DefaultPasses(1000), pack.DefaultSpacing(1000), rng)
package pack

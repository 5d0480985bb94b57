// Package packing holds the pieces shared by every problem variant: the
// objective and optimization-mode enums, the timer, the solution pool, the
// output bounds and the algorithm formatter that serialises updates coming
// from concurrent workers.
package packing

// Length is a coordinate or extent along one axis. All geometry is integral.
type Length = int64

// Area is a product of two lengths.
type Area = int64

// Volume is a product of three lengths.
type Volume = int64

// Profit is a profit or a cost.
type Profit = float64

// Weight is an item, stack or bin weight.
type Weight = float64

// NodeID identifies a branching-scheme node. Ids are assigned sequentially
// by each scheme, which makes them a deterministic tie-break for the beam.
type NodeID = int64

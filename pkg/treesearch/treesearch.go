// Package treesearch implements the variant-agnostic iterative beam search
// engine. It explores a branching scheme's tree level by level, keeping the
// best nodes under the scheme's guide order, restarting with a growing beam
// width until the time budget ends.
//
// The engine never looks inside a node; everything goes through the
// BranchingScheme operations.
package treesearch

import (
	"math"
	"sort"

	"github.com/DrSkyle/packbeam/pkg/packing"
)

// BranchingScheme defines the search-tree shape for one problem variant.
type BranchingScheme[N any] interface {
	// Root returns the empty partial placement.
	Root() N

	// Children returns the set of insertions legal from parent. Order does
	// not matter; the engine sorts by the guide.
	Children(parent N) []N

	// Leaf reports whether no more items can be added below the node.
	Leaf(N) bool

	// Better reports whether a beats b in the meta-objective. It must
	// return false when a does not represent a valid solution, and treat
	// the zero value of N as "no incumbent".
	Better(a, b N) bool

	// Bound reports whether the node cannot improve on the current best
	// leaf.
	Bound(node, bestLeaf N) bool

	// Less is the guide-induced total order used to sort the beam,
	// low-first, with the node id as deterministic tie-break.
	Less(a, b N) bool

	// DominanceKey buckets nodes for the dominance check; only nodes with
	// equal keys are compared with Dominates.
	DominanceKey(N) uint64

	// Dominates reports whether every descendant of b is also reachable,
	// no worse, from a.
	Dominates(a, b N) bool
}

// Parameters controls one IterativeBeamSearch run.
type Parameters[N any] struct {
	// MinimumSizeOfTheQueue is the initial beam width. Default 1.
	MinimumSizeOfTheQueue int

	// MaximumSizeOfTheQueue stops the restart schedule. Default 1<<30.
	MaximumSizeOfTheQueue int

	// GrowthFactor multiplies the beam width between restarts. Default 1.5.
	GrowthFactor float64

	// Timer is polled between levels; nil means no budget.
	Timer *packing.Timer

	// NewSolutionCallback fires whenever the engine finds a new best
	// leaf. Within one run every payload strictly improves on the
	// previous one.
	NewSolutionCallback func(*Output[N])
}

// Output is the engine result: the best node found and search statistics.
type Output[N any] struct {
	BestNode    N
	HasSolution bool

	// MaximumSizeOfTheQueue is the largest beam width reached.
	MaximumSizeOfTheQueue int

	// NumberOfNodes counts generated children across all restarts.
	NumberOfNodes int64
}

// IterativeBeamSearch runs the iterative beam search v2 loop:
//
//	q ← q_min
//	repeat:
//	    run one beam search of width q from the root
//	    stop on timer, or when q would exceed q_max
//	    q ← max(q+1, ⌈q·growth⌉)
func IterativeBeamSearch[N any](scheme BranchingScheme[N], params Parameters[N]) *Output[N] {
	queueSize := params.MinimumSizeOfTheQueue
	if queueSize < 1 {
		queueSize = 1
	}
	maximumQueueSize := params.MaximumSizeOfTheQueue
	if maximumQueueSize < 1 {
		maximumQueueSize = 1 << 30
	}
	growthFactor := params.GrowthFactor
	if growthFactor <= 1 {
		growthFactor = 1.5
	}

	output := &Output[N]{}
	for {
		output.MaximumSizeOfTheQueue = queueSize
		runBeam(scheme, queueSize, params.Timer, params.NewSolutionCallback, output)
		if params.Timer != nil && params.Timer.NeedsToEnd() {
			break
		}
		if queueSize >= maximumQueueSize {
			break
		}
		next := int(math.Ceil(float64(queueSize) * growthFactor))
		if next <= queueSize {
			next = queueSize + 1
		}
		if next > maximumQueueSize {
			break
		}
		queueSize = next
	}
	return output
}

// runBeam explores one restart with a fixed beam width.
func runBeam[N any](
	scheme BranchingScheme[N],
	queueSize int,
	timer *packing.Timer,
	callback func(*Output[N]),
	output *Output[N],
) {
	queue := []N{scheme.Root()}

	for len(queue) > 0 {
		if timer != nil && timer.NeedsToEnd() {
			return
		}

		// Keep the best q nodes under the guide order; ties break on the
		// node id, which Less already folds in, so the beam is
		// deterministic.
		sort.Slice(queue, func(i, j int) bool { return scheme.Less(queue[i], queue[j]) })
		if len(queue) > queueSize {
			queue = queue[:queueSize]
		}

		next := next[N]{scheme: scheme}
		for _, node := range queue {
			for _, child := range scheme.Children(node) {
				output.NumberOfNodes++

				// Candidate solutions are reported from any node the
				// scheme declares better, not only leaves.
				if scheme.Better(child, output.BestNode) {
					output.BestNode = child
					output.HasSolution = true
					if callback != nil {
						callback(output)
					}
				}
				if scheme.Leaf(child) {
					continue
				}
				if output.HasSolution && scheme.Bound(child, output.BestNode) {
					continue
				}
				next.add(child)
			}
		}
		queue = next.nodes
	}
}

// next accumulates the next beam level, pruning dominated nodes on insert.
type next[N any] struct {
	scheme  BranchingScheme[N]
	nodes   []N
	buckets map[uint64][]int
}

func (l *next[N]) add(node N) {
	if l.buckets == nil {
		l.buckets = make(map[uint64][]int)
	}
	key := l.scheme.DominanceKey(node)
	bucket := l.buckets[key]
	for _, i := range bucket {
		if l.scheme.Dominates(l.nodes[i], node) {
			return
		}
	}
	// Replace nodes the newcomer dominates instead of growing the level.
	for _, i := range bucket {
		if l.scheme.Dominates(node, l.nodes[i]) {
			l.nodes[i] = node
			return
		}
	}
	l.buckets[key] = append(bucket, len(l.nodes))
	l.nodes = append(l.nodes, node)
}

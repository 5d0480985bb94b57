// Package algorithms holds the meta-heuristics shared by every variant:
// sequential value correction, dichotomic search and the VBPP→BPP warm
// start. Each reduces its problem to a sequence of subproblems and delegates
// them to a solver callback, usually the variant's own Optimize with a
// bounded tree-search queue.
package algorithms

// knapsackItem is one candidate of the scalar 0/1 knapsack used to select
// bins in the dichotomic search.
type knapsackItem struct {
	weight int64
	profit float64
}

// solveKnapsack solves a 0/1 knapsack: maximize profit under the capacity.
// Returns the selected indices.
//
// Capacities in this module are bin spaces, which can be large for area and
// volume variants, so the exact dynamic program only runs up to a bounded
// table size; above it a density greedy stands in. The callers only need a
// good selection, not a proven optimum.
func solveKnapsack(items []knapsackItem, capacity int64) []int {
	if capacity <= 0 || len(items) == 0 {
		return nil
	}
	const maximumTableSize = 1 << 21
	if capacity+1 <= maximumTableSize {
		return knapsackDP(items, capacity)
	}
	return knapsackGreedy(items, capacity)
}

func knapsackDP(items []knapsackItem, capacity int64) []int {
	c := int(capacity)
	best := make([]float64, c+1)
	take := make([][]bool, len(items))
	for i, item := range items {
		take[i] = make([]bool, c+1)
		if item.weight > capacity {
			continue
		}
		w := int(item.weight)
		for r := c; r >= w; r-- {
			if candidate := best[r-w] + item.profit; candidate > best[r] {
				best[r] = candidate
				take[i][r] = true
			}
		}
	}
	var selected []int
	r := c
	for i := len(items) - 1; i >= 0; i-- {
		if take[i][r] {
			selected = append(selected, i)
			r -= int(items[i].weight)
		}
	}
	return selected
}

func knapsackGreedy(items []knapsackItem, capacity int64) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	// Highest profit density first.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0; j-- {
			a, b := items[order[j]], items[order[j-1]]
			if a.profit*float64(b.weight) > b.profit*float64(a.weight) {
				order[j], order[j-1] = order[j-1], order[j]
			} else {
				break
			}
		}
	}
	var selected []int
	remaining := capacity
	for _, i := range order {
		if items[i].weight <= remaining {
			selected = append(selected, i)
			remaining -= items[i].weight
		}
	}
	return selected
}

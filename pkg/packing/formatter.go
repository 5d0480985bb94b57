package packing

import (
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
)

// AlgorithmFormatter is the mutex-protected facade through which every
// worker reports candidate solutions and bounds. It deduplicates
// improvements against the shared pool, tightens bounds monotonically, and
// trips the master timer's end flag when a bound meets the current best
// (proof of optimality).
type AlgorithmFormatter[S Solution[S]] struct {
	mu       sync.Mutex
	instance Instance
	timer    *Timer
	logger   *slog.Logger
	output   *Output[S]

	// OnSolution, when set, observes every accepted improvement. Wired by
	// callers to logging, testing oracles or GUI updates.
	OnSolution func(solution S, tag string)
}

// NewAlgorithmFormatter wires a formatter around an output.
func NewAlgorithmFormatter[S Solution[S]](
	instance Instance,
	timer *Timer,
	logger *slog.Logger,
	output *Output[S],
) *AlgorithmFormatter[S] {
	if logger == nil {
		logger = slog.Default()
	}
	if output.RunID == "" {
		output.RunID = uuid.NewString()
	}
	return &AlgorithmFormatter[S]{
		instance: instance,
		timer:    timer,
		logger:   logger.With("run_id", output.RunID),
		output:   output,
	}
}

// Start logs the run header.
func (f *AlgorithmFormatter[S]) Start(problemType string) {
	f.logger.Info("optimize",
		"problem", problemType,
		"objective", f.instance.Objective().String(),
		"item_types", f.instance.NumberOfItemTypes(),
		"bin_types", f.instance.NumberOfBinTypes(),
		"items", f.instance.NumberOfItems(),
	)
}

// Output returns the guarded output. Only call after all workers joined.
func (f *AlgorithmFormatter[S]) Output() *Output[S] { return f.output }

// Timer returns the master timer shared with the workers.
func (f *AlgorithmFormatter[S]) Timer() *Timer { return f.timer }

// UpdateSolution offers a candidate to the pool. It reports whether the pool
// best improved. Accepted improvements are logged, recorded as events and
// checked against the bounds for an optimality proof.
func (f *AlgorithmFormatter[S]) UpdateSolution(solution S, tag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.output.Pool.Add(solution) {
		return false
	}
	f.output.NumberOfUpdates++
	f.output.Events = append(f.output.Events, Event{
		Kind:    "solution",
		Tag:     tag,
		Time:    f.timer.Elapsed(),
		Value:   value(f.instance.Objective(), solution),
		Counter: f.output.NumberOfUpdates,
	})
	f.logger.Info("solution",
		"tag", tag,
		"items", solution.NumberOfItems(),
		"bins", solution.NumberOfBins(),
		"profit", solution.Profit(),
		"cost", solution.Cost(),
		"t", f.timer.Elapsed().Seconds(),
	)
	f.checkOptimalityLocked()
	if f.OnSolution != nil {
		f.OnSolution(solution, tag)
	}
	return true
}

// UpdateBinPackingBound tightens the lower bound on the number of bins.
func (f *AlgorithmFormatter[S]) UpdateBinPackingBound(bins int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if bins <= f.output.BinPackingBound {
		return
	}
	f.output.BinPackingBound = bins
	f.recordBoundLocked("bin-packing", float64(bins))
}

// UpdateKnapsackBound tightens the upper bound on the profit.
func (f *AlgorithmFormatter[S]) UpdateKnapsackBound(profit Profit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if profit >= f.output.KnapsackBound {
		return
	}
	f.output.KnapsackBound = profit
	f.recordBoundLocked("knapsack", profit)
}

// UpdateVariableSizedBinPackingBound tightens the lower bound on the cost.
func (f *AlgorithmFormatter[S]) UpdateVariableSizedBinPackingBound(cost Profit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cost <= f.output.VariableSizedBinPackingBound {
		return
	}
	f.output.VariableSizedBinPackingBound = cost
	f.recordBoundLocked("variable-sized-bin-packing", cost)
}

// End stamps the output with the elapsed time and logs the summary.
func (f *AlgorithmFormatter[S]) End() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.output.Time = f.timer.Elapsed()
	best, ok := f.output.Pool.Best()
	if !ok {
		f.logger.Info("done", "solutions", 0, "t", f.output.Time.Seconds())
		return
	}
	f.logger.Info("done",
		"items", best.NumberOfItems(),
		"bins", best.NumberOfBins(),
		"profit", best.Profit(),
		"cost", best.Cost(),
		"t", f.output.Time.Seconds(),
	)
}

func (f *AlgorithmFormatter[S]) recordBoundLocked(tag string, v float64) {
	f.output.Events = append(f.output.Events, Event{
		Kind:  "bound",
		Tag:   tag,
		Time:  f.timer.Elapsed(),
		Value: v,
	})
	f.logger.Info("bound", "tag", tag, "value", v, "t", f.timer.Elapsed().Seconds())
	f.checkOptimalityLocked()
}

// checkOptimalityLocked trips the end flag when a bound meets the incumbent.
func (f *AlgorithmFormatter[S]) checkOptimalityLocked() {
	best, ok := f.output.Pool.Best()
	if !ok {
		return
	}
	switch f.instance.Objective() {
	case ObjectiveBinPacking:
		if best.Full() && f.output.BinPackingBound > 0 &&
			best.NumberOfBins() <= f.output.BinPackingBound {
			f.timer.SetEnd()
		}
	case ObjectiveKnapsack:
		if !math.IsInf(f.output.KnapsackBound, 1) &&
			best.Profit() >= f.output.KnapsackBound {
			f.timer.SetEnd()
		}
	case ObjectiveVariableSizedBinPacking:
		if best.Full() && f.output.VariableSizedBinPackingBound > 0 &&
			best.Cost() <= f.output.VariableSizedBinPackingBound {
			f.timer.SetEnd()
		}
	}
}

// value picks the scalar recorded in progress events for the objective.
func value[S Solution[S]](objective Objective, solution S) float64 {
	switch objective {
	case ObjectiveKnapsack:
		return solution.Profit()
	case ObjectiveVariableSizedBinPacking:
		return solution.Cost()
	case ObjectiveBinPackingWithLeftovers:
		return solution.Waste()
	default:
		return float64(solution.NumberOfBins())
	}
}

package boxstacks

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/DrSkyle/packbeam/internal/swarm"
	"github.com/DrSkyle/packbeam/pkg/algorithms"
	"github.com/DrSkyle/packbeam/pkg/columngen"
	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/DrSkyle/packbeam/pkg/treesearch"
)

// Output is the result of an Optimize run.
type Output = packing.Output[*Solution]

// AlgorithmFormatter guards the shared output of an Optimize run.
type AlgorithmFormatter = packing.AlgorithmFormatter[*Solution]

// OptimizeParameters configures an Optimize run.
type OptimizeParameters struct {
	Mode      packing.OptimizationMode
	TimeLimit time.Duration
	Timer     *packing.Timer
	Logger    *slog.Logger

	SolutionPoolCapacity int
	TreeSearchGuides     []int

	UseTreeSearch                bool
	UseSequentialSingleKnapsack  bool
	UseSequentialValueCorrection bool
	UseDichotomicSearch          bool
	UseColumnGeneration          bool

	NotAnytimeTreeSearchQueueSize                         int
	SequentialValueCorrectionSubproblemQueueSize          int
	NotAnytimeSequentialValueCorrectionNumberOfIterations int
	NotAnytimeDichotomicSearchSubproblemQueueSize         int
	NotAnytimeSequentialSingleKnapsackSubproblemQueueSize int
	ColumnGenerationSubproblemQueueSize                   int

	ManyItemTypeCopiesFactor float64
	ManyItemsInBinsThreshold float64

	LinearProgrammingSolver string
}

func (p *OptimizeParameters) withDefaults() OptimizeParameters {
	q := *p
	if q.SolutionPoolCapacity < 1 {
		q.SolutionPoolCapacity = 1
	}
	if q.NotAnytimeTreeSearchQueueSize == 0 {
		q.NotAnytimeTreeSearchQueueSize = 512
	}
	if q.SequentialValueCorrectionSubproblemQueueSize == 0 {
		q.SequentialValueCorrectionSubproblemQueueSize = 512
	}
	if q.NotAnytimeSequentialValueCorrectionNumberOfIterations == 0 {
		q.NotAnytimeSequentialValueCorrectionNumberOfIterations = 32
	}
	if q.NotAnytimeDichotomicSearchSubproblemQueueSize == 0 {
		q.NotAnytimeDichotomicSearchSubproblemQueueSize = 128
	}
	if q.NotAnytimeSequentialSingleKnapsackSubproblemQueueSize == 0 {
		q.NotAnytimeSequentialSingleKnapsackSubproblemQueueSize = 128
	}
	if q.ColumnGenerationSubproblemQueueSize == 0 {
		q.ColumnGenerationSubproblemQueueSize = 256
	}
	if q.ManyItemTypeCopiesFactor == 0 {
		q.ManyItemTypeCopiesFactor = 1
	}
	if q.ManyItemsInBinsThreshold == 0 {
		q.ManyItemsInBinsThreshold = 16
	}
	return q
}

// hasSemiTrailerTruck reports whether any bin type carries axle data.
func hasSemiTrailerTruck(instance *Instance) bool {
	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		if instance.BinType(binTypeID).SemiTrailerTruck.Is {
			return true
		}
	}
	return false
}

// Optimize selects algorithms from the objective and the instance
// statistics and runs them as concurrent workers. Tree search is often not
// enough for boxstacks alone, so the sequential single-knapsack
// decomposition stays on for the packing objectives.
func Optimize(instance *Instance, parameters OptimizeParameters) (*Output, error) {
	params := parameters.withDefaults()
	timer := params.Timer
	if timer == nil {
		timer = packing.NewTimer(params.TimeLimit)
	} else {
		timer = timer.Child()
	}

	better := func(a, b *Solution) bool { return a.Better(b) }
	output := packing.NewOutput(packing.NewSolutionPool(params.SolutionPoolCapacity, better))
	formatter := packing.NewAlgorithmFormatter[*Solution](instance, timer, params.Logger, output)
	formatter.Start("boxstacks")

	if instance.NumberOfItems() == 0 ||
		instance.Objective() == packing.ObjectiveKnapsack {
		formatter.UpdateSolution(NewSolution(instance), "empty")
	}
	if instance.NumberOfItems() == 0 {
		formatter.End()
		return output, nil
	}

	useTreeSearch := params.UseTreeSearch
	useSSK := params.UseSequentialSingleKnapsack
	useSVC := params.UseSequentialValueCorrection
	useDS := params.UseDichotomicSearch
	useCG := params.UseColumnGeneration

	meanItemsInBins := 0.0
	if mean := packing.MeanItemSpace(instance); mean > 0 {
		meanItemsInBins = packing.LargestBinSpace(instance) / mean
	}
	manyCopies := packing.MeanItemTypeCopies(instance) >
		params.ManyItemTypeCopiesFactor*meanItemsInBins
	manyItemsInBins := meanItemsInBins > params.ManyItemsInBinsThreshold
	noneSelected := !useTreeSearch && !useSSK && !useSVC && !useDS && !useCG

	switch {
	case instance.NumberOfBins() <= 1:
		useTreeSearch, useSSK, useSVC, useDS, useCG = true, false, false, false, false
	case instance.Objective() == packing.ObjectiveKnapsack:
		useDS = false
		if noneSelected {
			if manyCopies {
				if manyItemsInBins {
					useSSK = true
				} else {
					useSVC, useCG = true, true
				}
			} else {
				useTreeSearch, useCG = true, true
			}
		}
	case instance.Objective() == packing.ObjectiveBinPacking ||
		instance.Objective() == packing.ObjectiveBinPackingWithLeftovers:
		if instance.NumberOfBinTypes() > 1 {
			useCG = false
		}
		useDS = false
		if noneSelected {
			// Tree search alone rarely closes boxstacks packing; the
			// single-knapsack decomposition carries it.
			useSSK = true
			if !manyCopies {
				useTreeSearch = true
			}
		}
	case instance.Objective() == packing.ObjectiveVariableSizedBinPacking:
		if instance.NumberOfBinTypes() == 1 {
			if useDS {
				useDS = false
				useTreeSearch = true
			}
		} else {
			useTreeSearch = false
		}
		if noneSelected {
			useSSK = true
			if instance.NumberOfBinTypes() > 1 {
				useDS = true
			} else {
				useSVC = true
			}
		}
	}

	var workers []swarm.Worker
	add := func(name string, enabled bool, run func() error) {
		if enabled {
			workers = append(workers, swarm.Worker{Name: name, Run: run})
		}
	}
	add("tree-search", useTreeSearch, func() error {
		return optimizeTreeSearch(instance, params, timer, formatter)
	})
	add("sequential-single-knapsack", useSSK, func() error {
		return optimizeSequentialSingleKnapsack(instance, params, timer, formatter)
	})
	add("sequential-value-correction", useSVC, func() error {
		return optimizeSequentialValueCorrection(instance, params, timer, formatter)
	})
	add("dichotomic-search", useDS, func() error {
		return optimizeDichotomicSearch(instance, params, timer, formatter)
	})
	add("column-generation", useCG, func() error {
		return optimizeColumnGeneration(instance, params, timer, formatter)
	})

	err := swarm.Run(workers, params.Mode == packing.NotAnytimeSequential)
	formatter.End()
	if err != nil {
		return output, err
	}
	return output, nil
}

func subSolver(params OptimizeParameters, timer *packing.Timer, queueSize int) algorithms.SubproblemSolver[*Instance, *Solution] {
	return func(sub *Instance) (*packing.SolutionPool[*Solution], error) {
		mode := packing.NotAnytime
		if params.Mode == packing.NotAnytimeSequential {
			mode = packing.NotAnytimeSequential
		}
		subOutput, err := Optimize(sub, OptimizeParameters{
			Mode:                          mode,
			Timer:                         timer,
			Logger:                        packing.DiscardLogger(),
			NotAnytimeTreeSearchQueueSize: queueSize,
			UseTreeSearch:                 true,
		})
		if err != nil {
			return nil, err
		}
		return subOutput.Pool, nil
	}
}

func optimizeTreeSearch(
	instance *Instance,
	params OptimizeParameters,
	timer *packing.Timer,
	formatter *AlgorithmFormatter,
) error {
	guides := params.TreeSearchGuides
	if len(guides) == 0 {
		switch {
		case instance.Objective() == packing.ObjectiveKnapsack && hasSemiTrailerTruck(instance):
			guides = []int{4, 7}
		case instance.Objective() == packing.ObjectiveKnapsack:
			guides = []int{4, 5}
		case hasSemiTrailerTruck(instance):
			guides = []int{0, 7}
		default:
			guides = []int{0, 2}
		}
	}
	growthFactors := []float64{1.5}
	if len(guides)*2 <= 4 && params.Mode == packing.Anytime {
		growthFactors = []float64{1.33, 1.5}
	}

	var workers []swarm.Worker
	for _, growthFactor := range growthFactors {
		for _, guideID := range guides {
			growthFactor, guideID := growthFactor, guideID
			workers = append(workers, swarm.Worker{
				Name: fmt.Sprintf("tree-search g %d", guideID),
				Run: func() error {
					scheme := NewBranchingScheme(instance, BranchingSchemeParameters{GuideID: guideID})
					tsParams := treesearch.Parameters[*Node]{
						GrowthFactor: growthFactor,
						Timer:        timer,
					}
					if params.Mode != packing.Anytime {
						tsParams.MinimumSizeOfTheQueue = params.NotAnytimeTreeSearchQueueSize
						tsParams.MaximumSizeOfTheQueue = params.NotAnytimeTreeSearchQueueSize
					}
					var callbackErr error
					tsParams.NewSolutionCallback = func(tsOutput *treesearch.Output[*Node]) {
						solution, err := scheme.ToSolution(tsOutput.BestNode)
						if err != nil {
							callbackErr = err
							return
						}
						tag := fmt.Sprintf("TS g %d q %d", guideID, tsOutput.MaximumSizeOfTheQueue)
						formatter.UpdateSolution(solution, tag)
					}
					treesearch.IterativeBeamSearch[*Node](scheme, tsParams)
					return callbackErr
				},
			})
		}
	}
	return swarm.Run(workers, params.Mode == packing.NotAnytimeSequential)
}

func optimizeSequentialSingleKnapsack(
	instance *Instance,
	params OptimizeParameters,
	timer *packing.Timer,
	formatter *AlgorithmFormatter,
) error {
	queueSize := 1
	for {
		if params.Mode != packing.Anytime {
			queueSize = params.NotAnytimeSequentialSingleKnapsackSubproblemQueueSize
		}
		_, err := algorithms.SequentialValueCorrection(
			instance, NewInstanceBuilder, NewSolution,
			func(a, b *Solution) bool { return a.Better(b) },
			subSolver(params, timer, queueSize),
			func(solution *Solution, _ string) {
				formatter.UpdateSolution(solution, fmt.Sprintf("SSK q %d", queueSize))
			},
			algorithms.SVCParameters{Timer: timer, MaximumNumberOfIterations: 1},
		)
		if err != nil {
			return err
		}
		if timer.NeedsToEnd() || params.Mode != packing.Anytime {
			return nil
		}
		queueSize *= 2
	}
}

func optimizeSequentialValueCorrection(
	instance *Instance,
	params OptimizeParameters,
	timer *packing.Timer,
	formatter *AlgorithmFormatter,
) error {
	svcParams := algorithms.SVCParameters{Timer: timer}
	if params.Mode != packing.Anytime {
		svcParams.MaximumNumberOfIterations = params.NotAnytimeSequentialValueCorrectionNumberOfIterations
	}
	_, err := algorithms.SequentialValueCorrection(
		instance, NewInstanceBuilder, NewSolution,
		func(a, b *Solution) bool { return a.Better(b) },
		subSolver(params, timer, params.SequentialValueCorrectionSubproblemQueueSize),
		func(solution *Solution, tag string) {
			formatter.UpdateSolution(solution, "SVC "+tag)
		},
		svcParams,
	)
	return err
}

func optimizeDichotomicSearch(
	instance *Instance,
	params OptimizeParameters,
	timer *packing.Timer,
	formatter *AlgorithmFormatter,
) error {
	queueSize := 1
	wasteUpperBound := math.Inf(1)
	for {
		if params.Mode != packing.Anytime {
			queueSize = params.NotAnytimeDichotomicSearchSubproblemQueueSize
		}
		dsOutput, err := algorithms.DichotomicSearch(
			instance, NewInstanceBuilder, NewSolution,
			func(a, b *Solution) bool { return a.Better(b) },
			subSolver(params, timer, queueSize),
			func(solution *Solution, tag string) {
				formatter.UpdateSolution(solution, fmt.Sprintf("DS q %d %s", queueSize, tag))
			},
			algorithms.DichotomicSearchParameters{
				Timer:                            timer,
				InitialWastePercentageUpperBound: wasteUpperBound,
			},
		)
		if err != nil {
			return err
		}
		if timer.NeedsToEnd() || params.Mode != packing.Anytime {
			return nil
		}
		queueSize *= 2
		wasteUpperBound = dsOutput.WastePercentageUpperBound
	}
}

func optimizeColumnGeneration(
	instance *Instance,
	params OptimizeParameters,
	timer *packing.Timer,
	formatter *AlgorithmFormatter,
) error {
	if instance.Objective() == packing.ObjectiveVariableSizedBinPacking {
		warm, err := algorithms.VbppToBpp(
			instance, NewInstanceBuilder, NewSolution,
			func(a, b *Solution) bool { return a.Better(b) },
			subSolver(params, timer, 16),
		)
		if err != nil {
			return err
		}
		if solution, ok := warm.Pool.Best(); ok {
			formatter.UpdateSolution(solution, "VBPP2BPP")
		}
	}
	if timer.NeedsToEnd() {
		return nil
	}

	pricing := columngen.PricingFunc[*Instance, *Solution](
		subSolver(params, timer, params.ColumnGenerationSubproblemQueueSize))
	_, err := columngen.LimitedDiscrepancySearch(
		instance, NewInstanceBuilder, NewSolution,
		func(a, b *Solution) bool { return a.Better(b) },
		pricing,
		func(solution *Solution, tag string) {
			formatter.UpdateSolution(solution, tag)
		},
		func(bound float64) {
			switch instance.Objective() {
			case packing.ObjectiveVariableSizedBinPacking:
				formatter.UpdateVariableSizedBinPackingBound(bound)
			case packing.ObjectiveKnapsack:
				formatter.UpdateKnapsackBound(bound)
			case packing.ObjectiveBinPacking:
				space := instance.BinTypeSpace(0)
				if space > 0 {
					formatter.UpdateBinPackingBound(int(math.Ceil(bound/space - 1e-3)))
				}
			}
		},
		columngen.Parameters{
			Timer:         timer,
			SolverBackend: params.LinearProgrammingSolver,
			AutomaticStop: params.Mode != packing.Anytime,
			DummyColumnObjectiveCoefficient: math.Max(
				2*instance.MaximumBinCost()*float64(instance.MaximumItemCopies()), 1),
		},
	)
	return err
}

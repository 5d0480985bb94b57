package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/packbeam/pkg/boxstacks"
	"github.com/DrSkyle/packbeam/pkg/packing"
)

var boxstacksCmd = &cobra.Command{
	Use:     "boxstacks",
	Aliases: []string{"bs"},
	Short:   "Solve a three-dimensional box-stacks packing problem",
	RunE: func(cmd *cobra.Command, args []string) error {
		if itemsPath == "" {
			return fmt.Errorf("%w: --items is required", packing.ErrInvalidInput)
		}
		mode, err := parseMode()
		if err != nil {
			return err
		}
		logger, cleanup, err := buildLogger()
		if err != nil {
			return err
		}
		defer cleanup()

		builder := boxstacks.NewInstanceBuilder()
		if err := builder.ReadItemTypes(itemsPath); err != nil {
			return err
		}
		if binsPath != "" {
			if err := builder.ReadBinTypes(binsPath); err != nil {
				return err
			}
		}
		if parametersPath != "" {
			if err := builder.ReadParameters(parametersPath); err != nil {
				return err
			}
		}
		if objective, ok, err := parseObjectiveFlag(); err != nil {
			return err
		} else if ok {
			builder.SetObjective(objective)
		}
		instance, err := builder.Build()
		if err != nil {
			return err
		}
		if binInfiniteCopies || itemInfiniteCopies || noItemRotation || unweighted {
			instance, err = rebuildBoxstacks(instance)
			if err != nil {
				return err
			}
		}

		output, err := boxstacks.Optimize(instance, boxstacks.OptimizeParameters{
			Mode:      mode,
			TimeLimit: timeLimit(),
			Logger:    logger,
		})
		if err != nil {
			return err
		}

		var summary packing.JSONOutput
		summary.Time = output.Time.Seconds()
		summary.Events = output.Events
		if best, ok := output.Pool.Best(); ok {
			best.FillJSON(&summary)
			if certificatePath != "" {
				if err := best.WriteCertificate(certificatePath); err != nil {
					return err
				}
			}
		} else if certificatePath != "" {
			if err := emptyCertificate(certificatePath); err != nil {
				return err
			}
		}
		if outputPath != "" {
			if err := summary.WriteJSON(outputPath); err != nil {
				return err
			}
		}
		renderSummary("boxstacks", &summary)
		return nil
	},
}

func rebuildBoxstacks(instance *boxstacks.Instance) (*boxstacks.Instance, error) {
	builder := boxstacks.NewInstanceBuilder()
	builder.SetObjective(instance.Objective())
	builder.SetParameters(instance.Parameters())
	for itemTypeID := 0; itemTypeID < instance.NumberOfItemTypes(); itemTypeID++ {
		itemType := instance.ItemType(itemTypeID)
		if itemInfiniteCopies {
			itemType.Copies = -1
		}
		if noItemRotation {
			itemType.Rotations = 1
		}
		if unweighted {
			itemType.Weight = 0
		}
		builder.AddItemType(itemType)
	}
	for binTypeID := 0; binTypeID < instance.NumberOfBinTypes(); binTypeID++ {
		binType := instance.BinType(binTypeID)
		if binInfiniteCopies {
			binType.Copies = -1
			binType.CopiesMin = 0
		}
		builder.AddBinType(binType)
	}
	return builder.Build()
}

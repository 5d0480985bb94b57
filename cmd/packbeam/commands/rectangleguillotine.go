package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/packbeam/pkg/packing"
	"github.com/DrSkyle/packbeam/pkg/rectangleguillotine"
)

var rectangleguillotineCmd = &cobra.Command{
	Use:     "rectangleguillotine",
	Aliases: []string{"rg"},
	Short:   "Solve a rectangle packing problem with guillotine cuts",
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

		builder := rectangleguillotine.NewInstanceBuilder()
		if err := builder.ReadItemTypes(itemsPath); err != nil {
			return err
		}
		if binsPath != "" {
			if err := builder.ReadBinTypes(binsPath); err != nil {
				return err
			}
		}
		if defectsPath != "" {
			if err := builder.ReadDefects(defectsPath); err != nil {
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

		output, err := rectangleguillotine.Optimize(instance, rectangleguillotine.OptimizeParameters{
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
		renderSummary("rectangleguillotine", &summary)
		return nil
	},
}

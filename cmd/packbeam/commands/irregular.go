package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/packbeam/pkg/irregular"
	"github.com/DrSkyle/packbeam/pkg/packing"
)

var irregularCmd = &cobra.Command{
	Use:     "irregular",
	Aliases: []string{"ir"},
	Short:   "Solve an irregular (polygonal) packing problem",
	Long: `Solve an irregular packing problem. Irregular geometry does not fit
the tabular CSV schema, so --items names a single JSON instance file holding
item shapes, bin shapes and parameters.`,
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

		builder := irregular.NewInstanceBuilder()
		if err := builder.ReadJSON(itemsPath); err != nil {
			return err
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

		output, err := irregular.Optimize(instance, irregular.OptimizeParameters{
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
		renderSummary("irregular", &summary)
		return nil
	},
}

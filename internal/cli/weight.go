package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"babyprep/backend/internal/pregnancy"
)

var errWeightInputs = errors.New("--height, --pre and --current must all be positive")

func newWeightCmd() *cobra.Command {
	var height, pre, current float64
	cmd := &cobra.Command{
		Use:   "weight",
		Short: "Evaluate BMI and gestational weight gain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := pregnancy.EvaluateWeight(height, pre, current)
			if !ok {
				return errWeightInputs
			}
			return writeJSON(cmd, status)
		},
	}
	cmd.Flags().Float64Var(&height, "height", 0, "Height in cm")
	cmd.Flags().Float64Var(&pre, "pre", 0, "Pre-pregnancy weight in kg")
	cmd.Flags().Float64Var(&current, "current", 0, "Current weight in kg")
	return cmd
}

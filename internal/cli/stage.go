package cli

import (
	"time"

	"github.com/spf13/cobra"

	"babyprep/backend/internal/pregnancy"
)

type stageOutput struct {
	Today              string                `json:"today"`
	StartDate          *string               `json:"startDate"`
	DueDate            *string               `json:"dueDate"`
	OvulationWeekStart *string               `json:"ovulationWeekStart"`
	Stage              pregnancy.StageResult `json:"stage"`
}

func newStageCmd(opts *options) *cobra.Command {
	var start, due string
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Show the pregnancy stage for the reference date",
		Long:  "Computes the stage from --start and --due. A missing side is derived from the other with a 280-day term.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := opts.referenceDate()
			if err != nil {
				return err
			}
			startDate, err := optionalDate("start", start)
			if err != nil {
				return err
			}
			dueDate, err := optionalDate("due", due)
			if err != nil {
				return err
			}
			window := pregnancy.Window{Start: startDate, Due: dueDate}.Filled()

			out := stageOutput{
				Today:     today.Format(pregnancy.DateLayout),
				StartDate: formatDate(window.Start),
				DueDate:   formatDate(window.Due),
				Stage:     window.Stage(today),
			}
			if window.Start != nil {
				ovulation := pregnancy.OvulationWeekStart(*window.Start)
				out.OvulationWeekStart = formatDate(&ovulation)
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Pregnancy start date YYYY-MM-DD")
	cmd.Flags().StringVar(&due, "due", "", "Due date YYYY-MM-DD")
	return cmd
}

func formatDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(pregnancy.DateLayout)
	return &formatted
}

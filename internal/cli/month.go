package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"babyprep/backend/internal/calendar"
	"babyprep/backend/internal/pregnancy"
)

type monthFlags struct {
	year        int
	month       int
	start       string
	due         string
	lastPeriod  string
	supplements []string
	csv         bool
}

func newMonthCmd(opts *options) *cobra.Command {
	flags := &monthFlags{}
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Print the calendar view for one month",
		Long: "Builds the per-day calendar for --year/--month. Each --supplement is a catalog option id " +
			"scheduled from the first of the month with its catalog cycle and time.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := opts.referenceDate()
			if err != nil {
				return err
			}
			if flags.year == 0 {
				flags.year = today.Year()
			}
			if flags.month == 0 {
				flags.month = int(today.Month())
			}
			input, err := flags.input(opts)
			if err != nil {
				return err
			}
			days, err := calendar.BuildMonth(flags.year, time.Month(flags.month), input)
			if err != nil {
				return err
			}
			if flags.csv {
				return calendar.WriteCSV(cmd.OutOrStdout(), days)
			}
			return writeJSON(cmd, days)
		},
	}
	cmd.Flags().IntVar(&flags.year, "year", 0, "Year (default: year of --today)")
	cmd.Flags().IntVar(&flags.month, "month", 0, "Month 1-12 (default: month of --today)")
	cmd.Flags().StringVar(&flags.start, "start", "", "Pregnancy start date YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.due, "due", "", "Due date YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.lastPeriod, "last-period", "", "Last period start YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&flags.supplements, "supplement", nil, "Catalog supplement option id (repeatable)")
	cmd.Flags().BoolVar(&flags.csv, "csv", false, "Write CSV instead of JSON")
	return cmd
}

func (f *monthFlags) input(opts *options) (calendar.MonthInput, error) {
	var (
		in  calendar.MonthInput
		err error
	)
	if in.PregnancyStart, err = optionalDate("start", f.start); err != nil {
		return in, err
	}
	if in.DueDate, err = optionalDate("due", f.due); err != nil {
		return in, err
	}
	if in.PregnancyStart == nil && in.DueDate != nil {
		derived := pregnancy.StartFromDue(*in.DueDate)
		in.PregnancyStart = &derived
	}
	if in.LastPeriod, err = optionalDate("last-period", f.lastPeriod); err != nil {
		return in, err
	}
	if len(f.supplements) == 0 {
		return in, nil
	}

	cat, err := opts.loadCatalog()
	if err != nil {
		return in, err
	}
	monthStart, _, err := calendar.MonthRange(f.year, time.Month(f.month))
	if err != nil {
		return in, err
	}
	for _, id := range f.supplements {
		_, option, ok := cat.FindOption(strings.TrimSpace(id))
		if !ok {
			return in, fmt.Errorf("unknown supplement option %q", id)
		}
		in.Schedules = append(in.Schedules, calendar.Schedule{
			SupplementID: option.ID,
			Name:         option.Name,
			TimeOfDay:    option.IntakeTime(),
			Start:        monthStart,
			Cycle:        option.IntakeCycle(),
		})
	}
	return in, nil
}

// Package cli implements the prepctl commands for checking stage, weight, chat and calendar
// output without a running API.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"babyprep/backend/internal/catalog"
	"babyprep/backend/internal/pregnancy"
)

type options struct {
	today   string
	catalog string
}

// NewRootCmd builds a fresh command tree so tests can run commands in isolation.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "prepctl",
		Short:         "Pregnancy prep calculations from the command line",
		Long:          "prepctl runs the stage, weight, chatbot and calendar calculations used by the BabyPrep API and prints JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.today, "today", "", "Reference date YYYY-MM-DD (default: today in local time)")
	root.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "Path to a catalog YAML file (default: embedded presets)")

	root.AddCommand(
		newStageCmd(opts),
		newWeightCmd(),
		newChatCmd(opts),
		newMonthCmd(opts),
	)
	return root
}

func (o *options) referenceDate() (time.Time, error) {
	if strings.TrimSpace(o.today) == "" {
		return pregnancy.CalendarDate(time.Now()), nil
	}
	parsed, err := pregnancy.ParseDate(o.today)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today: %w", err)
	}
	return parsed, nil
}

func (o *options) loadCatalog() (*catalog.Catalog, error) {
	if strings.TrimSpace(o.catalog) == "" {
		return catalog.Default()
	}
	return catalog.Load(o.catalog)
}

// optionalDate parses a flag value that may be empty.
func optionalDate(flag, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := pregnancy.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &parsed, nil
}

func writeJSON(cmd *cobra.Command, value any) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gamescorer/internal/domain"
	"gamescorer/internal/usecase"
)

type settingsFlags struct {
	reviewThreshold         int
	daysIgnored             int
	addNew                  bool
	updateExisting          bool
	updateExcludedByDetails bool
	updateExcludedByReviews bool
	export                  bool
}

func (f *settingsFlags) register(flags *pflag.FlagSet) {
	flags.IntVar(&f.reviewThreshold, "review-threshold", 0, "Minimum total reviews a new game needs")
	flags.IntVar(&f.daysIgnored, "days-ignored", 0, "Days before a stored entry is revisited")
	flags.BoolVar(&f.addNew, "add-new", false, "Process catalog entries never seen before")
	flags.BoolVar(&f.updateExisting, "update-existing", false, "Refresh stale stored games")
	flags.BoolVar(&f.updateExcludedByDetails, "update-excluded-by-details", false, "Retry apps excluded for missing details")
	flags.BoolVar(&f.updateExcludedByReviews, "update-excluded-by-reviews", false, "Retry apps excluded for too few reviews")
	flags.BoolVar(&f.export, "export", false, "Write the scores CSV after processing")
}

// apply overrides base with every flag the user set explicitly.
func (f *settingsFlags) apply(flags *pflag.FlagSet, base domain.Settings) domain.Settings {
	if flags.Changed("review-threshold") {
		base.ReviewThreshold = f.reviewThreshold
	}
	if flags.Changed("days-ignored") {
		base.DaysIgnored = f.daysIgnored
	}
	if flags.Changed("add-new") {
		base.AddNew = f.addNew
	}
	if flags.Changed("update-existing") {
		base.UpdateExisting = f.updateExisting
	}
	if flags.Changed("update-excluded-by-details") {
		base.UpdateExcludedByAppDetails = f.updateExcludedByDetails
	}
	if flags.Changed("update-excluded-by-reviews") {
		base.UpdateExcludedByReviewThreshold = f.updateExcludedByReviews
	}
	if flags.Changed("export") {
		base.CreateExport = f.export
	}
	return base
}

func validateSettings(s domain.Settings) error {
	if s.ReviewThreshold < 0 {
		return fmt.Errorf("review threshold must be >= 0, got %d", s.ReviewThreshold)
	}
	if s.DaysIgnored < 0 {
		return fmt.Errorf("days ignored must be >= 0, got %d", s.DaysIgnored)
	}
	return nil
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one catalog pass and optionally export scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := ctx.application(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer application.Close()
			settings := flags.apply(cmd.Flags(), application.Settings())
			if err := validateSettings(settings); err != nil {
				return err
			}

			summary, err := application.Run(cmd.Context(), settings)
			application.Close()
			printRunSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func printRunSummary(w io.Writer, s usecase.RunSummary) {
	if s.RunID == "" {
		return
	}
	rows := [][]string{
		{"Run", s.RunID},
		{"Catalog apps", strconv.Itoa(s.CatalogSize)},
		{"Selected", strconv.Itoa(s.Selected)},
		{"Processed", strconv.Itoa(s.Processed)},
		{"Games saved", strconv.Itoa(s.GamesSaved)},
		{"Excluded (non-game)", strconv.Itoa(s.NonGame)},
		{"Excluded (no details)", strconv.Itoa(s.NoDetails)},
		{"Excluded (few reviews)", strconv.Itoa(s.NotEnoughReviews)},
		{"Redirects", strconv.Itoa(s.Redirects)},
		{"Exclusions lifted", strconv.Itoa(s.Removed)},
		{"Checkpoints", strconv.Itoa(s.Checkpoints)},
		{"Flushes", strconv.Itoa(s.Flushes)},
		{"Duration", s.Duration.Round(time.Second).String()},
	}
	if s.ExportPath != "" {
		rows = append(rows, []string{"Exported", fmt.Sprintf("%d rows to %s", s.Exported, s.ExportPath)})
	}
	fmt.Fprintln(w, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}

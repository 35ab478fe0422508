package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Score stored games and write the CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := ctx.application(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer application.Close()
			path, count, err := application.Export(cmd.Context())
			application.Close()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d games to %s\n", count, path)
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored game and exclusion counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cfg, err := ctx.application(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer application.Close()
			stats, err := application.Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Database", cfg.Database.Path},
				{"Games", strconv.Itoa(stats.Games)},
				{"Excluded", strconv.Itoa(stats.Excluded)},
				{"  non-game", strconv.Itoa(stats.NonGame)},
				{"  no details", strconv.Itoa(stats.NoDetails)},
				{"  few reviews", strconv.Itoa(stats.NotEnoughReviews)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Item", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newTopCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the best scored games",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, err := ctx.application(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer application.Close()
			games, err := application.Top(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(games) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No games stored")
				return nil
			}

			rows := make([][]string, 0, len(games))
			for i, g := range games {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					strconv.FormatInt(g.ID, 10),
					g.Name,
					g.Genres,
					strconv.Itoa(g.TotalScore),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "AppID", "Name", "Genres", "Score"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of games to show (0 for all)")
	return cmd
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule",
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
			return application.Schedule(cmd.Context(), settings)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

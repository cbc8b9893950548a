package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
)

var statusCmd = &cobra.Command{
	Use:     "status [agent...]",
	Short:   "Show agent or workflow status derived from the event log",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		workflow, _ := cmd.Flags().GetString("workflow")
		return withApp(cmd.Context(), func(a *app) error {
			var rows []*projection.Row
			switch {
			case workflow != "":
				row, err := a.projector.WorkflowStatus(cmd.Context(), workflow)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			case len(args) > 0:
				for _, name := range args {
					row, err := a.projector.AgentStatus(cmd.Context(), name)
					if err != nil {
						return err
					}
					rows = append(rows, row)
				}
			default:
				var err error
				if rows, err = a.projector.AgentStatuses(cmd.Context()); err != nil {
					return err
				}
			}
			if jsonOutput {
				printJSON(rows)
				return nil
			}
			printStatusTable(rows)
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().String("workflow", "", "show the status of one workflow run")
}

var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Short:   "Aggregate performance metrics with trend against the previous period",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		gran, _ := cmd.Flags().GetString("granularity")
		g, err := metrics.ParseGranularity(gran)
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")

		rng := metrics.Range{End: time.Now().UTC()}
		if endStr != "" {
			if rng.End, err = time.Parse(time.RFC3339, endStr); err != nil {
				return err
			}
		}
		rng.Start = rng.End.AddDate(0, 0, -days)
		if startStr != "" {
			if rng.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
				return err
			}
		}

		f := metrics.Filters{}
		f.Platform, _ = cmd.Flags().GetString("platform")
		f.PostIDs, _ = cmd.Flags().GetStringSlice("post")
		f.ExperimentIDs, _ = cmd.Flags().GetStringSlice("experiment")

		return withApp(cmd.Context(), func(a *app) error {
			report, err := a.engine.Metrics(cmd.Context(), rng, g, f)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(report)
				return nil
			}
			printReport(report)
			return nil
		})
	},
}

func init() {
	metricsCmd.Flags().String("granularity", "day", "bucket size: hour, day or week")
	metricsCmd.Flags().Int("days", metrics.DashboardDays, "range length in days when --start is not set")
	metricsCmd.Flags().String("start", "", "range start (RFC 3339)")
	metricsCmd.Flags().String("end", "", "range end (RFC 3339, default now)")
	metricsCmd.Flags().String("platform", "", "only this platform")
	metricsCmd.Flags().StringSlice("post", nil, "only these post ids")
	metricsCmd.Flags().StringSlice("experiment", nil, "only posts of these experiments")
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Short:   "Show health, active workflows, agent status and recent metrics",
	GroupID: "views",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			d, err := a.engine.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(d)
				return nil
			}
			printDashboard(d)
			return nil
		})
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/agent"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// printJSONLine writes v as one compact line, for streams.
func printJSONLine(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// printEventTable prints events as a table, oldest first as given.
func printEventTable(events []*model.Event) {
	if len(events) == 0 {
		fmt.Println("No events.")
		return
	}
	msgWidth := max(ui.Width(120)-90, 20)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSEVERITY\tTYPE\tAGENT\tWORKFLOW\tMESSAGE")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(timeLayout),
			ui.RenderSeverity(fmt.Sprintf("%-8s", e.Severity)),
			e.EventType,
			orDash(e.AgentName),
			orDash(ui.Truncate(e.WorkflowID, 12)),
			ui.Truncate(e.Message, msgWidth),
		)
	}
	w.Flush()
}

// printEvent prints one event with its payload and metadata.
func printEvent(e *model.Event) {
	fmt.Printf("%s  %s\n", ui.RenderAccent(e.ID), e.EventType)
	fmt.Printf("Severity:    %s\n", ui.RenderSeverity(string(e.Severity)))
	fmt.Printf("Category:    %s\n", e.Category)
	fmt.Printf("Created:     %s\n", e.CreatedAt.Local().Format(timeLayout))
	if e.AgentName != "" {
		fmt.Printf("Agent:       %s\n", e.AgentName)
	}
	if e.WorkflowID != "" {
		fmt.Printf("Workflow:    %s\n", e.WorkflowID)
	}
	if e.CorrelationID != "" {
		fmt.Printf("Correlation: %s\n", e.CorrelationID)
	}
	if e.Message != "" {
		fmt.Printf("\n%s\n", e.Message)
	}
	printRaw("Payload", e.Payload)
	printRaw("Metadata", e.Metadata)
}

func printRaw(label string, raw json.RawMessage) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Printf("\n%s:\n  %s\n", label, raw)
		return
	}
	data, _ := json.MarshalIndent(v, "  ", "  ")
	fmt.Printf("\n%s:\n  %s\n", label, data)
}

// printEventLine prints one event as a single line for `ace watch`.
func printEventLine(e *model.Event) {
	var parts []string
	if e.AgentName != "" {
		parts = append(parts, "agent="+e.AgentName)
	}
	if e.WorkflowID != "" {
		parts = append(parts, "workflow="+e.WorkflowID)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	fmt.Printf("%s %s %s %s\n",
		ui.RenderMuted(e.CreatedAt.Local().Format("15:04:05")),
		ui.RenderSeverity(fmt.Sprintf("%-8s", e.Severity)),
		e.EventType,
		strings.Join(parts, " "),
	)
}

func printStatusTable(rows []*projection.Row) {
	if len(rows) == 0 {
		fmt.Println("No status rows.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tSTATUS\tLAST EVENT\tAT")
	for _, r := range rows {
		at := "-"
		if r.LastEventTime != nil {
			at = r.LastEventTime.Local().Format(timeLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			r.EntityID,
			ui.RenderStatus(fmt.Sprintf("%-7s", r.Status)),
			orDash(r.LastEventType),
			at,
		)
	}
	w.Flush()
}

func printReport(r *metrics.Report) {
	fmt.Printf("Metrics %s to %s (%s)\n\n",
		r.Range.Start.Local().Format(timeLayout),
		r.Range.End.Local().Format(timeLayout),
		r.Granularity,
	)
	fmt.Printf("Views:      %d (prev %d, %+.1f%% %s)\n",
		r.Totals.Views, r.Previous.Views, r.ViewsChange, ui.RenderTrend(string(r.ViewsTrend)))
	fmt.Printf("Engagement: %d (prev %d, %+.1f%% %s)\n",
		r.Totals.Engagement, r.Previous.Engagement, r.EngagementChange, ui.RenderTrend(string(r.EngagementTrend)))
	fmt.Printf("Avg score:  %.2f\n", r.AverageScore)
	if r.TopPost != nil {
		fmt.Printf("Top post:   %s (%s, score %.2f)\n", r.TopPost.PostID, orDash(r.TopPost.Platform), r.TopPost.Score)
	}

	if len(r.Buckets) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BUCKET\tVIEWS\tENGAGEMENT")
		for _, b := range r.Buckets {
			fmt.Fprintf(w, "%s\t%d\t%d\n", bucketLabel(b.Start, r.Granularity), b.Views, b.Engagement)
		}
		w.Flush()
	}

	if len(r.TopExperiments) > 0 {
		fmt.Println("\nTop experiments:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  EXPERIMENT\tAVG SCORE\tPOSTS\tVIEWS\tENGAGEMENT")
		for _, e := range r.TopExperiments {
			fmt.Fprintf(w, "  %s\t%.2f\t%d\t%d\t%d\n", e.ExperimentID, e.AverageScore, e.Posts, e.Views, e.Engagement)
		}
		w.Flush()
	}
}

func bucketLabel(t time.Time, g metrics.Granularity) string {
	if g == metrics.Hour {
		return t.UTC().Format("2006-01-02 15:00")
	}
	return t.UTC().Format("2006-01-02")
}

func printDashboard(d *metrics.Dashboard) {
	if d.Health != nil {
		fmt.Printf("Health: %s (%d critical, %d workflow errors since %s)\n",
			ui.RenderHealth(string(d.Health.Status)),
			d.Health.CriticalEvents,
			d.Health.WorkflowErrors,
			d.Health.Since.Local().Format(timeLayout),
		)
	}
	fmt.Printf("Active workflows (24h): %d\n\n", d.ActiveWorkflows)
	printStatusTable(d.Agents)
	if d.Metrics != nil {
		fmt.Println()
		printReport(d.Metrics)
	}
}

func printPipelineResult(r *agent.PipelineResult) {
	fmt.Printf("Workflow: %s\n", ui.RenderAccent(r.WorkflowID))
	if r.Script != nil {
		fmt.Printf("Script:   %s  %s\n", r.Script.ID, r.Script.Title)
	}
	if r.Asset != nil {
		fmt.Printf("Asset:    %s  %s (%.1fs)\n", r.Asset.ID, r.Asset.StorageURL, r.Asset.DurationSeconds)
	}
	if r.Publish == nil {
		return
	}
	fmt.Printf("Publish:  %d published, %d failed\n\n", r.Publish.Published, r.Publish.Failed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tSTATUS\tPOST\tURL / ERROR")
	for _, p := range r.Publish.Results {
		detail := p.URL
		if p.Error != "" {
			detail = p.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Platform, p.Status, orDash(p.PostID), detail)
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

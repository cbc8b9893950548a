package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Query and append to the event log",
	GroupID: "events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := model.EventFilter{}
		sev, _ := cmd.Flags().GetString("severity")
		cat, _ := cmd.Flags().GetString("category")
		order, _ := cmd.Flags().GetString("order")
		f.Severity = model.Severity(sev)
		f.Category = model.Category(cat)
		f.Order = model.SortOrder(order)
		f.AgentName, _ = cmd.Flags().GetString("agent")
		f.EventType, _ = cmd.Flags().GetString("type")
		f.WorkflowID, _ = cmd.Flags().GetString("workflow")
		f.CorrelationID, _ = cmd.Flags().GetString("correlation")
		f.Search, _ = cmd.Flags().GetString("search")
		f.Limit, _ = cmd.Flags().GetInt("limit")
		f.Offset, _ = cmd.Flags().GetInt("offset")

		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			t := time.Now().UTC().Add(-since)
			f.Since = &t
		}

		return withApp(cmd.Context(), func(a *app) error {
			page, err := a.log.Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(page)
				return nil
			}
			printEventTable(page.Events)
			fmt.Printf("\n%d events (%d total)\n", len(page.Events), page.Total)
			return nil
		})
	},
}

var eventsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			e, err := a.log.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(e)
				return nil
			}
			printEvent(e)
			return nil
		})
	},
}

var eventsRelatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Show the events sharing an event's correlation or workflow id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd.Context(), func(a *app) error {
			e, err := a.log.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			related, err := a.log.Related(cmd.Context(), e, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(related)
				return nil
			}
			printEventTable(related)
			fmt.Printf("\n%d related event(s)\n", len(related))
			return nil
		})
	},
}

var eventsEmitCmd = &cobra.Command{
	Use:   "emit <event-type>",
	Short: "Append an event to the log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := &model.Event{EventType: args[0]}
		sev, _ := cmd.Flags().GetString("severity")
		cat, _ := cmd.Flags().GetString("category")
		e.Severity = model.Severity(sev)
		e.Category = model.Category(cat)
		e.AgentName, _ = cmd.Flags().GetString("agent")
		e.WorkflowID, _ = cmd.Flags().GetString("workflow")
		e.CorrelationID, _ = cmd.Flags().GetString("correlation")
		e.Message, _ = cmd.Flags().GetString("message")
		if payload, _ := cmd.Flags().GetString("payload"); payload != "" {
			if !json.Valid([]byte(payload)) {
				return fmt.Errorf("--payload must be valid JSON")
			}
			e.Payload = json.RawMessage(payload)
		}

		return withApp(cmd.Context(), func(a *app) error {
			stored, err := a.log.Append(cmd.Context(), e)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(stored)
				return nil
			}
			fmt.Printf("Appended %s (%s)\n", stored.ID, stored.EventType)
			return nil
		})
	},
}

func init() {
	eventsListCmd.Flags().String("severity", "", "filter by severity")
	eventsListCmd.Flags().String("category", "", "filter by category (agent, workflow, system, integration)")
	eventsListCmd.Flags().String("agent", "", "filter by agent name")
	eventsListCmd.Flags().String("type", "", "filter by exact event type")
	eventsListCmd.Flags().String("workflow", "", "filter by workflow id")
	eventsListCmd.Flags().String("correlation", "", "filter by correlation id")
	eventsListCmd.Flags().String("search", "", "free-text search over message and metadata")
	eventsListCmd.Flags().Duration("since", 0, "only events newer than this (e.g. 1h)")
	eventsListCmd.Flags().String("order", "", "asc or desc (default desc)")
	eventsListCmd.Flags().Int("limit", 50, "maximum events to return")
	eventsListCmd.Flags().Int("offset", 0, "events to skip")

	eventsRelatedCmd.Flags().Int("limit", 100, "maximum events to return")

	eventsEmitCmd.Flags().String("severity", "", "severity (inferred from the type when empty)")
	eventsEmitCmd.Flags().String("category", "", "category (inferred from the type when empty)")
	eventsEmitCmd.Flags().String("agent", "", "agent name")
	eventsEmitCmd.Flags().String("workflow", "", "workflow id")
	eventsEmitCmd.Flags().String("correlation", "", "correlation id")
	eventsEmitCmd.Flags().String("message", "", "message (humanized type when empty)")
	eventsEmitCmd.Flags().String("payload", "", "JSON payload")

	eventsCmd.AddCommand(eventsListCmd, eventsShowCmd, eventsRelatedCmd, eventsEmitCmd)
}

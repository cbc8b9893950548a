package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/events"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/ui"
)

// watchFilter narrows the live stream client-side.
type watchFilter struct {
	agent      string
	typePrefix string
	workflow   string
}

func (f watchFilter) match(e *model.Event) bool {
	if f.agent != "" && e.AgentName != f.agent {
		return false
	}
	if f.typePrefix != "" && !strings.HasPrefix(e.EventType, f.typePrefix) {
		return false
	}
	if f.workflow != "" && e.WorkflowID != f.workflow {
		return false
	}
	return true
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow appended events live over NATS",
	GroupID: "events",
	// watch talks to NATS only; it needs no store.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			return fmt.Errorf("no NATS URL: set --nats-url or ACE_NATS_URL")
		}
		f := watchFilter{}
		f.agent, _ = cmd.Flags().GetString("agent")
		f.typePrefix, _ = cmd.Flags().GetString("type")
		f.workflow, _ = cmd.Flags().GetString("workflow")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchNATS(ctx, natsURL, f)
	},
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("ACE_NATS_URL"), "NATS server URL")
	watchCmd.Flags().String("agent", "", "only events from this agent")
	watchCmd.Flags().String("type", "", "only events whose type starts with this prefix")
	watchCmd.Flags().String("workflow", "", "only events of this workflow")
}

// watchNATS subscribes to every event subject and prints matching events
// until ctx is cancelled.
func watchNATS(ctx context.Context, natsURL string, f watchFilter) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.SubjectAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", events.SubjectAll)
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			e, err := events.Decode(data)
			if err != nil {
				log.Printf("skipping malformed event: %v", err)
				continue
			}
			if !f.match(e) {
				continue
			}
			if jsonOutput {
				printJSONLine(e)
			} else {
				printEventLine(e)
			}
		}
	}
}

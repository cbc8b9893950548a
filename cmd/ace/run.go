package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/agent"
)

var runCmd = &cobra.Command{
	Use:     "run <agent>",
	Short:   "Execute one agent with a JSON input",
	GroupID: "agents",
	Long: `Execute one agent with a JSON input object.

Agents: scriptwriter, editor, publisher.

Examples:
  ace run scriptwriter --input '{"product_id":"p1","pattern_id":"c1"}'
  ace run editor --input-file editor.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("input")
		file, _ := cmd.Flags().GetString("input-file")
		input, err := readInput(raw, file)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			ag, ok := a.suite.Registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown agent %q (have %s)", args[0], strings.Join(a.suite.Registry.Names(), ", "))
			}
			out, err := ag.Execute(cmd.Context(), input)
			if err != nil {
				return err
			}
			printJSON(out)
			return nil
		})
	},
}

func init() {
	runCmd.Flags().String("input", "", "agent input as a JSON object")
	runCmd.Flags().String("input-file", "", "read the agent input from a JSON file ('-' for stdin)")
}

func readInput(raw, file string) (map[string]any, error) {
	var data []byte
	switch {
	case raw != "" && file != "":
		return nil, fmt.Errorf("--input and --input-file are mutually exclusive")
	case raw != "":
		data = []byte(raw)
	case file == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		data = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		data = b
	default:
		return map[string]any{}, nil
	}
	input := map[string]any{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return input, nil
}

var pipelineCmd = &cobra.Command{
	Use:     "pipeline",
	Short:   "Run script, render and publish as one workflow",
	GroupID: "agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := agent.PipelineInput{}
		in.ProductID, _ = cmd.Flags().GetString("product")
		in.PatternID, _ = cmd.Flags().GetString("pattern")
		in.Platforms, _ = cmd.Flags().GetStringSlice("platform")
		in.Variation, _ = cmd.Flags().GetString("variation")
		in.Style, _ = cmd.Flags().GetString("style")
		in.FailFast, _ = cmd.Flags().GetBool("fail-fast")
		in.WorkflowID, _ = cmd.Flags().GetString("workflow-id")

		return withApp(cmd.Context(), func(a *app) error {
			res, err := a.suite.Pipeline.Run(cmd.Context(), in)
			if res != nil {
				if jsonOutput {
					printJSON(res)
				} else {
					printPipelineResult(res)
				}
			}
			return err
		})
	},
}

func init() {
	pipelineCmd.Flags().String("product", "", "product id (required)")
	pipelineCmd.Flags().String("pattern", "", "creative pattern id (required)")
	pipelineCmd.Flags().StringSlice("platform", []string{"tiktok"}, "target platforms (tiktok, instagram, youtube)")
	pipelineCmd.Flags().String("variation", "", "experiment variation label")
	pipelineCmd.Flags().String("style", "", "render style hint")
	pipelineCmd.Flags().Bool("fail-fast", false, "stop publishing at the first failing platform")
	pipelineCmd.Flags().String("workflow-id", "", "workflow id (generated when empty)")
	_ = pipelineCmd.MarkFlagRequired("product")
	_ = pipelineCmd.MarkFlagRequired("pattern")
}

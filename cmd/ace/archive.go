package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:     "archive",
	Short:   "Export the event log to storage as compressed JSONL",
	GroupID: "system",
	Long: `Export every event to the storage backend as zstd-compressed JSONL.

With --retention (or ACE_ARCHIVE_RETENTION) events older than the retention
are deleted after the upload succeeds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("retention") {
			cfg.Archive.Retention, _ = cmd.Flags().GetDuration("retention")
		}
		return withApp(cmd.Context(), func(a *app) error {
			res, err := a.archiver.Run(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(res)
				return nil
			}
			fmt.Printf("Archived %d events (%d bytes) to %s\n", res.Events, res.Bytes, res.Key)
			if res.URL != "" {
				fmt.Printf("URL:    %s\n", res.URL)
			}
			if res.Pruned > 0 {
				fmt.Printf("Pruned: %d events\n", res.Pruned)
			}
			return nil
		})
	},
}

func init() {
	archiveCmd.Flags().Duration("retention", 0, "delete events older than this after upload (e.g. 720h)")
}

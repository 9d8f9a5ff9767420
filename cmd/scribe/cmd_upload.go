package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/pipeline"
)

func newUploadCommand(cfg config.Config) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Deliver one export file to the memory store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, cfg, args[0], sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Explicit session id (default: derived from title and create time)")

	return cmd
}

func runUpload(cmd *cobra.Command, cfg config.Config, path, sessionID string) error {
	proc := &pipeline.FileProcessor{
		Path:      path,
		Client:    newStoreClient(cfg),
		SessionID: sessionID,
	}

	runner := pipeline.NewRunner(runnerConfig(cfg, false), proc, slog.Default())
	item := pipeline.Item{SourceID: filepath.Base(path), DisplayName: filepath.Base(path)}

	summary, err := runner.Run(cmd.Context(), []pipeline.Item{item})
	if err != nil {
		return err
	}
	att := runner.Attempt(item.SourceID)
	if summary.Error > 0 {
		return fmt.Errorf("upload failed after %d retries: %w", att.RetryCount, att.LastError)
	}

	fmt.Printf("uploaded %s as session %s\n", path, att.SessionID)
	return nil
}

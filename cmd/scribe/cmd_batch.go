package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/pipeline"
	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

type batchFlags struct {
	start  int
	end    int
	dryRun bool
}

func addBatchFlags(cmd *cobra.Command, f *batchFlags) {
	cmd.Flags().IntVar(&f.start, "start", 0, "First order index to process (0-based, inclusive)")
	cmd.Flags().IntVar(&f.end, "end", -1, "Last order index to process (inclusive, default: last)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Enumerate and report without processing")
}

func newBatchCleanCommand(cfg config.Config) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "batch-clean",
		Short: "Normalize every raw export in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cfg)
			if err != nil {
				return err
			}
			proc := &pipeline.CleanProcessor{Repo: repo, Logger: slog.Default()}
			return runBatch(cfg, flags, repo, repository.DirRaw, proc, nil)
		},
	}

	addBatchFlags(cmd, &flags)
	return cmd
}

func newBatchUploadCommand(cfg config.Config) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "batch-upload",
		Short: "Deliver every cleaned export to the memory store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cfg)
			if err != nil {
				return err
			}

			ldg, err := openLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if ldg != nil {
				defer ldg.Close()
			}

			pub := connectEvents(cfg)
			if pub != nil {
				defer pub.Close()
			}

			proc := &pipeline.UploadProcessor{
				Repo:      repo,
				Client:    newStoreClient(cfg),
				Ledger:    ldg,
				SourceDir: repository.DirClean,
				Logger:    slog.Default(),
			}
			return runBatch(cfg, flags, repo, repository.DirClean, proc, pub)
		},
	}

	addBatchFlags(cmd, &flags)
	return cmd
}

func runBatch(cfg config.Config, flags batchFlags, repo *repository.FS, dir string, proc pipeline.Processor, sink pipeline.EventSink) error {
	items, err := pipeline.ListItems(repo, dir)
	if err != nil {
		return err
	}
	selected, err := pipeline.SelectRange(items, flags.start, flags.end)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(runnerConfig(cfg, flags.dryRun), proc, slog.Default())
	if sink != nil {
		runner.SetEvents(sink)
	}
	runner.SetProgress(printProgress(flags.dryRun))

	// Stop between items on interrupt, never mid-attempt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx, selected)
	printSummary(summary)
	if err != nil {
		slog.Warn("batch stopped early", "error", err)
	}
	// Individual item failures surface in the summary only; a non-zero
	// exit is reserved for startup and range errors.
	return nil
}

func printProgress(dryRun bool) func(pipeline.Progress) {
	return func(p pipeline.Progress) {
		switch {
		case dryRun && p.Skipped:
			fmt.Printf("[%d/%d] %s: would skip (already delivered)\n", p.Index, p.Total, p.DisplayName)
		case dryRun:
			fmt.Printf("[%d/%d] %s: would process\n", p.Index, p.Total, p.DisplayName)
		case p.Skipped:
			fmt.Printf("[%d/%d] %s: skipped\n", p.Index, p.Total, p.DisplayName)
		case p.Status == pipeline.StatusFailed:
			fmt.Printf("[%d/%d] %s: failed after %d retries: %v (moved to %s/)\n",
				p.Index, p.Total, p.DisplayName, p.RetryCount, p.Err, repository.DirError)
		default:
			fmt.Printf("[%d/%d] %s: %s\n", p.Index, p.Total, p.DisplayName, p.Status)
		}
	}
}

func printSummary(s pipeline.Summary) {
	fmt.Printf("\n=== Batch Summary ===\n")
	fmt.Printf("Run ID:  %s\n", s.RunID)
	fmt.Printf("Total:   %d\n", s.Total)
	fmt.Printf("Success: %d\n", s.Success)
	fmt.Printf("Skipped: %d\n", s.Skipped)
	fmt.Printf("Errors:  %d\n", s.Error)
	if s.DryRun {
		fmt.Printf("Mode: DRY RUN (nothing delivered)\n")
	}
	for _, name := range s.MoveFailures {
		fmt.Printf("move failed: %s\n", name)
	}
}

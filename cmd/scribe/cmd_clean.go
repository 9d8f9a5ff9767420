package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/normalize"
	"github.com/MikeSquared-Agency/scribe/internal/repository"
)

func newCleanCommand(cfg config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "clean <file>",
		Short: "Normalize one export file into cleaned JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cfg, args[0], outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: clean/ in the data directory)")

	return cmd
}

func runClean(cfg config.Config, path, outPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := normalize.Validate(data); err != nil {
		return err
	}

	records, err := normalize.Normalize(data)
	if err != nil {
		return err
	}

	if outPath != "" && len(records) > 1 {
		return fmt.Errorf("%s holds %d conversations, --output only supports one", path, len(records))
	}

	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	for i, rec := range records {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal cleaned record: %w", err)
		}

		if outPath != "" {
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Printf("cleaned %d messages -> %s\n", len(rec.Messages), outPath)
			continue
		}

		name := base
		if len(records) > 1 {
			name = fmt.Sprintf("%s-%d.json", strings.TrimSuffix(base, ".json"), i)
		}
		if err := repo.Write(repository.DirClean, name, out); err != nil {
			return err
		}
		fmt.Printf("cleaned %d messages -> %s\n", len(rec.Messages), filepath.Join(repo.Root(), repository.DirClean, name))
	}

	return nil
}

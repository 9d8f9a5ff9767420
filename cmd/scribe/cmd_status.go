package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/config"
)

func newStatusCommand(cfg config.Config) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the memory store's post-ingestion work queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := newStoreClient(cfg).Status(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Printf("Work units: %d total, %d completed, %d in progress, %d pending\n",
				status.TotalWorkUnits,
				status.CompletedWorkUnits,
				status.InProgressWorkUnits,
				status.PendingWorkUnits,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Restrict the queue view to matching work units")

	return cmd
}

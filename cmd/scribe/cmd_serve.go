package main

import (
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/scribe/internal/api"
	"github.com/MikeSquared-Agency/scribe/internal/config"
)

func newServeCommand(cfg config.Config) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepo(cfg)
			if err != nil {
				return err
			}
			srv := api.NewServer(port, repo, newStoreClient(cfg))
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "Listen port")

	return cmd
}

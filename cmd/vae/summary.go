package main

import (
	"fmt"
	"os"

	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/spf13/cobra"
	"github.com/teokem/project-work-missmagnum/pkg/vae"
)

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the hyperparameters and the layers of the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, _, err := modelContext()
			if err != nil {
				return err
			}
			fmt.Println(commandline.SprintContextSettings(ctx))
			fmt.Println()
			return vae.NewTopology(cfg).Render(os.Stdout)
		},
	}
}

// vae builds and trains a variational autoencoder on a synthetic masked binary dataset.
//
// The model hyperparameters are set with --set, e.g.:
//
//	vae summary --set="vae_input_dim=64;vae_encoder_widths=32,8;vae_dropout_rates=0.1,0.1"
//	vae train --steps=2000 --set="vae_input_dim=64;vae_encoder_widths=32,8;vae_dropout_rates=0,0;optimizer=adam"
//
// Run `vae summary` to list all hyperparameters and their default values.
package main

import (
	"flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vae",
		Short:         "Variational autoencoder on GoMLX",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
	rootCmd.PersistentFlags().StringVar(&flagSettings, "set", "",
		`Hyperparameters as a list of "param=value" separated by ";", or "file:<path>" with one setting per line.`)

	rootCmd.AddCommand(newSummaryCmd(), newTrainCmd())
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("vae: %+v", err)
		klog.Flush()
		os.Exit(1)
	}
}

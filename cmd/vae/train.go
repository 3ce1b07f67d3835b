package main

import (
	"fmt"
	"os"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"github.com/spf13/cobra"
	"github.com/teokem/project-work-missmagnum/internal/synthetic"
	"github.com/teokem/project-work-missmagnum/pkg/vae"
)

type trainFlags struct {
	steps, batchSize, numPrototypes, numSamples int
	keepRate                                    float64
	dataSeed                                    uint64
}

func newTrainCmd() *cobra.Command {
	var flags trainFlags
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the model on a synthetic masked binary dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exceptions.TryCatch[error](func() { trainModel(flags) })
		},
	}
	cmd.Flags().IntVar(&flags.steps, "steps", 1000, "Number of training steps.")
	cmd.Flags().IntVar(&flags.batchSize, "batch", 64, "Batch size.")
	cmd.Flags().IntVar(&flags.numPrototypes, "prototypes", 4, "Number of clusters in the synthetic data.")
	cmd.Flags().Float64Var(&flags.keepRate, "keep", 0.8, "Probability of a feature being included in the mask.")
	cmd.Flags().Uint64Var(&flags.dataSeed, "data_seed", 42, "Seed of the synthetic data.")
	cmd.Flags().IntVar(&flags.numSamples, "samples", 2, "Number of examples to generate from the prior after training.")
	return cmd
}

// trainModel panics on errors.
func trainModel(flags trainFlags) {
	ctx, cfg, paramsSet, err := modelContext()
	must.M(err)
	if len(paramsSet) > 0 {
		fmt.Println(commandline.SprintModifiedContextSettings(ctx, paramsSet))
	}

	backend := backends.MustNew()
	fmt.Printf("Backend %q:\t%s\n", backend.Name(), backend.Description())
	model := must.M1(vae.NewWithContext(backend, ctx, cfg))
	must.M(model.Topology().Render(os.Stdout))

	dataConfig := synthetic.Config{
		InputDim:      cfg.InputDim,
		BatchSize:     flags.batchSize,
		NumPrototypes: flags.numPrototypes,
		KeepRate:      flags.keepRate,
		Seed:          flags.dataSeed,
		DType:         cfg.DType,
	}
	trainDS := must.M1(synthetic.New("train", dataConfig))
	dataConfig.Seed++
	evalDS := must.M1(synthetic.New("eval", dataConfig))

	loop := train.NewLoop(model.Trainer())
	commandline.AttachProgressBar(loop)
	metrics := must.M1(loop.RunSteps(trainDS, flags.steps))
	for ii, m := range metrics {
		fmt.Printf("\t%s: %s\n", model.Trainer().TrainMetrics()[ii].Name(), m)
	}

	x, mask := evalDS.Batch()
	fmt.Printf("Evaluation loss: %.4f\n", must.M1(model.Loss(x, mask)))
	if flags.numSamples > 0 {
		samples := must.M1(model.Generate(flags.numSamples))
		printSamples(samples)
	}
}

// printSamples prints the generated probabilities rounded to bits.
func printSamples(samples *tensors.Tensor) {
	numFeatures := samples.Shape().Dimensions[1]
	var values []float64
	switch flat := samples.Value().(type) {
	case [][]float32:
		for _, row := range flat {
			for _, v := range row {
				values = append(values, float64(v))
			}
		}
	case [][]float64:
		for _, row := range flat {
			values = append(values, row...)
		}
	}
	for start := 0; start < len(values); start += numFeatures {
		row := make([]byte, numFeatures)
		for ii, v := range values[start : start+numFeatures] {
			row[ii] = '0'
			if v >= 0.5 {
				row[ii] = '1'
			}
		}
		fmt.Printf("Sample: %s\n", row)
	}
}

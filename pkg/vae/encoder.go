package vae

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"
)

// Scopes of the model variables.
const (
	EncoderScope        = "encoder"
	DecoderScope        = "decoder"
	MeanScope           = "mean"
	LogVarianceScope    = "log_variance"
	ReconstructionScope = "reconstruction"
)

// Encoder is the recognition network: it maps x, shaped [batchSize, InputDim], to the parameters of the
// approximate posterior, mean and log-variance, both shaped [batchSize, LatentDim].
//
// Variables are created under the EncoderScope of ctx. Dropout is only active if ctx.IsTraining.
func Encoder(ctx *context.Context, c Config, x *Node) (mean, logVar *Node) {
	checkFeatures("encoder input", x, c.InputDim)
	ctx = withInitializer(ctx, c).In(EncoderScope)
	outputs := EncoderPipeline(c).Apply(ctx, x)
	return outputs[0], outputs[1]
}

// checkFeatures panics with an error wrapping ErrShapeMismatch if x is not shaped [batchSize, features].
func checkFeatures(name string, x *Node, features int) {
	if x.Rank() != 2 || x.Shape().Dimensions[1] != features {
		panic(errors.Wrapf(ErrShapeMismatch, "%s must be shaped [batch_size, %d], got %s", name, features, x.Shape()))
	}
}

// checkSameShape panics with an error wrapping ErrShapeMismatch if the shapes of a and b differ.
func checkSameShape(nameA string, a *Node, nameB string, b *Node) {
	if !a.Shape().Equal(b.Shape()) {
		panic(errors.Wrapf(ErrShapeMismatch, "%s (%s) and %s (%s) must have the same shape",
			nameA, a.Shape(), nameB, b.Shape()))
	}
}

package vae

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Decoder is the generator network. It takes the posterior parameters produced by Encoder, samples a
// latent vector with Reparameterize, and returns the reconstruction shaped [batchSize, InputDim],
// with values in [0, 1].
func Decoder(ctx *context.Context, c Config, mean, logVar *Node) *Node {
	z := Reparameterize(ctx, mean, logVar)
	return DecodeLatent(ctx, c, z)
}

// DecodeLatent maps latent vectors z, shaped [batchSize, LatentDim], to the reconstruction.
//
// Variables are created under the DecoderScope of ctx.
func DecodeLatent(ctx *context.Context, c Config, z *Node) *Node {
	checkFeatures("latent vector", z, c.LatentDim())
	ctx = withInitializer(ctx, c).In(DecoderScope)
	return DecoderPipeline(c).Apply(ctx, z)[0]
}

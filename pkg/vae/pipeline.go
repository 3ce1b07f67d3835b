package vae

import (
	"fmt"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// LayerSpec describes one dense layer of a Pipeline.
type LayerSpec struct {
	// Name of the context scope holding the layer variables.
	Name string

	// Width is the number of output units.
	Width int

	Activation activations.Type

	// DropoutRate applied to the output of hidden layers during training. Ignored for heads.
	DropoutRate float64
}

// String implements fmt.Stringer.
func (l LayerSpec) String() string {
	return fmt.Sprintf("%s(width=%d, activation=%s, dropout=%g)", l.Name, l.Width, l.Activation, l.DropoutRate)
}

// Pipeline is a stack of hidden layers followed by one or more terminal heads, each head applied to the
// output of the last hidden layer.
//
// Hidden layers are dense, followed by the activation and dropout. Heads are dense followed by the
// activation, and never use dropout.
type Pipeline struct {
	Layers []LayerSpec
	Heads  []LayerSpec
}

// Apply builds the pipeline on x and returns one output per head.
//
// It panics if the pipeline has no heads.
func (p Pipeline) Apply(ctx *context.Context, x *Node) []*Node {
	if len(p.Heads) == 0 {
		exceptions.Panicf("vae.Pipeline requires at least one head, got layers %v", p.Layers)
	}
	g := x.Graph()
	for _, spec := range p.Layers {
		x = layers.Dense(ctx.In(spec.Name), x, true, spec.Width)
		x = activations.Apply(spec.Activation, x)
		if spec.DropoutRate > 0 {
			x = layers.DropoutNormalize(ctx.In(spec.Name), x, Scalar(g, x.DType(), spec.DropoutRate), true)
		}
	}
	outputs := make([]*Node, len(p.Heads))
	for ii, spec := range p.Heads {
		head := layers.Dense(ctx.In(spec.Name), x, true, spec.Width)
		outputs[ii] = activations.Apply(spec.Activation, head)
	}
	return outputs
}

// EncoderPipeline returns the encoder layers: one hidden layer per encoder width but the last, and the
// "mean" and "log_variance" linear heads sized to the latent dimension.
func EncoderPipeline(c Config) Pipeline {
	numHidden := len(c.EncoderWidths) - 1
	p := Pipeline{Layers: make([]LayerSpec, 0, max(numHidden, 0))}
	for ii := range numHidden {
		p.Layers = append(p.Layers, LayerSpec{
			Name:        fmt.Sprintf("encoder_%d", ii),
			Width:       c.EncoderWidths[ii],
			Activation:  c.Activation,
			DropoutRate: c.DropoutRates[ii],
		})
	}
	latentDim := c.LatentDim()
	p.Heads = []LayerSpec{
		{Name: MeanScope, Width: latentDim, Activation: activations.TypeNone},
		{Name: LogVarianceScope, Width: latentDim, Activation: activations.TypeNone},
	}
	return p
}

// DecoderPipeline returns the decoder layers, applied to a sampled latent vector: one hidden layer for
// each resolved decoder width after the first, and a sigmoid "reconstruction" head of InputDim units.
func DecoderPipeline(c Config) Pipeline {
	widths := c.ResolvedDecoderWidths()
	p := Pipeline{Layers: make([]LayerSpec, 0, max(len(widths)-1, 0))}
	for jj := 1; jj < len(widths); jj++ {
		p.Layers = append(p.Layers, LayerSpec{
			Name:        fmt.Sprintf("decoder_%d", jj),
			Width:       widths[jj],
			Activation:  c.Activation,
			DropoutRate: c.DropoutRates[jj],
		})
	}
	p.Heads = []LayerSpec{{Name: ReconstructionScope, Width: c.InputDim, Activation: activations.TypeSigmoid}}
	return p
}

package vae

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// NormalInitializer returns a variable initializer that draws every weight and bias from N(0, stddev²),
// using the context random number generator, so it is reproducible when the context is seeded.
//
// Non-float variables are initialized with zeros.
func NormalInitializer(ctx *context.Context, stddev float64) context.VariableInitializer {
	return func(g *Graph, shape shapes.Shape) *Node {
		if !shape.DType.IsFloat() {
			return Zeros(g, shape)
		}
		return MulScalar(ctx.RandomNormal(g, shape), stddev)
	}
}

// withInitializer returns a reference to ctx configured to initialize variables as described by the config.
func withInitializer(ctx *context.Context, c Config) *context.Context {
	return ctx.WithInitializer(NormalInitializer(ctx, c.InitStddev))
}

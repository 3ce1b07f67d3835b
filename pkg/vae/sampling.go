package vae

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Reparameterize samples z ~ N(mean, exp(logVar)) as mean + exp(logVar/2)·ε, with ε ~ N(0, I) drawn
// from the context random number generator. A new ε is drawn at every execution of the graph.
//
// The sample is differentiable with respect to mean and logVar. It panics if their shapes differ.
func Reparameterize(ctx *context.Context, mean, logVar *Node) *Node {
	checkSameShape("mean", mean, "logVar", logVar)
	noise := ctx.RandomNormal(mean.Graph(), mean.Shape())
	return SampleWithNoise(mean, logVar, noise)
}

// SampleWithNoise is the deterministic part of Reparameterize: it returns mean + exp(logVar/2)·noise.
func SampleWithNoise(mean, logVar, noise *Node) *Node {
	checkSameShape("mean", mean, "logVar", logVar)
	checkSameShape("mean", mean, "noise", noise)
	stddev := Exp(DivScalar(logVar, 2))
	return Add(mean, Mul(stddev, noise))
}

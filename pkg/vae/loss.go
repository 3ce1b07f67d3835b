package vae

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// ProbabilityEpsilon bounds the reconstruction probabilities to [ProbabilityEpsilon, 1-ProbabilityEpsilon]
// before taking logarithms in the binary cross-entropy.
const ProbabilityEpsilon = 1e-7

// ReconstructionTerm returns, per example, the sum over features of the binary cross-entropy between x
// and its reconstruction, each feature weighted by mask. The result is shaped [batchSize].
//
// mask has the same shape as x, usually with 1 for features to include and 0 for the ones to ignore.
func ReconstructionTerm(x, mask, reconstruction *Node) *Node {
	checkSameShape("x", x, "reconstruction", reconstruction)
	checkSameShape("x", x, "mask", mask)
	p := ClipScalar(reconstruction, ProbabilityEpsilon, 1-ProbabilityEpsilon)
	x = ConvertDType(x, p.DType())
	mask = ConvertDType(mask, p.DType())
	// Element-wise: -(x·log(p) + (1-x)·log(1-p)).
	crossEntropy := Neg(Add(
		Mul(x, Log(p)),
		Mul(OneMinus(x), Log(OneMinus(p)))))
	return ReduceSum(Mul(crossEntropy, mask), -1)
}

// KLDivergence returns, per example, the closed-form Kullback-Leibler divergence between N(mean, exp(logVar))
// and the N(0, I) prior: -0.5·Σ(1 + logVar - mean² - exp(logVar)). The result is shaped [batchSize].
func KLDivergence(mean, logVar *Node) *Node {
	checkSameShape("mean", mean, "logVar", logVar)
	terms := Sub(Sub(OnePlus(logVar), Square(mean)), Exp(logVar))
	return MulScalar(ReduceSum(terms, -1), -0.5)
}

// Objective is the negative evidence lower bound used to train the VAE: the per-example sum of
// ReconstructionTerm and KLDivergence, averaged over the batch. It returns a scalar.
//
// All inputs are explicit: the original x, its mask, the reconstruction and the posterior parameters
// (mean and logVar) the reconstruction was sampled from.
func Objective(x, mask, reconstruction, mean, logVar *Node) *Node {
	perExample := Add(ReconstructionTerm(x, mask, reconstruction), KLDivergence(mean, logVar))
	return ReduceAllMean(perExample)
}

package vae

import (
	"math"
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func mustConfig(t *testing.T, options ...Option) Config {
	cfg, err := NewConfig(options...)
	require.NoError(t, err)
	return cfg
}

func TestEncoderShapes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, widths := range [][]int{{3}, {8, 3}, {16, 8, 3}} {
		cfg := mustConfig(t, WithInputDim(10), WithEncoderWidths(widths...),
			WithDropoutRates(make([]float64, Config{EncoderWidths: widths}.RequiredDropoutRates())...))
		ctx := context.New()
		ctx.SetRNGStateFromSeed(42)
		exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) []*Node {
			mean, logVar := Encoder(ctx, cfg, x)
			return []*Node{mean, logVar}
		})
		for _, batchSize := range []int{1, 5} {
			x := tensors.FromShape(shapes.Make(dtypes.Float32, batchSize, cfg.InputDim))
			mean, logVar := exec.MustExec2(x)
			assert.Equalf(t, []int{batchSize, 3}, mean.Shape().Dimensions, "encoder widths %v", widths)
			assert.Equalf(t, []int{batchSize, 3}, logVar.Shape().Dimensions, "encoder widths %v", widths)
		}
	}
}

func TestEncoderInputShape(t *testing.T) {
	cfg := mustConfig(t, WithInputDim(10), WithEncoderWidths(3))
	g := NewGraph(graphtest.BuildTestBackend(), "encoder_input_shape")
	x := Const(g, [][]float32{{1, 0}})
	err := exceptions.TryCatch[error](func() { Encoder(context.New(), cfg, x) })
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReparameterize(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, mean, logVar *Node) *Node {
		return Reparameterize(ctx, mean, logVar)
	})

	// A very negative log-variance collapses the sample to the mean.
	mean := [][]float32{{1.5, -2, 0}, {0.25, 3, -1}}
	logVar := [][]float32{{-100, -100, -100}, {-100, -100, -100}}
	z := exec.MustExec1(mean, logVar)
	assert.InDeltaSlice(t, []float32{1.5, -2, 0, 0.25, 3, -1}, tensors.MustCopyFlatData[float32](z), 1e-6)

	// Samples follow N(mean, exp(logVar)).
	const numSamples = 10_000
	for _, tc := range []struct{ mean, variance float64 }{{0, 1}, {3, 4}, {-1, 0.25}} {
		meanT := tensors.FromFlatDataAndDimensions(constantSlice(numSamples, tc.mean), numSamples, 1)
		logVarT := tensors.FromFlatDataAndDimensions(constantSlice(numSamples, math.Log(tc.variance)), numSamples, 1)
		samples := tensors.MustCopyFlatData[float64](exec.MustExec1(meanT, logVarT))
		gotMean, gotStddev := stat.MeanStdDev(samples, nil)
		assert.InDeltaf(t, tc.mean, gotMean, 0.1, "mean of samples of N(%g, %g)", tc.mean, tc.variance)
		assert.InDeltaf(t, math.Sqrt(tc.variance), gotStddev, 0.1, "stddev of samples of N(%g, %g)", tc.mean, tc.variance)
	}

	// A new noise is drawn at each execution.
	zeros := tensors.FromFlatDataAndDimensions(constantSlice(4, 0), 1, 4)
	first := tensors.MustCopyFlatData[float64](exec.MustExec1(zeros, zeros))
	second := tensors.MustCopyFlatData[float64](exec.MustExec1(zeros, zeros))
	assert.NotEqual(t, first, second)
}

func constantSlice(n int, value float64) []float64 {
	values := make([]float64, n)
	for ii := range values {
		values[ii] = value
	}
	return values
}

func TestSampleWithNoise(t *testing.T) {
	graphtest.RunTestGraphFn(t, "SampleWithNoise", func(g *Graph) (inputs, outputs []*Node) {
		mean := Const(g, [][]float32{{1, -1}})
		logVar := Const(g, [][]float32{{0, float32(math.Log(4))}})
		noise := Const(g, [][]float32{{0.5, 2}})
		inputs = []*Node{mean, logVar, noise}
		outputs = []*Node{SampleWithNoise(mean, logVar, noise)}
		return
	}, []any{[][]float32{{1.5, 3}}}, 1e-5)

	g := NewGraph(graphtest.BuildTestBackend(), "sample_shape_mismatch")
	mean := Const(g, [][]float32{{1, -1}})
	logVar := Const(g, [][]float32{{0}})
	err := exceptions.TryCatch[error](func() { SampleWithNoise(mean, logVar, mean) })
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDecoder(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	cfg := mustConfig(t, WithInputDim(7), WithEncoderWidths(16, 8, 4), WithDropoutRates(0.1, 0.2, 0.3))
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, mean, logVar *Node) *Node {
		return Decoder(ctx, cfg, mean, logVar)
	})
	for _, batchSize := range []int{1, 9} {
		// Arbitrary finite values, some large.
		meanValues := make([]float32, batchSize*4)
		logVarValues := make([]float32, batchSize*4)
		for ii := range meanValues {
			meanValues[ii] = float32((ii%7)-3) * 10
			logVarValues[ii] = float32((ii%5)-2) * 2
		}
		mean := tensors.FromFlatDataAndDimensions(meanValues, batchSize, 4)
		logVar := tensors.FromFlatDataAndDimensions(logVarValues, batchSize, 4)
		reconstruction := exec.MustExec1(mean, logVar)
		require.Equal(t, []int{batchSize, 7}, reconstruction.Shape().Dimensions)
		for _, v := range tensors.MustCopyFlatData[float32](reconstruction) {
			require.Truef(t, v >= 0 && v <= 1, "reconstruction value %g out of [0, 1]", v)
		}
	}

	// Variables are created for the hidden layers and the reconstruction head only.
	var scopes []string
	ctx.EnumerateVariables(func(v *context.Variable) {
		if strings.HasPrefix(v.Scope(), "/"+DecoderScope) {
			scopes = append(scopes, v.Scope())
		}
	})
	assert.Len(t, scopes, 3*2) // decoder_1, decoder_2 and reconstruction: weights and biases.
}

func TestDecodeLatentShape(t *testing.T) {
	cfg := mustConfig(t, WithInputDim(10), WithEncoderWidths(3))
	g := NewGraph(graphtest.BuildTestBackend(), "decoder_latent_shape")
	z := Const(g, [][]float32{{1, 0}})
	err := exceptions.TryCatch[error](func() { DecodeLatent(context.New(), cfg, z) })
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestInitializer(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	cfg := mustConfig(t, WithInputDim(200), WithEncoderWidths(100))
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) []*Node {
		mean, logVar := Encoder(ctx, cfg, x)
		return []*Node{mean, logVar}
	})
	_ = exec.MustExec(tensors.FromShape(shapes.Make(dtypes.Float32, 1, cfg.InputDim)))

	// Both weights and biases are drawn from N(0, 0.05²).
	var values []float64
	ctx.EnumerateVariables(func(v *context.Variable) {
		if !strings.HasPrefix(v.Scope(), "/"+EncoderScope) {
			return
		}
		for _, value := range tensors.MustCopyFlatData[float32](v.MustValue()) {
			values = append(values, float64(value))
		}
	})
	require.Len(t, values, 2*(200*100+100))
	mean, stddev := stat.MeanStdDev(values, nil)
	assert.InDelta(t, 0, mean, 0.005)
	assert.InDelta(t, DefaultInitStddev, stddev, 0.005)
}

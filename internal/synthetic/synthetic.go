// Package synthetic generates masked binary datasets for training and testing the VAE.
//
// Each example is drawn from one of a few random prototypes: a vector of per-feature Bernoulli probabilities.
// A mask hides a random subset of the features of each example.
package synthetic

import (
	"math/rand/v2"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dataset implements train.Dataset, yielding inputs [x, mask] and no labels.
//
// It loops forever: Reset restarts the sequence of batches from the seed.
type Dataset struct {
	name       string
	inputDim   int
	batchSize  int
	keepRate   float64
	seed       uint64
	dtype      dtypes.DType
	prototypes [][]float64

	rng *rand.Rand
}

// Config of a Dataset.
type Config struct {
	// InputDim is the number of binary features.
	InputDim int

	BatchSize int

	// NumPrototypes is the number of clusters examples are drawn from.
	NumPrototypes int

	// KeepRate is the probability that a feature is included in the mask.
	KeepRate float64

	Seed  uint64
	DType dtypes.DType
}

// New creates a Dataset. The prototypes are fixed by the seed.
func New(name string, c Config) (*Dataset, error) {
	if c.InputDim <= 0 || c.BatchSize <= 0 || c.NumPrototypes <= 0 {
		return nil, errors.Errorf("synthetic dataset requires positive input dim, batch size and number of prototypes, got %+v", c)
	}
	if c.KeepRate <= 0 || c.KeepRate > 1 {
		return nil, errors.Errorf("synthetic dataset keep rate must be in (0, 1], got %g", c.KeepRate)
	}
	if c.DType != dtypes.Float32 && c.DType != dtypes.Float64 {
		return nil, errors.Errorf("synthetic dataset supports only float32 and float64, got %s", c.DType)
	}
	ds := &Dataset{
		name:      name,
		inputDim:  c.InputDim,
		batchSize: c.BatchSize,
		keepRate:  c.KeepRate,
		seed:      c.Seed,
		dtype:     c.DType,
	}

	// Beta(0.5, 0.5) pushes the probabilities towards 0 and 1, so prototypes are well separated.
	beta := distuv.Beta{Alpha: 0.5, Beta: 0.5, Src: rand.NewPCG(c.Seed, 0)}
	ds.prototypes = make([][]float64, c.NumPrototypes)
	for ii := range ds.prototypes {
		probs := make([]float64, c.InputDim)
		for jj := range probs {
			probs[jj] = beta.Rand()
		}
		ds.prototypes[ii] = probs
	}
	ds.Reset()
	return ds, nil
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// Reset implements train.Dataset.
func (ds *Dataset) Reset() {
	ds.rng = rand.New(rand.NewPCG(ds.seed, 1))
}

// Yield implements train.Dataset. The inputs are x and mask, both shaped [batchSize, inputDim].
func (ds *Dataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	spec = ds
	x, mask := ds.Batch()
	inputs = []*tensors.Tensor{x, mask}
	return
}

// Batch returns the next batch of examples and their masks.
func (ds *Dataset) Batch() (x, mask *tensors.Tensor) {
	xData, maskData := ds.sample()
	if ds.dtype == dtypes.Float32 {
		return tensors.FromFlatDataAndDimensions(toFloat32(xData), ds.batchSize, ds.inputDim),
			tensors.FromFlatDataAndDimensions(toFloat32(maskData), ds.batchSize, ds.inputDim)
	}
	return tensors.FromFlatDataAndDimensions(xData, ds.batchSize, ds.inputDim),
		tensors.FromFlatDataAndDimensions(maskData, ds.batchSize, ds.inputDim)
}

func (ds *Dataset) sample() (x, mask []float64) {
	size := ds.batchSize * ds.inputDim
	x = make([]float64, size)
	mask = make([]float64, size)
	keep := distuv.Bernoulli{P: ds.keepRate, Src: ds.rng}
	for example := range ds.batchSize {
		probs := ds.prototypes[ds.rng.IntN(len(ds.prototypes))]
		for feature, p := range probs {
			idx := example*ds.inputDim + feature
			x[idx] = distuv.Bernoulli{P: p, Src: ds.rng}.Rand()
			mask[idx] = keep.Rand()
		}
	}
	return
}

func toFloat32(values []float64) []float32 {
	converted := make([]float32, len(values))
	for ii, v := range values {
		converted[ii] = float32(v)
	}
	return converted
}

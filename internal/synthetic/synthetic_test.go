package synthetic

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestDataset(t *testing.T) {
	ds, err := New("test", Config{InputDim: 50, BatchSize: 200, NumPrototypes: 3, KeepRate: 0.7, Seed: 42, DType: dtypes.Float32})
	require.NoError(t, err)
	assert.Equal(t, "test", ds.Name())

	spec, inputs, labels, err := ds.Yield()
	require.NoError(t, err)
	assert.Equal(t, ds, spec)
	assert.Nil(t, labels)
	require.Len(t, inputs, 2)
	for _, input := range inputs {
		assert.Equal(t, dtypes.Float32, input.DType())
		assert.Equal(t, []int{200, 50}, input.Shape().Dimensions)
		for _, v := range tensors.MustCopyFlatData[float32](input) {
			require.Truef(t, v == 0 || v == 1, "value %g is not binary", v)
		}
	}

	mask := tensors.MustCopyFlatData[float32](inputs[1])
	maskValues := make([]float64, len(mask))
	for ii, v := range mask {
		maskValues[ii] = float64(v)
	}
	assert.InDelta(t, 0.7, stat.Mean(maskValues, nil), 0.02)

	// Reset restarts the same sequence.
	ds.Reset()
	x1, _ := ds.Batch()
	ds.Reset()
	x2, _ := ds.Batch()
	assert.Equal(t, tensors.MustCopyFlatData[float32](x1), tensors.MustCopyFlatData[float32](x2))
	x3, _ := ds.Batch()
	assert.NotEqual(t, tensors.MustCopyFlatData[float32](x2), tensors.MustCopyFlatData[float32](x3))
}

func TestDatasetFloat64(t *testing.T) {
	ds, err := New("test", Config{InputDim: 4, BatchSize: 3, NumPrototypes: 1, KeepRate: 1, DType: dtypes.Float64})
	require.NoError(t, err)
	x, mask := ds.Batch()
	assert.Equal(t, dtypes.Float64, x.DType())
	assert.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, tensors.MustCopyFlatData[float64](mask))
}

func TestDatasetErrors(t *testing.T) {
	valid := Config{InputDim: 4, BatchSize: 3, NumPrototypes: 1, KeepRate: 0.5, DType: dtypes.Float32}
	for name, modify := range map[string]func(c *Config){
		"input dim":  func(c *Config) { c.InputDim = 0 },
		"batch size": func(c *Config) { c.BatchSize = -1 },
		"prototypes": func(c *Config) { c.NumPrototypes = 0 },
		"keep rate":  func(c *Config) { c.KeepRate = 0 },
		"dtype":      func(c *Config) { c.DType = dtypes.Int64 },
	} {
		c := valid
		modify(&c)
		_, err := New("test", c)
		assert.Errorf(t, err, "invalid %s should fail", name)
	}
}

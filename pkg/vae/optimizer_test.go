package vae

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptimizer(t *testing.T) {
	for _, kind := range OptimizerKinds() {
		parsed, err := ParseOptimizer(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)

		// Names match the ones known by GoMLX.
		_, found := optimizers.KnownOptimizers[kind.String()]
		assert.Truef(t, found, "optimizer %q unknown to GoMLX", kind)
	}
	kind, err := ParseOptimizer(" RMSProp ")
	require.NoError(t, err)
	assert.Equal(t, OptimizerRMSProp, kind)

	_, err = ParseOptimizer("adagrad")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "OptimizerKind(1000)", OptimizerKind(1000).String())
}

func TestOptimizerBuild(t *testing.T) {
	for _, kind := range OptimizerKinds() {
		opt, err := Optimizer{Kind: kind, LearningRate: 0.01}.Build()
		require.NoErrorf(t, err, "building %s", kind)
		assert.NotNilf(t, opt, "building %s", kind)
	}
	_, err := Optimizer{Kind: OptimizerAdam, LearningRate: -1}.Build()
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = Optimizer{Kind: OptimizerKind(-1), LearningRate: 0.1}.Build()
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "adamw(lr=0.001)", Optimizer{Kind: OptimizerAdamW, LearningRate: 0.001}.String())
}

package vae

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
)

// Hyperparameters keys used in the context. Activation, optimizer, learning rate and seed use the
// standard GoMLX keys: activations.ParamActivation, optimizers.ParamOptimizer, optimizers.ParamLearningRate
// and context.ParamInitialSeed.
const (
	// ParamInputDim is the number of input features (int).
	ParamInputDim = "vae_input_dim"

	// ParamEncoderWidths is the list of encoder widths ([]int), the last being the latent dimension.
	ParamEncoderWidths = "vae_encoder_widths"

	// ParamDecoderWidths is the list of decoder widths ([]int). Empty means mirror the encoder.
	ParamDecoderWidths = "vae_decoder_widths"

	// ParamDropoutRates is the list of per-position dropout rates ([]float64).
	ParamDropoutRates = "vae_dropout_rates"

	// ParamInitStddev is the standard deviation of the normal initializer (float64).
	ParamInitStddev = "vae_init_stddev"

	// ParamDType is the dtype of the model (string), e.g. "float32".
	ParamDType = "vae_dtype"
)

// DefaultContext creates a context with the default hyperparameters set, so they can be listed and
// overwritten by commandline.ParseContextSettings.
//
// The input dimension and encoder widths have placeholder values that a caller is expected to override.
func DefaultContext() *context.Context {
	ctx := context.New()
	c := DefaultConfig()
	c.InputDim = 784
	c.EncoderWidths = []int{256, 32}
	c.DropoutRates = []float64{0, 0}
	SetParams(ctx, c)
	return ctx
}

// SetParams sets the configuration as hyperparameters of the context.
func SetParams(ctx *context.Context, c Config) {
	decoderWidths := c.DecoderWidths
	if decoderWidths == nil {
		decoderWidths = []int{}
	}
	dropoutRates := c.DropoutRates
	if dropoutRates == nil {
		dropoutRates = []float64{}
	}
	ctx.SetParams(map[string]any{
		ParamInputDim:                c.InputDim,
		ParamEncoderWidths:           c.EncoderWidths,
		ParamDecoderWidths:           decoderWidths,
		ParamDropoutRates:            dropoutRates,
		activations.ParamActivation:  c.Activation.String(),
		optimizers.ParamOptimizer:    c.Optimizer.Kind.String(),
		optimizers.ParamLearningRate: c.Optimizer.LearningRate,
		ParamInitStddev:              c.InitStddev,
		context.ParamInitialSeed:     c.Seed,
		ParamDType:                   c.DType.String(),
	})
}

// ConfigFromContext reads the hyperparameters of the context into a validated Config.
// Missing hyperparameters take the values of DefaultConfig.
func ConfigFromContext(ctx *context.Context) (Config, error) {
	var c Config
	// GetParamOr panics if a hyperparameter can't be converted to the expected type.
	err := exceptions.TryCatch[error](func() { c = mustReadParams(ctx) })
	if err != nil {
		return Config{}, errors.Wrapf(ErrConfiguration, "reading hyperparameters: %v", err)
	}
	if err = c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func mustReadParams(ctx *context.Context) Config {
	c := DefaultConfig()
	c.InputDim = context.GetParamOr(ctx, ParamInputDim, c.InputDim)
	c.EncoderWidths = context.GetParamOr(ctx, ParamEncoderWidths, c.EncoderWidths)
	c.DecoderWidths = context.GetParamOr(ctx, ParamDecoderWidths, c.DecoderWidths)
	c.DropoutRates = context.GetParamOr(ctx, ParamDropoutRates, c.DropoutRates)
	c.InitStddev = context.GetParamOr(ctx, ParamInitStddev, c.InitStddev)
	c.Seed = context.GetParamOr(ctx, context.ParamInitialSeed, c.Seed)
	c.Optimizer.LearningRate = context.GetParamOr(ctx, optimizers.ParamLearningRate, c.Optimizer.LearningRate)

	var err error
	activationName := context.GetParamOr(ctx, activations.ParamActivation, c.Activation.String())
	if c.Activation, err = activations.TypeString(activationName); err != nil {
		exceptions.Panicf("unknown activation %q", activationName)
	}
	if c.Optimizer.Kind, err = ParseOptimizer(context.GetParamOr(ctx, optimizers.ParamOptimizer, c.Optimizer.Kind.String())); err != nil {
		panic(err)
	}
	if c.DType, err = parseDType(context.GetParamOr(ctx, ParamDType, c.DType.String())); err != nil {
		panic(err)
	}
	return c.clone()
}

// MustConfigFromContext is like ConfigFromContext, but panics on error.
func MustConfigFromContext(ctx *context.Context) Config {
	c, err := ConfigFromContext(ctx)
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return c
}

func parseDType(name string) (dtypes.DType, error) {
	switch name {
	case dtypes.Float32.String(), "float32", "f32":
		return dtypes.Float32, nil
	case dtypes.Float64.String(), "float64", "f64":
		return dtypes.Float64, nil
	}
	return dtypes.InvalidDType, errors.Wrapf(ErrConfiguration, "unsupported dtype %q, use float32 or float64", name)
}

package vae

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/pkg/errors"
)

var (
	// ErrConfiguration is wrapped by every error caused by an invalid Config.
	// Test for it with errors.Is.
	ErrConfiguration = errors.New("invalid vae configuration")

	// ErrShapeMismatch is wrapped by errors caused by tensors whose shape doesn't match the model.
	ErrShapeMismatch = errors.New("vae shape mismatch")
)

const (
	// DefaultInitStddev is the standard deviation of the normal distribution used to initialize
	// weights and biases.
	DefaultInitStddev = 0.05

	// DefaultLearningRate used if none is configured.
	DefaultLearningRate = 0.01
)

// Config holds the hyperparameters of a VAE.
//
// It is built with NewConfig (or ConfigFromContext), which validates it. The Model keeps its own copy,
// so changing a Config after the Model is created has no effect.
type Config struct {
	// InputDim is the number of features of each example. Required.
	InputDim int

	// EncoderWidths lists the encoder layer widths. All but the last are hidden layers,
	// the last one is the dimension of the latent space. Required.
	EncoderWidths []int

	// DecoderWidths lists the decoder layer widths, starting with the latent dimension.
	// If empty, it mirrors EncoderWidths.
	DecoderWidths []int

	// DropoutRates is indexed by layer position: encoder hidden layer i uses DropoutRates[i], and the
	// decoder hidden layer at position j (j >= 1) of the decoder widths uses DropoutRates[j].
	// See RequiredDropoutRates.
	DropoutRates []float64

	// Activation used by all hidden layers.
	Activation activations.Type

	// Optimizer used for training.
	Optimizer Optimizer

	// InitStddev is the standard deviation of the normal initializer of all layers.
	InitStddev float64

	// Seed for the random number generator. If 0 the generator is seeded from the clock.
	Seed int64

	// DType of the model parameters and inputs.
	DType dtypes.DType
}

// Option modifies a Config under construction. See NewConfig.
type Option func(c *Config)

// DefaultConfig returns the configuration defaults, without validation.
//
// InputDim and EncoderWidths have no defaults and must be set.
func DefaultConfig() Config {
	return Config{
		Activation: activations.TypeRelu,
		Optimizer:  Optimizer{Kind: OptimizerRMSProp, LearningRate: DefaultLearningRate},
		InitStddev: DefaultInitStddev,
		DType:      dtypes.Float32,
	}
}

// NewConfig applies the options over DefaultConfig and validates the result.
func NewConfig(options ...Option) (Config, error) {
	c := DefaultConfig()
	for _, opt := range options {
		opt(&c)
	}
	c = c.clone()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// WithInputDim sets the number of input features.
func WithInputDim(inputDim int) Option {
	return func(c *Config) { c.InputDim = inputDim }
}

// WithEncoderWidths sets the encoder widths: the last one is the latent dimension.
func WithEncoderWidths(widths ...int) Option {
	return func(c *Config) { c.EncoderWidths = slices.Clone(widths) }
}

// WithDecoderWidths sets explicit decoder widths. The first must be the latent dimension.
func WithDecoderWidths(widths ...int) Option {
	return func(c *Config) { c.DecoderWidths = slices.Clone(widths) }
}

// WithDropoutRates sets the per-position dropout rates.
func WithDropoutRates(rates ...float64) Option {
	return func(c *Config) { c.DropoutRates = slices.Clone(rates) }
}

// WithActivation sets the hidden layers activation.
func WithActivation(activation activations.Type) Option {
	return func(c *Config) { c.Activation = activation }
}

// WithOptimizer sets the optimizer kind, keeping the learning rate.
func WithOptimizer(kind OptimizerKind) Option {
	return func(c *Config) { c.Optimizer.Kind = kind }
}

// WithLearningRate sets the optimizer learning rate.
func WithLearningRate(learningRate float64) Option {
	return func(c *Config) { c.Optimizer.LearningRate = learningRate }
}

// WithInitStddev sets the standard deviation of the weights initializer.
func WithInitStddev(stddev float64) Option {
	return func(c *Config) { c.InitStddev = stddev }
}

// WithSeed sets the random number generator seed.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithDType sets the dtype of parameters and inputs.
func WithDType(dtype dtypes.DType) Option {
	return func(c *Config) { c.DType = dtype }
}

func (c Config) clone() Config {
	c.EncoderWidths = slices.Clone(c.EncoderWidths)
	c.DecoderWidths = slices.Clone(c.DecoderWidths)
	c.DropoutRates = slices.Clone(c.DropoutRates)
	return c
}

// LatentDim is the dimension of the latent space, the last encoder width.
// It returns 0 if there are no encoder widths.
func (c Config) LatentDim() int {
	if len(c.EncoderWidths) == 0 {
		return 0
	}
	return c.EncoderWidths[len(c.EncoderWidths)-1]
}

// ResolvedDecoderWidths returns DecoderWidths, or the reversed EncoderWidths if they are not set.
func (c Config) ResolvedDecoderWidths() []int {
	if len(c.DecoderWidths) > 0 {
		return slices.Clone(c.DecoderWidths)
	}
	widths := slices.Clone(c.EncoderWidths)
	slices.Reverse(widths)
	return widths
}

// RequiredDropoutRates returns the number of dropout rates the topology consumes.
//
// Encoder hidden layers consume positions 0 to len(EncoderWidths)-2, and decoder hidden layers positions
// 1 to len(decoderWidths)-1.
func (c Config) RequiredDropoutRates() int {
	required := max(len(c.EncoderWidths)-1, 0)
	if numDecoder := len(c.ResolvedDecoderWidths()); numDecoder > 1 {
		required = max(required, numDecoder)
	}
	return required
}

// Validate returns an error wrapping ErrConfiguration if the configuration is not valid.
func (c Config) Validate() error {
	if c.InputDim <= 0 {
		return errors.Wrapf(ErrConfiguration, "input dimension must be > 0, got %d", c.InputDim)
	}
	if len(c.EncoderWidths) == 0 {
		return errors.Wrap(ErrConfiguration, "at least one encoder width (the latent dimension) must be given")
	}
	for ii, w := range c.EncoderWidths {
		if w <= 0 {
			return errors.Wrapf(ErrConfiguration, "encoder width #%d must be > 0, got %d", ii, w)
		}
	}
	for ii, w := range c.DecoderWidths {
		if w <= 0 {
			return errors.Wrapf(ErrConfiguration, "decoder width #%d must be > 0, got %d", ii, w)
		}
	}
	if len(c.DecoderWidths) > 0 && c.DecoderWidths[0] != c.LatentDim() {
		return errors.Wrapf(ErrConfiguration, "first decoder width (%d) must match the latent dimension (%d)",
			c.DecoderWidths[0], c.LatentDim())
	}
	if required := c.RequiredDropoutRates(); len(c.DropoutRates) != required {
		return errors.Wrapf(ErrConfiguration, "encoder widths %v and decoder widths %v require %d dropout rates, got %d",
			c.EncoderWidths, c.ResolvedDecoderWidths(), required, len(c.DropoutRates))
	}
	for ii, rate := range c.DropoutRates {
		if rate < 0 || rate >= 1 {
			return errors.Wrapf(ErrConfiguration, "dropout rate #%d must be in [0, 1), got %g", ii, rate)
		}
	}
	if _, err := activations.TypeString(c.Activation.String()); err != nil {
		return errors.Wrapf(ErrConfiguration, "invalid activation %q", c.Activation)
	}
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	if c.InitStddev <= 0 {
		return errors.Wrapf(ErrConfiguration, "initializer standard deviation must be > 0, got %g", c.InitStddev)
	}
	if !c.DType.IsFloat() {
		return errors.Wrapf(ErrConfiguration, "dtype must be a float, got %s", c.DType)
	}
	return nil
}

// String implements fmt.Stringer.
func (c Config) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "vae.Config{input=%d, encoder=%v, decoder=%v, dropout=%v, activation=%s, optimizer=%s, init_stddev=%g",
		c.InputDim, c.EncoderWidths, c.ResolvedDecoderWidths(), c.DropoutRates, c.Activation, c.Optimizer, c.InitStddev)
	if c.Seed != 0 {
		_, _ = fmt.Fprintf(&sb, ", seed=%d", c.Seed)
	}
	_, _ = fmt.Fprintf(&sb, ", dtype=%s}", c.DType)
	return sb.String()
}

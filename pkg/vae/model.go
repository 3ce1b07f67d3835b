// Package vae implements a variational autoencoder (VAE) on top of GoMLX.
//
// The model is made of a recognition network (Encoder) that maps an input to the mean and log-variance of a
// diagonal Gaussian posterior over a latent space, the reparameterization trick (Reparameterize) that samples
// from it in a differentiable way, and a generator network (Decoder) that maps the sample back to a
// Bernoulli reconstruction of the input. It is trained by minimizing Objective: the masked binary
// cross-entropy of the reconstruction plus the KL divergence of the posterior to the N(0, I) prior.
//
// The graph building functions (Encoder, Decoder, Objective, ...) can be used directly in any GoMLX model.
// Model wraps them with a context, a train.Trainer and executors for inference:
//
//	cfg, err := vae.NewConfig(vae.WithInputDim(784), vae.WithEncoderWidths(256, 32), vae.WithDropoutRates(0.1, 0.1))
//	if err != nil { ... }
//	model, err := vae.New(backends.MustNew(), cfg)
//	if err != nil { ... }
//	loss, err := model.TrainStep(x, mask)
package vae

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Model is a VAE bound to a backend, with its variables stored in a context.
//
// It is not safe for concurrent use.
type Model struct {
	config   Config
	topology Topology
	backend  backends.Backend
	ctx      *context.Context
	trainer  *train.Trainer

	encodeExec, reconstructExec, generateExec, decodeExec, lossExec *context.Exec
}

// New creates a Model with a fresh context. See NewWithContext.
func New(backend backends.Backend, c Config) (*Model, error) {
	return NewWithContext(backend, context.New(), c)
}

// NewWithContext creates a Model storing its variables and hyperparameters in ctx.
//
// It returns an error wrapping ErrConfiguration if c is not valid. A backend other than ExpectedBackend
// only logs a warning. If c.Seed is set, the context random number generator is reset with it, making
// initialization and sampling reproducible.
func NewWithContext(backend backends.Backend, ctx *context.Context, c Config) (*Model, error) {
	c = c.clone()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	checkBackend(backend)
	opt, err := c.Optimizer.Build()
	if err != nil {
		return nil, err
	}

	m := &Model{
		config:   c,
		topology: NewTopology(c),
		backend:  backend,
		// Training and inference graphs may be built in any order, so variables are created or reused as needed.
		ctx: ctx.Checked(false),
	}
	err = exceptions.TryCatch[error](func() {
		SetParams(m.ctx, c)
		if c.Seed != 0 {
			m.ctx.SetRNGStateFromSeed(c.Seed)
		}
		m.trainer = train.NewTrainer(backend, m.ctx, m.ModelFn, m.LossFn, opt, nil, nil)
		m.encodeExec = context.MustNewExec(backend, m.ctx, func(ctx *context.Context, x *Node) []*Node {
			mean, logVar := Encoder(ctx, c, x)
			return []*Node{mean, logVar}
		})
		m.reconstructExec = context.MustNewExec(backend, m.ctx, func(ctx *context.Context, x *Node) *Node {
			mean, logVar := Encoder(ctx, c, x)
			return Decoder(ctx, c, mean, logVar)
		})
		m.decodeExec = context.MustNewExec(backend, m.ctx, func(ctx *context.Context, z *Node) *Node {
			return DecodeLatent(ctx, c, z)
		})
		m.generateExec = context.MustNewExec(backend, m.ctx, func(ctx *context.Context, mean *Node) *Node {
			// Unit variance around mean (the prior, when mean is zero).
			return Decoder(ctx, c, mean, ZerosLike(mean))
		})
		m.lossExec = context.MustNewExec(backend, m.ctx, func(ctx *context.Context, x, mask *Node) *Node {
			return m.ModelFn(ctx, nil, []*Node{x, mask})[1]
		})
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to build VAE")
	}
	klog.V(1).Infof("vae: created %s with %s parameters", c, humanize.Comma(int64(m.topology.NumParams())))
	return m, nil
}

// ModelFn implements train.ModelFn. It takes as inputs x and its mask, and returns the reconstruction
// and the scalar Objective, in this order.
func (m *Model) ModelFn(ctx *context.Context, _ any, inputs []*Node) []*Node {
	if len(inputs) != 2 {
		exceptions.Panicf("vae model requires 2 inputs (x and mask), got %d", len(inputs))
	}
	x, mask := inputs[0], inputs[1]
	mean, logVar := Encoder(ctx, m.config, x)
	reconstruction := Decoder(ctx, m.config, mean, logVar)
	loss := Objective(x, mask, reconstruction, mean, logVar)
	return []*Node{reconstruction, loss}
}

// LossFn selects the loss computed by ModelFn. The labels are not used.
func (m *Model) LossFn(_, predictions []*Node) *Node {
	return predictions[1]
}

// TrainStep runs one optimizer update on the batch x with its mask, and returns the loss of the batch.
//
// Both x and mask must be shaped [batchSize, InputDim] with the model dtype.
func (m *Model) TrainStep(x, mask *tensors.Tensor) (loss float64, err error) {
	if err = m.checkInputs(x, mask); err != nil {
		return
	}
	var metrics []*tensors.Tensor
	err = exceptions.TryCatch[error](func() {
		var trainErr error
		metrics, trainErr = m.trainer.TrainStep(nil, []*tensors.Tensor{x, mask}, nil)
		if trainErr != nil {
			panic(trainErr)
		}
	})
	if err != nil {
		return 0, errors.WithMessage(err, "vae train step")
	}
	return scalarValue(metrics[0])
}

// Loss evaluates the Objective on the batch without updating the weights. Dropout is disabled, but the
// latent vector is still sampled.
func (m *Model) Loss(x, mask *tensors.Tensor) (loss float64, err error) {
	if err = m.checkInputs(x, mask); err != nil {
		return
	}
	var lossT *tensors.Tensor
	err = exceptions.TryCatch[error](func() { lossT = m.lossExec.MustExec1(x, mask) })
	if err != nil {
		return 0, errors.WithMessage(err, "vae loss")
	}
	return scalarValue(lossT)
}

// Encode returns the mean and log-variance of the posterior for x, shaped [batchSize, InputDim].
func (m *Model) Encode(x *tensors.Tensor) (mean, logVar *tensors.Tensor, err error) {
	if err = m.checkTensor("x", x, m.config.InputDim); err != nil {
		return
	}
	err = exceptions.TryCatch[error](func() { mean, logVar = m.encodeExec.MustExec2(x) })
	if err != nil {
		err = errors.WithMessage(err, "vae encode")
	}
	return
}

// Reconstruct encodes x, samples a latent vector and decodes it.
func (m *Model) Reconstruct(x *tensors.Tensor) (reconstruction *tensors.Tensor, err error) {
	if err = m.checkTensor("x", x, m.config.InputDim); err != nil {
		return
	}
	err = exceptions.TryCatch[error](func() { reconstruction = m.reconstructExec.MustExec1(x) })
	if err != nil {
		err = errors.WithMessage(err, "vae reconstruct")
	}
	return
}

// Decode maps latent vectors z, shaped [batchSize, LatentDim], to reconstructions. It is deterministic.
func (m *Model) Decode(z *tensors.Tensor) (reconstruction *tensors.Tensor, err error) {
	if err = m.checkTensor("z", z, m.config.LatentDim()); err != nil {
		return
	}
	err = exceptions.TryCatch[error](func() { reconstruction = m.decodeExec.MustExec1(z) })
	if err != nil {
		err = errors.WithMessage(err, "vae decode")
	}
	return
}

// Generate draws n latent vectors from the N(0, I) prior and decodes them.
func (m *Model) Generate(n int) (samples *tensors.Tensor, err error) {
	if n <= 0 {
		return nil, errors.Errorf("vae generate: number of samples must be > 0, got %d", n)
	}
	prior := tensors.FromShape(shapes.Make(m.config.DType, n, m.config.LatentDim()))
	err = exceptions.TryCatch[error](func() { samples = m.generateExec.MustExec1(prior) })
	if err != nil {
		err = errors.WithMessage(err, "vae generate")
	}
	return
}

// Config returns a copy of the model configuration.
func (m *Model) Config() Config { return m.config.clone() }

// InputDim is the number of features of the inputs and reconstructions.
func (m *Model) InputDim() int { return m.config.InputDim }

// LatentDim is the dimension of the latent space.
func (m *Model) LatentDim() int { return m.config.LatentDim() }

// Topology describes the layers of the model.
func (m *Model) Topology() Topology { return m.topology }

// Context holding the model variables and hyperparameters.
func (m *Model) Context() *context.Context { return m.ctx }

// Backend used to execute the model.
func (m *Model) Backend() backends.Backend { return m.backend }

// Trainer used by TrainStep. It can be used with train.Loop.
func (m *Model) Trainer() *train.Trainer { return m.trainer }

func (m *Model) checkInputs(x, mask *tensors.Tensor) error {
	if err := m.checkTensor("x", x, m.config.InputDim); err != nil {
		return err
	}
	if err := m.checkTensor("mask", mask, m.config.InputDim); err != nil {
		return err
	}
	if !x.Shape().Equal(mask.Shape()) {
		return errors.Wrapf(ErrShapeMismatch, "x (%s) and mask (%s) must have the same shape", x.Shape(), mask.Shape())
	}
	return nil
}

// checkTensor verifies t is shaped [batchSize, features] with the model dtype.
func (m *Model) checkTensor(name string, t *tensors.Tensor, features int) error {
	if t == nil {
		return errors.Wrapf(ErrShapeMismatch, "%s is nil", name)
	}
	shape := t.Shape()
	if shape.Rank() != 2 || shape.Dimensions[1] != features || shape.Dimensions[0] <= 0 {
		return errors.Wrapf(ErrShapeMismatch, "%s must be shaped [batch_size, %d], got %s", name, features, shape)
	}
	if shape.DType != m.config.DType {
		return errors.Wrapf(ErrShapeMismatch, "%s must have dtype %s, got %s", name, m.config.DType, shape.DType)
	}
	return nil
}

// scalarValue converts a float scalar tensor to float64.
func scalarValue(t *tensors.Tensor) (float64, error) {
	switch v := t.Value().(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, errors.Errorf("expected a float scalar, got %s", t.Shape())
}

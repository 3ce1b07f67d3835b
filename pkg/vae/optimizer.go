package vae

import (
	"fmt"
	"strings"

	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
)

// OptimizerKind enumerates the supported optimizers.
type OptimizerKind int

const (
	OptimizerSGD OptimizerKind = iota
	OptimizerAdam
	OptimizerAdamax
	OptimizerAdamW
	OptimizerRMSProp
)

// adamWWeightDecay matches the "adamw" default in optimizers.KnownOptimizers.
const adamWWeightDecay = 0.004

var optimizerNames = map[OptimizerKind]string{
	OptimizerSGD:     "sgd",
	OptimizerAdam:    "adam",
	OptimizerAdamax:  "adamax",
	OptimizerAdamW:   "adamw",
	OptimizerRMSProp: "rmsprop",
}

// optimizerBuilders is the closed dispatch table from kind to the GoMLX optimizer constructor.
var optimizerBuilders = map[OptimizerKind]func(learningRate float64) optimizers.Interface{
	OptimizerSGD: func(lr float64) optimizers.Interface {
		return optimizers.StochasticGradientDescent().WithLearningRate(lr).Done()
	},
	OptimizerAdam: func(lr float64) optimizers.Interface {
		return optimizers.Adam().LearningRate(lr).Done()
	},
	OptimizerAdamax: func(lr float64) optimizers.Interface {
		return optimizers.Adam().Adamax().LearningRate(lr).Done()
	},
	OptimizerAdamW: func(lr float64) optimizers.Interface {
		return optimizers.Adam().WeightDecay(adamWWeightDecay).LearningRate(lr).Done()
	},
	OptimizerRMSProp: func(lr float64) optimizers.Interface {
		return optimizers.RMSProp().LearningRate(lr).Done()
	},
}

// String returns the name of the optimizer, as used by optimizers.ParamOptimizer.
func (k OptimizerKind) String() string {
	if name, found := optimizerNames[k]; found {
		return name
	}
	return fmt.Sprintf("OptimizerKind(%d)", int(k))
}

// OptimizerKinds returns all supported kinds, in order.
func OptimizerKinds() []OptimizerKind {
	return []OptimizerKind{OptimizerSGD, OptimizerAdam, OptimizerAdamax, OptimizerAdamW, OptimizerRMSProp}
}

// ParseOptimizer converts an optimizer name (case-insensitive) to its kind.
func ParseOptimizer(name string) (OptimizerKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, kind := range OptimizerKinds() {
		if optimizerNames[kind] == name {
			return kind, nil
		}
	}
	names := make([]string, 0, len(optimizerNames))
	for _, kind := range OptimizerKinds() {
		names = append(names, kind.String())
	}
	return 0, errors.Wrapf(ErrConfiguration, "unsupported optimizer %q, valid values are %v", name, names)
}

// Optimizer selects the optimizer and its learning rate.
type Optimizer struct {
	Kind         OptimizerKind
	LearningRate float64
}

// String implements fmt.Stringer.
func (o Optimizer) String() string {
	return fmt.Sprintf("%s(lr=%g)", o.Kind, o.LearningRate)
}

// Validate returns an error wrapping ErrConfiguration if the optimizer can't be built.
func (o Optimizer) Validate() error {
	if _, found := optimizerBuilders[o.Kind]; !found {
		return errors.Wrapf(ErrConfiguration, "unsupported optimizer %s", o.Kind)
	}
	if o.LearningRate <= 0 {
		return errors.Wrapf(ErrConfiguration, "learning rate must be > 0, got %g", o.LearningRate)
	}
	return nil
}

// Build creates the GoMLX optimizer.
func (o Optimizer) Build() (optimizers.Interface, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return optimizerBuilders[o.Kind](o.LearningRate), nil
}

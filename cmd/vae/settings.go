package main

import (
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"github.com/teokem/project-work-missmagnum/pkg/vae"
)

var flagSettings string

// modelContext creates the context with the default hyperparameters, overwritten by --set, and the
// corresponding validated configuration.
func modelContext() (ctx *context.Context, cfg vae.Config, paramsSet []string, err error) {
	ctx = vae.DefaultContext()
	paramsSet, err = commandline.ParseContextSettings(ctx, flagSettings)
	if err != nil {
		err = errors.WithMessage(err, "parsing --set")
		return
	}
	cfg, err = vae.ConfigFromContext(ctx)
	return
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package nextsrgan implements the generator and discriminator models of NeXtSRGAN, a
// super-resolution GAN that combines Residual-in-Residual Dense Blocks (RRDB) using GELU activations
// in the generator, with a ConvNeXt inspired discriminator.
//
// Models are graph building functions on a context.Context, like any other GoMLX layer:
//
//	ctx := nextsrgan.CreateDefaultContext()
//	hr := nextsrgan.Generator(ctx, lr, nextsrgan.GeneratorConfigFromContext(ctx))  // lr shaped [batch, 32, 32, 3]
//	hr.AssertDims(batch, 128, 128, 3)
//	logits := nextsrgan.Discriminator(ctx, hr, nextsrgan.DiscriminatorConfigFromContext(ctx))
//	logits.AssertDims(batch, 1)
//
// NewGenerator and NewDiscriminator wrap them in a Model, which can be called directly on tensors.
//
// Based on "ESRGAN: Enhanced Super-Resolution Generative Adversarial Networks" (Wang et al. 2018),
// https://arxiv.org/abs/1809.00219, with the modifications of NeXtSRGAN.
package nextsrgan

import (
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/pkg/errors"
)

const (
	// ParamInputSize is the context hyperparameter with the spatial size (height and width) of the
	// low-resolution input images. If set to 0 the size is taken from the input when the graph is built.
	// Default is 32.
	ParamInputSize = "nextsrgan_input_size"

	// ParamChannels is the context hyperparameter with the number of channels of the images. Default is 3.
	ParamChannels = "nextsrgan_channels"

	// ParamNumFeatures is the context hyperparameter for the number of feature channels ("nf") of the generator.
	// Default is 64.
	ParamNumFeatures = "nextsrgan_nf"

	// ParamNumBlocks is the context hyperparameter for the number of RRDB blocks ("nb") in the generator trunk.
	// Default is 23.
	ParamNumBlocks = "nextsrgan_nb"

	// ParamGrowthChannels is the context hyperparameter for the growth channels ("gc") of the dense blocks.
	// Default is 32.
	ParamGrowthChannels = "nextsrgan_gc"

	// ParamResidualBeta is the context hyperparameter that scales the residual contributions of the dense blocks.
	// Default is 0.2.
	ParamResidualBeta = "nextsrgan_res_beta"

	// ParamWeightDecay is the context hyperparameter with the L2 weight decay applied to the kernels of both
	// models. Default is 0.
	ParamWeightDecay = "nextsrgan_weight_decay"

	// ParamDiscriminatorFeatures is the context hyperparameter with the base number of channels ("nf") of the
	// discriminator. Default is 64.
	ParamDiscriminatorFeatures = "nextsrgan_disc_nf"

	// ParamTrainable is a scoped context hyperparameter. If set to false, the layers under the scope are frozen:
	// batch normalization always runs in inference mode, regardless of Context.IsTraining.
	// See SetTrainable. Default is true.
	ParamTrainable = "nextsrgan_trainable"
)

const (
	// DefaultGrowthChannels is the default value for GeneratorConfig.GrowthChannels.
	DefaultGrowthChannels = 32

	// DefaultResidualBeta is the default scaling of the residual connections of the dense blocks.
	DefaultResidualBeta = 0.2

	// DefaultDiscriminatorFeatures is the default value for DiscriminatorConfig.NumFeatures.
	DefaultDiscriminatorFeatures = 64

	// GeneratorScope is the default scope (and name) of the generator model.
	GeneratorScope = "RRDB_model"

	// DiscriminatorScope is the default scope (and name) of the discriminator model.
	DiscriminatorScope = "Discriminator_VGG_128"

	// UpscaleFactor is the ratio between the output and input spatial dimensions of the generator.
	UpscaleFactor = 4
)

// CreateDefaultContext returns a context with the default hyperparameters of the models.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		ParamInputSize:             32,
		ParamChannels:              3,
		ParamNumFeatures:           64,
		ParamNumBlocks:             23,
		ParamGrowthChannels:        DefaultGrowthChannels,
		ParamResidualBeta:          DefaultResidualBeta,
		ParamWeightDecay:           0.0,
		ParamDiscriminatorFeatures: DefaultDiscriminatorFeatures,
		ParamTrainable:             true,
	})
	return ctx
}

// NetConfig holds the configuration of the generator trunk, the "cfg_net" of the original model.
type NetConfig struct {
	// NumFeatures ("nf") is the number of feature channels carried along the trunk.
	NumFeatures int

	// NumBlocks ("nb") is the number of RRDB blocks in the trunk.
	NumBlocks int
}

// NetConfigFromMap reads the keys "nf" and "nb" of cfgNet.
// It returns an error if any of them is missing or is not an integer.
func NetConfigFromMap(cfgNet map[string]any) (NetConfig, error) {
	var cfg NetConfig
	var err error
	cfg.NumFeatures, err = intFromMap(cfgNet, "nf")
	if err != nil {
		return cfg, err
	}
	cfg.NumBlocks, err = intFromMap(cfgNet, "nb")
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func intFromMap(m map[string]any, key string) (int, error) {
	value, found := m[key]
	if !found {
		return 0, errors.Errorf("network configuration missing key %q", key)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, errors.Errorf("network configuration key %q must be an integer, got %g", key, v)
		}
		return int(v), nil
	default:
		return 0, errors.Errorf("network configuration key %q must be an integer, got %T", key, value)
	}
}

// Validate returns an error if the configuration can't be used to build a generator.
func (cfg NetConfig) Validate() error {
	if cfg.NumFeatures <= 0 {
		return errors.Errorf("invalid number of features nf=%d, it must be > 0", cfg.NumFeatures)
	}
	if cfg.NumBlocks < 0 {
		return errors.Errorf("invalid number of RRDB blocks nb=%d, it must be >= 0", cfg.NumBlocks)
	}
	return nil
}

// mustValidate is used during graph building, where errors are reported as panics.
func mustValidate(err error) {
	if err != nil {
		exceptions.Panicf("%v", err)
	}
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GeneratorConfig configures the RRDB generator, see Generator.
type GeneratorConfig struct {
	// Size is the height and width of the low-resolution input images.
	// If <= 0, the input spatial dimensions are taken from the input when the graph is built, and
	// any size is accepted.
	Size int

	// Channels of the input and output images. If <= 0, it is taken from the input of the first graph
	// built: after that the variables exist, and the number of channels is fixed for the context.
	Channels int

	// Net configures the number of features and the number of RRDB blocks in the trunk.
	Net NetConfig

	// GrowthChannels ("gc") of the dense blocks. If 0, DefaultGrowthChannels is used.
	GrowthChannels int

	// WeightDecay is the L2 regularization of the kernels. 0 disables it.
	WeightDecay float64

	// ResidualBeta scales the residuals of the dense blocks. If negative, DefaultResidualBeta is used.
	// 0 disables the residual branches, and the blocks become identities.
	ResidualBeta float64

	// Name of the model, also used as the scope of its variables. If empty, GeneratorScope is used.
	Name string
}

// NewGeneratorConfig returns a GeneratorConfig with the defaults for the given image size, channels and
// network configuration.
func NewGeneratorConfig(size, channels int, net NetConfig) GeneratorConfig {
	return GeneratorConfig{
		Size:           size,
		Channels:       channels,
		Net:            net,
		GrowthChannels: DefaultGrowthChannels,
		ResidualBeta:   DefaultResidualBeta,
		Name:           GeneratorScope,
	}
}

// GeneratorConfigFromContext builds the GeneratorConfig from the context hyperparameters.
// See CreateDefaultContext for the parameters and their defaults.
func GeneratorConfigFromContext(ctx *context.Context) GeneratorConfig {
	return GeneratorConfig{
		Size:     context.GetParamOr(ctx, ParamInputSize, 0),
		Channels: context.GetParamOr(ctx, ParamChannels, 0),
		Net: NetConfig{
			NumFeatures: context.GetParamOr(ctx, ParamNumFeatures, 64),
			NumBlocks:   context.GetParamOr(ctx, ParamNumBlocks, 23),
		},
		GrowthChannels: context.GetParamOr(ctx, ParamGrowthChannels, DefaultGrowthChannels),
		WeightDecay:    context.GetParamOr(ctx, ParamWeightDecay, 0.0),
		ResidualBeta:   context.GetParamOr(ctx, ParamResidualBeta, DefaultResidualBeta),
		Name:           GeneratorScope,
	}
}

// Validate returns an error if the configuration is invalid.
func (cfg GeneratorConfig) Validate() error {
	if err := cfg.Net.Validate(); err != nil {
		return err
	}
	if cfg.GrowthChannels < 0 {
		return errors.Errorf("invalid growth channels gc=%d", cfg.GrowthChannels)
	}
	if cfg.WeightDecay < 0 {
		return errors.Errorf("invalid weight decay %g", cfg.WeightDecay)
	}
	return nil
}

func (cfg GeneratorConfig) withDefaults() GeneratorConfig {
	if cfg.GrowthChannels == 0 {
		cfg.GrowthChannels = DefaultGrowthChannels
	}
	if cfg.ResidualBeta < 0 {
		cfg.ResidualBeta = DefaultResidualBeta
	}
	if cfg.Name == "" {
		cfg.Name = GeneratorScope
	}
	return cfg
}

// Generator builds the RRDB generator ("RRDB_Model") on the low-resolution images, shaped
// `[batch, height, width, channels]`, and returns the super-resolved images shaped
// `[batch, 4*height, 4*width, channels]`.
//
// The variables are created under the scope cfg.Name:
//
//	conv_first -> RRDB_trunk/RRDB_{0..nb-1} -> conv_trunk -> (+ conv_first)
//	  -> upsample x2 -> upconv_1 -> upsample x2 -> upconv_2 -> conv_hr -> conv_last
//
// The upsampling uses nearest neighbor interpolation.
func Generator(ctx *context.Context, images *Node, cfg GeneratorConfig) *Node {
	mustValidate(cfg.Validate())
	cfg = cfg.withDefaults()
	images.AssertRank(4)
	batchSize := images.Shape().Dim(0)
	height, width := images.Shape().Dim(1), images.Shape().Dim(2)
	channels := images.Shape().Dim(3)
	if cfg.Size > 0 && (height != cfg.Size || width != cfg.Size) {
		exceptions.Panicf("generator %q configured for images of size %dx%d, got images shaped %s",
			cfg.Name, cfg.Size, cfg.Size, images.Shape())
	}
	if cfg.Channels > 0 && channels != cfg.Channels {
		exceptions.Panicf("generator %q configured for images with %d channels, got images shaped %s",
			cfg.Name, cfg.Channels, images.Shape())
	}
	nf := cfg.Net.NumFeatures
	klog.V(1).Infof("Generator %q: input %s, nf=%d, nb=%d, gc=%d", cfg.Name, images.Shape(), nf, cfg.Net.NumBlocks, cfg.GrowthChannels)

	ctx = ctx.In(cfg.Name)
	convCtx := ctx.WithInitializer(KernelInitializer(ctx, 1.0))
	wd := cfg.WeightDecay

	fea := conv3x3(convCtx.In("conv_first"), images, nf, wd, false)
	trunk := fea
	trunkCtx := ctx.In("RRDB_trunk")
	blockCfg := BlockConfig{
		NumFeatures:    nf,
		GrowthChannels: cfg.GrowthChannels,
		ResidualBeta:   cfg.ResidualBeta,
		WeightDecay:    wd,
	}
	for ii := range cfg.Net.NumBlocks {
		trunk = ResidualInResidualDenseBlock(trunkCtx.Inf("RRDB_%d", ii), trunk, blockCfg)
	}
	trunk = conv3x3(convCtx.In("conv_trunk"), trunk, nf, wd, false)
	fea = Add(fea, trunk)

	// Upsampling: the target sizes are relative to the original input.
	fea = upsampleNearest(fea, height*2, width*2)
	fea = conv3x3(convCtx.In("upconv_1"), fea, nf, wd, true)
	fea = upsampleNearest(fea, height*4, width*4)
	fea = conv3x3(convCtx.In("upconv_2"), fea, nf, wd, true)
	fea = conv3x3(convCtx.In("conv_hr"), fea, nf, wd, true)
	out := conv3x3(convCtx.In("conv_last"), fea, channels, wd, false)
	out.AssertDims(batchSize, UpscaleFactor*height, UpscaleFactor*width, channels)
	return out
}

// upsampleNearest resizes the spatial dimensions of x (shaped `[batch, height, width, channels]`)
// to the given height and width, using nearest neighbor.
func upsampleNearest(x *Node, height, width int) *Node {
	return Interpolate(x, NoInterpolation, height, width, NoInterpolation).Nearest().Done()
}

// GeneratorModelGraph builds the generator configured with the context hyperparameters
// (see GeneratorConfigFromContext) on inputs[0].
//
// It follows the signature of train.ModelFn.
func GeneratorModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	return []*Node{Generator(ctx, inputs[0], GeneratorConfigFromContext(ctx))}
}

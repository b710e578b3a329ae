// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/nn"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DiscriminatorConfig configures the discriminator, see Discriminator.
type DiscriminatorConfig struct {
	// Size is the height and width of the images. If <= 0 it is taken from the input.
	// Spatial dimensions should be divisible by 32 (2^5), one halving per stage.
	Size int

	// Channels of the input images. If <= 0, it is taken from the input.
	Channels int

	// NumFeatures ("nf") is the number of channels of the first stage. Later stages double it, up to nf*8.
	// If 0, DefaultDiscriminatorFeatures is used.
	NumFeatures int

	// WeightDecay is the L2 regularization of the kernels. 0 disables it.
	WeightDecay float64

	// Name of the model, also used as the scope of its variables. If empty, DiscriminatorScope is used.
	Name string
}

// NumDiscriminatorStages is the number of stride-2 stages of the discriminator.
const NumDiscriminatorStages = 5

// discriminatorStageMultipliers of nf for the number of channels of each stage.
var discriminatorStageMultipliers = [NumDiscriminatorStages]int{1, 2, 4, 8, 8}

// NewDiscriminatorConfig returns a DiscriminatorConfig with the defaults for the given image size and channels.
func NewDiscriminatorConfig(size, channels int) DiscriminatorConfig {
	return DiscriminatorConfig{
		Size:        size,
		Channels:    channels,
		NumFeatures: DefaultDiscriminatorFeatures,
		Name:        DiscriminatorScope,
	}
}

// DiscriminatorConfigFromContext builds the DiscriminatorConfig from the context hyperparameters.
// The discriminator sees the high-resolution images, so Size is UpscaleFactor times ParamInputSize.
func DiscriminatorConfigFromContext(ctx *context.Context) DiscriminatorConfig {
	return DiscriminatorConfig{
		Size:        UpscaleFactor * context.GetParamOr(ctx, ParamInputSize, 0),
		Channels:    context.GetParamOr(ctx, ParamChannels, 0),
		NumFeatures: context.GetParamOr(ctx, ParamDiscriminatorFeatures, DefaultDiscriminatorFeatures),
		WeightDecay: context.GetParamOr(ctx, ParamWeightDecay, 0.0),
		Name:        DiscriminatorScope,
	}
}

// Validate returns an error if the configuration is invalid.
func (cfg DiscriminatorConfig) Validate() error {
	if cfg.NumFeatures < 0 {
		return errors.Errorf("invalid discriminator number of features nf=%d", cfg.NumFeatures)
	}
	if cfg.WeightDecay < 0 {
		return errors.Errorf("invalid weight decay %g", cfg.WeightDecay)
	}
	return nil
}

func (cfg DiscriminatorConfig) withDefaults() DiscriminatorConfig {
	if cfg.NumFeatures == 0 {
		cfg.NumFeatures = DefaultDiscriminatorFeatures
	}
	if cfg.Name == "" {
		cfg.Name = DiscriminatorScope
	}
	return cfg
}

// Discriminator builds the discriminator ("DiscriminatorVGG128") on images shaped
// `[batch, height, width, channels]` and returns the realism logits shaped `[batch, 1]`.
// There is no activation on the output: it's meant to be used by a logistic or hinge loss.
//
// It has 5 stages, each halving the spatial dimensions:
//
//	stage 0:    conv0_0 (3x3, with bias) -> conv0_1 (4x4, stride 2) -> bn0_1
//	stage 1..4: convK_0 (3x3) -> GELU -> convK_1 (4x4, stride 2) -> bnK_1
//
// Notice stage 0 has no activation after its first convolution. The number of channels is nf for stage 0,
// and nf*2, nf*4, nf*8 and nf*8 for the next ones. The result is averaged over the spatial dimensions
// and projected to a single value by linear1.
//
// The batch normalization layers follow IsTrainable: use SetTrainable to freeze the discriminator.
func Discriminator(ctx *context.Context, images *Node, cfg DiscriminatorConfig) *Node {
	mustValidate(cfg.Validate())
	cfg = cfg.withDefaults()
	images.AssertRank(4)
	batchSize := images.Shape().Dim(0)
	if cfg.Size > 0 && (images.Shape().Dim(1) != cfg.Size || images.Shape().Dim(2) != cfg.Size) {
		exceptions.Panicf("discriminator %q configured for images of size %dx%d, got images shaped %s",
			cfg.Name, cfg.Size, cfg.Size, images.Shape())
	}
	if cfg.Channels > 0 && images.Shape().Dim(3) != cfg.Channels {
		exceptions.Panicf("discriminator %q configured for images with %d channels, got images shaped %s",
			cfg.Name, cfg.Channels, images.Shape())
	}
	klog.V(1).Infof("Discriminator %q: input %s, nf=%d", cfg.Name, images.Shape(), cfg.NumFeatures)

	ctx = ctx.In(cfg.Name)
	convCtx := ctx.WithInitializer(KernelInitializer(ctx, 1.0))
	x := images
	for stage, multiplier := range discriminatorStageMultipliers {
		channels := cfg.NumFeatures * multiplier
		x = layers.Convolution(convCtx.In(fmt.Sprintf("conv%d_0", stage)), x).
			Channels(channels).
			KernelSize(3).
			Strides(1).
			PadSame().
			ChannelsAxis(channelsAxis).
			UseBias(stage == 0).
			Regularizer(Regularizer(cfg.WeightDecay)).
			CurrentScope().
			Done()
		if stage > 0 {
			x = Gelu(x)
		}
		x = layers.Convolution(convCtx.In(fmt.Sprintf("conv%d_1", stage)), x).
			Channels(channels).
			KernelSize(4).
			Strides(2).
			PadSame().
			ChannelsAxis(channelsAxis).
			UseBias(false).
			Regularizer(Regularizer(cfg.WeightDecay)).
			CurrentScope().
			Done()
		x = BatchNormalization(ctx.In(fmt.Sprintf("bn%d_1", stage)), x)
	}

	// Global average pooling over the spatial axes.
	x = ReduceMean(x, 1, 2)
	logits := denseLayer(ctx.In("linear1"), x, 1, cfg.WeightDecay)
	logits.AssertDims(batchSize, 1)
	return logits
}

// denseLayer projects the last axis of x to outputDim, with a Glorot uniform initialized kernel and zero
// initialized biases.
func denseLayer(ctx *context.Context, x *Node, outputDim int, weightDecay float64) *Node {
	g := x.Graph()
	dtype := x.DType()
	inputDim := x.Shape().Dim(-1)
	weightsVar := ctx.WithInitializer(initializers.GlorotUniformFn(ctx)).
		VariableWithShape("weights", shapes.Make(dtype, inputDim, outputDim))
	if reg := Regularizer(weightDecay); reg != nil {
		reg(ctx, g, weightsVar)
	}
	biasesVar := ctx.WithInitializer(initializers.Zero).VariableWithShape("biases", shapes.Make(dtype, outputDim))
	return nn.Dense(x, weightsVar.ValueGraph(g), biasesVar.ValueGraph(g))
}

// DiscriminatorModelGraph builds the discriminator configured with the context hyperparameters
// (see DiscriminatorConfigFromContext) on inputs[0].
//
// It follows the signature of train.ModelFn.
func DiscriminatorModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	return []*Node{Discriminator(ctx, inputs[0], DiscriminatorConfigFromContext(ctx))}
}

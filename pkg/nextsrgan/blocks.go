// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
)

// BlockConfig configures the dense blocks ResidualDenseBlock and ResidualInResidualDenseBlock.
type BlockConfig struct {
	// NumFeatures ("nf") is the number of channels of the block's input and output.
	NumFeatures int

	// GrowthChannels ("gc") is the number of channels output by each of the inner convolutions.
	GrowthChannels int

	// ResidualBeta scales the block's contribution before adding it to the residual.
	ResidualBeta float64

	// WeightDecay is the L2 regularization of the convolution kernels.
	WeightDecay float64
}

// denseConvInitScale is the scale of KernelInitializer used for the convolutions inside the dense blocks.
const denseConvInitScale = 0.1

// channelsAxis for all images in this package.
var channelsAxis = images.ChannelsLast

// ResidualDenseBlock ("RDB5C") applies 5 densely connected convolutions on x: each convolution sees the
// input concatenated with the outputs of all previous convolutions. The output of the last one is scaled by
// cfg.ResidualBeta and added to x:
//
//	x1 = conv1(x)
//	x2 = conv2(concat(x, x1))
//	...
//	x5 = conv5(concat(x, x1, x2, x3, x4))
//	output = x + ResidualBeta * x5
//
// x must be shaped `[batch, height, width, cfg.NumFeatures]`, and the output has the same shape.
func ResidualDenseBlock(ctx *context.Context, x *Node, cfg BlockConfig) *Node {
	x.AssertRank(4)
	if inputChannels := x.Shape().Dim(-1); inputChannels != cfg.NumFeatures {
		exceptions.Panicf("ResidualDenseBlock input has %d channels, but NumFeatures=%d: the residual can't be added",
			inputChannels, cfg.NumFeatures)
	}
	ctx = ctx.WithInitializer(KernelInitializer(ctx, denseConvInitScale))
	features := []*Node{x}
	var output *Node
	for ii := 1; ii <= 5; ii++ {
		channels := cfg.GrowthChannels
		if ii == 5 {
			channels = cfg.NumFeatures
		}
		input := x
		if len(features) > 1 {
			input = Concatenate(features, -1)
		}
		output = conv3x3(ctx.Inf("conv%d", ii), input, channels, cfg.WeightDecay, true)
		features = append(features, output)
	}
	return Add(x, MulScalar(output, cfg.ResidualBeta))
}

// ResidualInResidualDenseBlock ("RRDB") chains 3 ResidualDenseBlock, and adds its output, scaled by
// cfg.ResidualBeta, to x:
//
//	output = x + ResidualBeta * rdb_3(rdb_2(rdb_1(x)))
//
// x must be shaped `[batch, height, width, cfg.NumFeatures]`, and the output has the same shape.
func ResidualInResidualDenseBlock(ctx *context.Context, x *Node, cfg BlockConfig) *Node {
	out := x
	for ii := 1; ii <= 3; ii++ {
		out = ResidualDenseBlock(ctx.In(fmt.Sprintf("rdb_%d", ii)), out, cfg)
	}
	return Add(x, MulScalar(out, cfg.ResidualBeta))
}

// conv3x3 is a same-padded 3x3 convolution with stride 1, optionally followed by a GELU.
// The variables are created directly in ctx's scope.
func conv3x3(ctx *context.Context, x *Node, channels int, weightDecay float64, gelu bool) *Node {
	x = layers.Convolution(ctx, x).
		Channels(channels).
		KernelSize(3).
		PadSame().
		ChannelsAxis(channelsAxis).
		Regularizer(Regularizer(weightDecay)).
		CurrentScope().
		Done()
	if gelu {
		x = Gelu(x)
	}
	return x
}

// Gelu is the activation used throughout the models: the tanh approximation of GELU.
func Gelu(x *Node) *Node {
	return activations.GeluApproximate(x)
}

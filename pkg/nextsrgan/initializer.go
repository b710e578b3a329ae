// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"math"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
)

// FanMode selects which dimensions of a kernel VarianceScaling uses to scale the variance.
type FanMode int

const (
	FanIn FanMode = iota
	FanOut
	FanAvg
)

// Distribution of the random values generated by VarianceScaling.
type Distribution int

const (
	// TruncatedNormal samples from a normal distribution, re-drawing values farther than 2 standard deviations.
	TruncatedNormal Distribution = iota
	Normal
	Uniform
)

// truncatedNormalStddev is the standard deviation of a unit normal truncated to [-2, 2].
// The stddev requested is divided by it, so the truncated values have the requested variance.
const truncatedNormalStddev = 0.87962566103423978

// truncatedNormalRedraws is the number of times values outside [-2, 2] are re-drawn, before the
// remaining few (~1e-4 of them) are clipped. So, unlike a true truncated normal, the distribution has a
// tiny point mass at the bounds.
const truncatedNormalRedraws = 3

// KernelInitializer returns a He style initializer, for ReLU-like activations (GELU in this model):
// it's a VarianceScaling with a variance scale of `2*scale`, FanIn mode and TruncatedNormal distribution.
//
// Variables of rank <= 1 (biases) are initialized with zeros.
//
// The random numbers come from the context random number generator, so set context.ParamInitialSeed
// (or call Context.SetRNGStateFromSeed) for a deterministic initialization.
func KernelInitializer(ctx *context.Context, scale float64) context.VariableInitializer {
	return VarianceScaling(ctx, 2*scale, FanIn, TruncatedNormal)
}

// VarianceScaling returns an initializer whose random values have variance `scale/fan`, where fan is
// given by mode, and computed assuming the variable is a dense layer weight (`[inputs, outputs]`) or
// a convolution kernel (`[<spatial_dims...>, input_channels, output_channels]`).
//
// Variables of rank <= 1 (biases) and non-float variables are initialized with zeros.
func VarianceScaling(ctx *context.Context, scale float64, mode FanMode, distribution Distribution) context.VariableInitializer {
	if scale <= 0 {
		exceptions.Panicf("VarianceScaling requires scale > 0, got %g", scale)
	}
	return func(g *Graph, shape shapes.Shape) *Node {
		if !shape.DType.IsFloat() || shape.Rank() <= 1 {
			return Zeros(g, shape)
		}
		fanIn, fanOut := fanInAndOut(shape)
		var fan float64
		switch mode {
		case FanIn:
			fan = float64(fanIn)
		case FanOut:
			fan = float64(fanOut)
		case FanAvg:
			fan = float64(fanIn+fanOut) / 2
		default:
			exceptions.Panicf("unknown FanMode %d", mode)
		}
		variance := scale / max(1.0, fan)

		switch distribution {
		case TruncatedNormal:
			stddev := math.Sqrt(variance) / truncatedNormalStddev
			return MulScalar(truncatedUnitNormal(ctx, g, shape), stddev)
		case Normal:
			return MulScalar(ctx.RandomNormal(g, shape), math.Sqrt(variance))
		case Uniform:
			limit := math.Sqrt(3 * variance)
			values := ctx.RandomUniform(g, shape)
			return AddScalar(MulScalar(values, 2*limit), -limit)
		default:
			exceptions.Panicf("unknown Distribution %d", distribution)
			panic(nil)
		}
	}
}

// truncatedUnitNormal samples a normal distribution with mean 0 and stddev 1, truncated to [-2, 2].
// Values still outside the bounds after truncatedNormalRedraws re-draws are clipped to ±2.
func truncatedUnitNormal(ctx *context.Context, g *Graph, shape shapes.Shape) *Node {
	values := ctx.RandomNormal(g, shape)
	bound := Scalar(g, shape.DType, 2.0)
	for range truncatedNormalRedraws {
		outside := GreaterThan(Abs(values), bound)
		values = Where(outside, ctx.RandomNormal(g, shape), values)
	}
	return ClipScalar(values, -2.0, 2.0)
}

// fanInAndOut of a variable that is either the weights of a dense layer or a convolution kernel.
func fanInAndOut(shape shapes.Shape) (fanIn, fanOut int) {
	rank := shape.Rank()
	switch rank {
	case 0:
		return 1, 1
	case 1:
		return shape.Dimensions[0], shape.Dimensions[0]
	case 2:
		return shape.Dimensions[0], shape.Dimensions[1]
	}
	receptiveFieldSize := 1
	for _, dim := range shape.Dimensions[:rank-2] {
		receptiveFieldSize *= dim
	}
	fanIn = shape.Dimensions[rank-2] * receptiveFieldSize
	fanOut = shape.Dimensions[rank-1] * receptiveFieldSize
	return
}

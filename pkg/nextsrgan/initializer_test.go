// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"math"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleInitializer returns the flat values generated by the initializer returned by initFn, with a context
// seeded with seed.
func sampleInitializer(t *testing.T, seed int64, shape shapes.Shape,
	initFn func(ctx *context.Context) context.VariableInitializer) []float32 {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(seed)
	var values []float32
	require.NotPanics(t, func() {
		output := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
			return initFn(ctx)(g, shape)
		})
		values = tensors.MustCopyFlatData[float32](output)
	})
	require.Len(t, values, shape.Size())
	return values
}

func meanAndStddev(values []float32) (mean, stddev float64) {
	for _, v := range values {
		mean += float64(v)
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := float64(v) - mean
		stddev += d * d
	}
	stddev = math.Sqrt(stddev / float64(len(values)))
	return
}

func TestKernelInitializer(t *testing.T) {
	// A 3x3 convolution kernel from 16 to 64 channels: fan-in is 3*3*16 = 144.
	shape := shapes.Make(dtypes.Float32, 3, 3, 16, 64)
	for _, scale := range []float64{1.0, 0.1} {
		values := sampleInitializer(t, 42, shape, func(ctx *context.Context) context.VariableInitializer {
			return KernelInitializer(ctx, scale)
		})
		wantStddev := math.Sqrt(2 * scale / 144)
		mean, stddev := meanAndStddev(values)
		assert.InDeltaf(t, 0.0, mean, wantStddev/10, "scale=%g", scale)
		assert.InEpsilonf(t, wantStddev, stddev, 0.1, "scale=%g", scale)

		// Truncated to 2 standard deviations of the underlying normal.
		bound := 2 * wantStddev / truncatedNormalStddev
		for _, v := range values {
			require.LessOrEqualf(t, math.Abs(float64(v)), bound*(1+1e-5), "scale=%g", scale)
		}
	}

	// Deterministic for the same seed.
	initFn := func(ctx *context.Context) context.VariableInitializer { return KernelInitializer(ctx, 1) }
	v1 := sampleInitializer(t, 7, shape, initFn)
	v2 := sampleInitializer(t, 7, shape, initFn)
	v3 := sampleInitializer(t, 8, shape, initFn)
	require.Equal(t, v1, v2)
	require.NotEqual(t, v1, v3)

	// Biases are zeros.
	biases := sampleInitializer(t, 42, shapes.Make(dtypes.Float32, 64), initFn)
	for _, v := range biases {
		require.Zero(t, v)
	}
}

func TestVarianceScalingUniform(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 512, 1)
	values := sampleInitializer(t, 42, shape, func(ctx *context.Context) context.VariableInitializer {
		return VarianceScaling(ctx, 1, FanAvg, Uniform)
	})
	limit := math.Sqrt(6.0 / (512 + 1))
	for _, v := range values {
		require.LessOrEqual(t, math.Abs(float64(v)), limit)
	}
	_, stddev := meanAndStddev(values)
	assert.InEpsilon(t, limit/math.Sqrt(3), stddev, 0.15)
}

func TestFanInAndOut(t *testing.T) {
	fanIn, fanOut := fanInAndOut(shapes.Make(dtypes.Float32, 3, 3, 16, 32))
	assert.Equal(t, 144, fanIn)
	assert.Equal(t, 288, fanOut)
	fanIn, fanOut = fanInAndOut(shapes.Make(dtypes.Float32, 512, 1))
	assert.Equal(t, 512, fanIn)
	assert.Equal(t, 1, fanOut)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"fmt"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBlockConfig = BlockConfig{
	NumFeatures:    8,
	GrowthChannels: 4,
	ResidualBeta:   DefaultResidualBeta,
}

func TestResidualDenseBlock(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	output := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		x := IotaFull(g, shapeF32(2, 5, 7, testBlockConfig.NumFeatures))
		return ResidualDenseBlock(ctx.In("rdb"), x, testBlockConfig)
	})
	assert.Equal(t, []int{2, 5, 7, 8}, output.Shape().Dimensions)

	// Each convolution sees the input concatenated with all previous outputs.
	summary := Summarize(ctx.In("rdb"))
	wantInputChannels := []int{8, 12, 16, 20, 24}
	wantOutputChannels := []int{4, 4, 4, 4, 8}
	for ii := range 5 {
		v, found := summary.Find(fmt.Sprintf("conv%d/weights", ii+1))
		require.Truef(t, found, "conv%d/weights not found", ii+1)
		assert.Equal(t, []int{3, 3, wantInputChannels[ii], wantOutputChannels[ii]}, v.Shape.Dimensions)
		_, found = summary.Find(fmt.Sprintf("conv%d/biases", ii+1))
		assert.True(t, found)
	}
	assert.Equal(t, 10, summary.NumVariables)

	// Mismatched number of channels can't be added to the residual.
	require.Panics(t, func() {
		_ = context.MustExecOnce(backend, context.New(), func(ctx *context.Context, g *Graph) *Node {
			x := IotaFull(g, shapeF32(1, 4, 4, 3))
			return ResidualDenseBlock(ctx, x, testBlockConfig)
		})
	})
}

func TestResidualDenseBlockScaling(t *testing.T) {
	// With a negligible ResidualBeta the block is the identity.
	backend := graphtest.BuildTestBackend()
	cfg := testBlockConfig
	cfg.ResidualBeta = 1e-9
	input := tensors.FromShape(shapeF32(1, 3, 3, 8))
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	output := context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		x = AddScalar(x, 1)
		return ResidualDenseBlock(ctx, x, cfg)
	}, input)
	for _, v := range tensors.MustCopyFlatData[float32](output) {
		require.InDelta(t, 1.0, v, 1e-4)
	}
}

func TestResidualInResidualDenseBlock(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(42)
	output := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		x := IotaFull(g, shapeF32(3, 6, 4, testBlockConfig.NumFeatures))
		x = MulScalar(x, 1e-3)
		return ResidualInResidualDenseBlock(ctx.In("rrdb"), x, testBlockConfig)
	})
	assert.Equal(t, []int{3, 6, 4, 8}, output.Shape().Dimensions)

	summary := Summarize(ctx.In("rrdb"))
	assert.Equal(t, 3*10, summary.NumVariables)
	for _, rdb := range []string{"rdb_1", "rdb_2", "rdb_3"} {
		_, found := summary.Find(rdb + "/conv5/weights")
		assert.Truef(t, found, "%s/conv5/weights not found", rdb)
	}
}

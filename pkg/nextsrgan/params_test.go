// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetConfigFromMap(t *testing.T) {
	cfg, err := NetConfigFromMap(map[string]any{"nf": 64, "nb": 23})
	require.NoError(t, err)
	assert.Equal(t, NetConfig{NumFeatures: 64, NumBlocks: 23}, cfg)

	// Numbers decoded from JSON/YAML may come as float64 or int64.
	cfg, err = NetConfigFromMap(map[string]any{"nf": float64(32), "nb": int64(2), "gc": 16})
	require.NoError(t, err)
	assert.Equal(t, NetConfig{NumFeatures: 32, NumBlocks: 2}, cfg)

	_, err = NetConfigFromMap(map[string]any{"nb": 23})
	require.ErrorContains(t, err, `missing key "nf"`)
	_, err = NetConfigFromMap(map[string]any{"nf": 64})
	require.ErrorContains(t, err, `missing key "nb"`)
	_, err = NetConfigFromMap(map[string]any{"nf": 64.5, "nb": 1})
	require.Error(t, err)
	_, err = NetConfigFromMap(map[string]any{"nf": "64", "nb": 1})
	require.Error(t, err)
	_, err = NetConfigFromMap(map[string]any{"nf": 0, "nb": 1})
	require.Error(t, err)
}

func TestConfigFromContext(t *testing.T) {
	ctx := CreateDefaultContext()
	genCfg := GeneratorConfigFromContext(ctx)
	assert.Equal(t, 32, genCfg.Size)
	assert.Equal(t, 3, genCfg.Channels)
	assert.Equal(t, NetConfig{NumFeatures: 64, NumBlocks: 23}, genCfg.Net)
	assert.Equal(t, DefaultGrowthChannels, genCfg.GrowthChannels)
	assert.Equal(t, DefaultResidualBeta, genCfg.ResidualBeta)
	assert.Equal(t, GeneratorScope, genCfg.Name)
	require.NoError(t, genCfg.Validate())

	discCfg := DiscriminatorConfigFromContext(ctx)
	assert.Equal(t, 128, discCfg.Size)
	assert.Equal(t, 3, discCfg.Channels)
	assert.Equal(t, DefaultDiscriminatorFeatures, discCfg.NumFeatures)
	assert.Equal(t, DiscriminatorScope, discCfg.Name)

	ctx.SetParams(map[string]any{
		ParamNumFeatures:           16,
		ParamNumBlocks:             2,
		ParamDiscriminatorFeatures: 8,
		ParamWeightDecay:           1e-4,
	})
	genCfg = GeneratorConfigFromContext(ctx)
	assert.Equal(t, NetConfig{NumFeatures: 16, NumBlocks: 2}, genCfg.Net)
	assert.Equal(t, 1e-4, genCfg.WeightDecay)
	assert.Equal(t, 8, DiscriminatorConfigFromContext(ctx).NumFeatures)

	genCfg.Net.NumBlocks = -1
	require.Error(t, genCfg.Validate())
	require.Error(t, DiscriminatorConfig{NumFeatures: -1}.Validate())
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package netconfig loads NeXtSRGAN network configuration files (YAML) and applies them to a context.
//
// The layout is the one of the training configuration files, e.g.:
//
//	input_size: 32
//	gt_size: 128
//	ch_size: 3
//	network_G:
//	  nf: 64
//	  nb: 23
//	  gc: 32
//	network_D:
//	  nf: 64
//	w_decay: 0.0
//
// Only the keys describing the networks are read, any other (training) keys are ignored.
package netconfig

import (
	"os"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/nextsrgan/pkg/nextsrgan"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config of the generator and discriminator networks.
type Config struct {
	// InputSize is the height and width of the low-resolution images. 0 means dynamic.
	InputSize int `yaml:"input_size"`

	// GroundTruthSize is the height and width of the high-resolution images. If set, it must be
	// 4 times InputSize.
	GroundTruthSize int `yaml:"gt_size"`

	// Channels of the images.
	Channels int `yaml:"ch_size"`

	Generator     GeneratorConfig     `yaml:"network_G"`
	Discriminator DiscriminatorConfig `yaml:"network_D"`

	// WeightDecay for both networks.
	WeightDecay float64 `yaml:"w_decay"`
}

// GeneratorConfig is the "network_G" section.
type GeneratorConfig struct {
	NumFeatures    int `yaml:"nf"`
	NumBlocks      int `yaml:"nb"`
	GrowthChannels int `yaml:"gc"`
}

// DiscriminatorConfig is the "network_D" section.
type DiscriminatorConfig struct {
	NumFeatures int `yaml:"nf"`
}

// Default returns the configuration matching nextsrgan.CreateDefaultContext.
func Default() *Config {
	return &Config{
		InputSize:       32,
		GroundTruthSize: 32 * nextsrgan.UpscaleFactor,
		Channels:        3,
		Generator: GeneratorConfig{
			NumFeatures:    64,
			NumBlocks:      23,
			GrowthChannels: nextsrgan.DefaultGrowthChannels,
		},
		Discriminator: DiscriminatorConfig{
			NumFeatures: nextsrgan.DefaultDiscriminatorFeatures,
		},
	}
}

// Load reads and parses the configuration file in path.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read network configuration from %q", path)
	}
	cfg, err := Parse(contents)
	if err != nil {
		return nil, errors.WithMessagef(err, "network configuration in %q", path)
	}
	return cfg, nil
}

// Parse the YAML contents of a configuration file. Missing keys take the values of Default.
// The configuration is validated.
func Parse(contents []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse network configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration can't be used to build the networks.
func (cfg *Config) Validate() error {
	if cfg.InputSize < 0 {
		return errors.Errorf("invalid input_size=%d", cfg.InputSize)
	}
	if cfg.Channels <= 0 {
		return errors.Errorf("invalid ch_size=%d, it must be > 0", cfg.Channels)
	}
	if cfg.InputSize > 0 && cfg.GroundTruthSize > 0 && cfg.GroundTruthSize != nextsrgan.UpscaleFactor*cfg.InputSize {
		return errors.Errorf("gt_size=%d must be %d times input_size=%d",
			cfg.GroundTruthSize, nextsrgan.UpscaleFactor, cfg.InputSize)
	}
	if err := cfg.NetConfig().Validate(); err != nil {
		return errors.WithMessage(err, "network_G")
	}
	if cfg.Generator.GrowthChannels <= 0 {
		return errors.Errorf("invalid network_G.gc=%d, it must be > 0", cfg.Generator.GrowthChannels)
	}
	if cfg.Discriminator.NumFeatures <= 0 {
		return errors.Errorf("invalid network_D.nf=%d, it must be > 0", cfg.Discriminator.NumFeatures)
	}
	if cfg.WeightDecay < 0 {
		return errors.Errorf("invalid w_decay=%g", cfg.WeightDecay)
	}
	return nil
}

// NetConfig returns the generator trunk configuration.
func (cfg *Config) NetConfig() nextsrgan.NetConfig {
	return nextsrgan.NetConfig{
		NumFeatures: cfg.Generator.NumFeatures,
		NumBlocks:   cfg.Generator.NumBlocks,
	}
}

// ApplyToContext sets the nextsrgan hyperparameters in ctx.
func (cfg *Config) ApplyToContext(ctx *context.Context) {
	ctx.SetParams(map[string]any{
		nextsrgan.ParamInputSize:             cfg.InputSize,
		nextsrgan.ParamChannels:              cfg.Channels,
		nextsrgan.ParamNumFeatures:           cfg.Generator.NumFeatures,
		nextsrgan.ParamNumBlocks:             cfg.Generator.NumBlocks,
		nextsrgan.ParamGrowthChannels:        cfg.Generator.GrowthChannels,
		nextsrgan.ParamWeightDecay:           cfg.WeightDecay,
		nextsrgan.ParamDiscriminatorFeatures: cfg.Discriminator.NumFeatures,
	})
}

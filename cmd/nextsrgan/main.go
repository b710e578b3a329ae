// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// nextsrgan builds the NeXtSRGAN generator and/or discriminator, runs one forward pass on a batch
// of zero images, and reports the shapes, parameter counts and variables of the models.
//
// Usage:
//
//	nextsrgan -config=configs/nextsrgan.yaml -model=both -summary -vars
//	nextsrgan -set="nextsrgan_nf=32;nextsrgan_nb=4" -params
package main

import (
	"flag"
	"os"
	"slices"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/nextsrgan/pkg/netconfig"
	"github.com/gomlx/nextsrgan/pkg/nextsrgan"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagConfig = flag.String("config", "", "YAML network configuration file (input_size, ch_size, network_G, network_D, w_decay). "+
		"It is applied before the -set settings.")
	flagModel   = flag.String("model", "both", `Model to build: "generator", "discriminator" or "both".`)
	flagBatch   = flag.Int("batch", 1, "Batch size of the forward pass.")
	flagSummary = flag.Bool("summary", false, "Display a summary of the models: shapes, number of variables and parameters. "+
		"It is the default if no other report is selected.")
	flagVars   = flag.Bool("vars", false, "Lists the variables of the models.")
	flagParams = flag.Bool("params", false, "Lists the hyperparameters.")
	flagFreeze = flag.Bool("freeze_discriminator", false, "Freezes the discriminator (see nextsrgan.SetTrainable) "+
		"before reporting its variables.")
)

// defaultInspectSize is used as the low-resolution size when nextsrgan_input_size is 0 (dynamic).
const defaultInspectSize = 32

var validModels = []string{"generator", "discriminator", "both"}

func main() {
	ctx := nextsrgan.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()

	if *flagConfig != "" {
		cfg, err := netconfig.Load(*flagConfig)
		if err != nil {
			klog.Fatalf("Failed to load configuration: %+v", err)
		}
		cfg.ApplyToContext(ctx)
	}
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))
	if len(paramsSet) > 0 {
		klog.V(1).Infof("Settings:\n%s", commandline.SprintModifiedContextSettings(ctx, paramsSet))
	}
	if !slices.Contains(validModels, *flagModel) {
		klog.Errorf("Invalid -model=%q, valid values are %q", *flagModel, validModels)
		os.Exit(1)
	}

	backend := backends.MustNew()
	klog.V(1).Infof("Backend: %s", backend.Description())
	reports, err := buildAndRun(backend, ctx, *flagModel, *flagBatch, *flagFreeze)
	if err != nil {
		klog.Errorf("Failed to build models: %+v", err)
		os.Exit(1)
	}

	if !*flagSummary && !*flagVars && !*flagParams {
		*flagSummary = true
	}
	if *flagSummary {
		writeSummary(os.Stdout, reports)
	}
	if *flagParams {
		writeParams(os.Stdout, ctx)
	}
	if *flagVars {
		for _, r := range reports {
			writeVariables(os.Stdout, r)
		}
	}
}

// buildAndRun builds the selected models with the hyperparameters in ctx, and runs them once on a batch of
// zero images.
func buildAndRun(backend backends.Backend, ctx *context.Context, which string, batchSize int, freezeDiscriminator bool) (
	[]modelReport, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("invalid batch size %d", batchSize)
	}
	var reports []modelReport
	if which == "generator" || which == "both" {
		cfg := nextsrgan.GeneratorConfigFromContext(ctx)
		size, channels := inspectShape(cfg.Size, cfg.Channels)
		m, err := nextsrgan.NewGenerator(backend, ctx, cfg)
		if err != nil {
			return nil, err
		}
		r, err := run(m, batchSize, size, channels)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if which == "discriminator" || which == "both" {
		cfg := nextsrgan.DiscriminatorConfigFromContext(ctx)
		size, channels := inspectShape(cfg.Size, cfg.Channels)
		if cfg.Size <= 0 {
			size *= nextsrgan.UpscaleFactor
		}
		m, err := nextsrgan.NewDiscriminator(backend, ctx, cfg)
		if err != nil {
			return nil, err
		}
		if freezeDiscriminator {
			// Variables are only created on the first call.
			if _, err = m.CallZeros(batchSize, size, size, channels); err != nil {
				return nil, err
			}
			m.SetTrainable(false)
		}
		r, err := run(m, batchSize, size, channels)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		return nil, errors.Errorf("no model selected with %q", which)
	}
	return reports, nil
}

func inspectShape(size, channels int) (int, int) {
	if size <= 0 {
		size = defaultInspectSize
	}
	if channels <= 0 {
		channels = 3
	}
	return size, channels
}

// run the model once and summarize it.
func run(m *nextsrgan.Model, batchSize, size, channels int) (modelReport, error) {
	output, err := m.CallZeros(batchSize, size, size, channels)
	if err != nil {
		return modelReport{}, err
	}
	defer func() { _ = output.FinalizeAll() }()
	klog.V(1).Infof("Model %q: %d parameters", m.Name(), m.NumParameters())
	return modelReport{
		Name:    m.Name(),
		Input:   shapes.Make(output.DType(), batchSize, size, size, channels),
		Output:  output.Shape(),
		Summary: nextsrgan.Summarize(m.Context()),
	}, nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"slices"
	"strings"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Model is a callable generator or discriminator: it owns the executor of the model's forward pass, and its
// variables live in the context given at construction, under the scope Model.Scope.
//
// The forward pass is built for inference (Context.IsTraining is false). Training loops should use
// Generator and Discriminator (or GeneratorModelGraph and DiscriminatorModelGraph) directly, sharing
// the same context.
//
// Variables are created, and initialized, on the first call.
type Model struct {
	name string
	ctx  *context.Context // Scoped at the model's scope.
	exec *context.Exec
}

// NewGenerator validates cfg and returns the generator Model. See Generator.
func NewGenerator(backend backends.Backend, ctx *context.Context, cfg GeneratorConfig) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "NewGenerator")
	}
	cfg = cfg.withDefaults()
	return newModel(backend, ctx, cfg.Name, func(ctx *context.Context, images *Node) *Node {
		return Generator(ctx, images, cfg)
	})
}

// NewDiscriminator validates cfg and returns the discriminator Model. See Discriminator.
func NewDiscriminator(backend backends.Backend, ctx *context.Context, cfg DiscriminatorConfig) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "NewDiscriminator")
	}
	cfg = cfg.withDefaults()
	return newModel(backend, ctx, cfg.Name, func(ctx *context.Context, images *Node) *Node {
		return Discriminator(ctx, images, cfg)
	})
}

func newModel(backend backends.Backend, ctx *context.Context, name string,
	modelFn func(ctx *context.Context, images *Node) *Node) (*Model, error) {
	if ctx == nil {
		ctx = context.New()
	}
	m := &Model{
		name: name,
		ctx:  ctx.In(name),
	}
	// Unchecked, so variables loaded from a checkpoint, or created by a previous model, are reused.
	exec, err := context.NewExec(backend, ctx.Checked(false), modelFn)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create executor for model %q", name)
	}
	m.exec = exec
	klog.V(1).Infof("Created model %q", name)
	return m, nil
}

// Call runs the forward pass of the model on images, shaped `[batch, height, width, channels]`.
// images can be a *tensors.Tensor or a Go multi-dimensional slice.
//
// A new graph is built (and JIT-compiled) for each new input shape. Shape mismatches, e.g. images with
// a size different from the one configured, are returned as errors.
func (m *Model) Call(images any) (*tensors.Tensor, error) {
	var output *tensors.Tensor
	err := exceptions.TryCatch[error](func() {
		var err error
		output, err = m.exec.Exec1(images)
		if err != nil {
			panic(err)
		}
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "model %q failed", m.name)
	}
	return output, nil
}

// CallZeros runs the forward pass on a batch of zero images with the given shape.
// It's a convenient way to create and initialize the model's variables.
func (m *Model) CallZeros(batchSize, height, width, channels int) (*tensors.Tensor, error) {
	images := tensors.FromShape(shapes.Make(dtypes.Float32, batchSize, height, width, channels))
	return m.Call(images)
}

// Name of the model, also the scope of its variables.
func (m *Model) Name() string { return m.name }

// Scope of the model's variables in the context.
func (m *Model) Scope() string { return m.ctx.Scope() }

// Context of the model, scoped at the model's scope.
func (m *Model) Context() *context.Context { return m.ctx }

// Variables of the model, sorted by scope and name.
// It is empty until the model is first called.
func (m *Model) Variables() []*context.Variable {
	vars := slices.Collect(m.ctx.IterVariablesInScope())
	slices.SortFunc(vars, func(a, b *context.Variable) int {
		if c := strings.Compare(a.Scope(), b.Scope()); c != 0 {
			return c
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return vars
}

// NumParameters returns the total number of values in the model's variables, including the non-trainable ones.
func (m *Model) NumParameters() int {
	var total int
	for v := range m.ctx.IterVariablesInScope() {
		total += v.Shape().Size()
	}
	return total
}

// SetTrainable freezes (trainable=false) or unfreezes the model. See SetTrainable.
func (m *Model) SetTrainable(trainable bool) {
	SetTrainable(m.ctx, trainable)
}

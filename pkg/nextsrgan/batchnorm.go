// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"
	"k8s.io/klog/v2"
)

const (
	// BatchNormMomentum of the moving averages of the mean and variance.
	BatchNormMomentum = 0.9

	// BatchNormEpsilon added to the variance before normalizing.
	BatchNormEpsilon = 1e-5
)

// BatchNormalization normalizes x (shaped `[batch, height, width, channels]`) per channel, with a learned
// scale and offset.
//
// It only normalizes with the batch statistics (and updates the moving averages) if both the graph is
// being built for training (Context.IsTraining) and the scope is trainable (IsTrainable).
// Otherwise, it runs in inference mode, using the stored moving averages. This keeps a frozen
// discriminator's statistics from drifting while the generator is being trained against it.
// A frozen scope also keeps its averages during batchnorm.UpdateAverages (the
// train.BatchNormalizationUpdatePhase graph parameter).
//
// Inference is built with graph operations (not the backend batch normalization), so gradients flow
// through a frozen discriminator to the generator.
//
// The variables are created under the sub-scope "batch_normalization".
func BatchNormalization(ctx *context.Context, x *Node) *Node {
	trainable := IsTrainable(ctx)
	out := batchnorm.New(ctx, x, -1).
		Momentum(BatchNormMomentum).
		Epsilon(BatchNormEpsilon).
		Trainable(trainable).
		FrozenAverages(!trainable).
		UseBackendInference(false).
		Done()
	if !trainable {
		// batchnorm marks scale and offset as trainable whenever the graph is built.
		for v := range ctx.In(batchNormScope).IterVariablesInScope() {
			if isLearnable(v) {
				v.SetTrainable(false)
			}
		}
	}
	return out
}

// batchNormScope is the sub-scope created by batchnorm for its variables.
const batchNormScope = "batch_normalization"

// IsTrainable returns whether the layers under the context's current scope are trainable.
// See SetTrainable.
func IsTrainable(ctx *context.Context) bool {
	return context.GetParamOr(ctx, ParamTrainable, true)
}

// SetTrainable freezes (trainable=false) or unfreezes the layers under the context's current scope.
//
// It sets ParamTrainable in the current scope, which affects graphs built afterwards, and it sets
// Variable.Trainable on the learnable variables already created under the scope, so optimizers skip them.
// The moving averages of the batch normalization are never trainable and are left untouched.
func SetTrainable(ctx *context.Context, trainable bool) {
	ctx.SetParam(ParamTrainable, trainable)
	var count int
	ctx.EnumerateVariablesInScope(func(v *context.Variable) {
		if !isLearnable(v) {
			return
		}
		v.SetTrainable(trainable)
		count++
	})
	klog.V(1).Infof("SetTrainable(%q, %v): %d variables updated", ctx.Scope(), trainable, count)
}

// isLearnable returns false for the variables that are not updated by gradient descent.
func isLearnable(v *context.Variable) bool {
	if v.Name() == context.RNGStateVariableName {
		return false
	}
	switch v.Name() {
	case "mean", "variance", "avg_weight":
		// Batch normalization moving averages.
		return false
	}
	return true
}

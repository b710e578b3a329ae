// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/ctxtest"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/stretchr/testify/require"
)

func TestRegularizer(t *testing.T) {
	require.Nil(t, Regularizer(0), "a weight decay of 0 must be the same as no regularization")
	require.NotNil(t, Regularizer(DefaultWeightsDecay))

	ctxtest.RunTestGraphFn(t, "Regularizer(0.5)", func(ctx *context.Context, g *Graph) (inputs, outputs []*Node) {
		wVar := ctx.VariableWithValue("w", [][]float32{{1, 2}, {3, 4}})
		Regularizer(0.5)(ctx, g, wVar)
		loss := train.GetLosses(ctx, g)
		inputs = []*Node{wVar.ValueGraph(g)}
		outputs = []*Node{loss}
		return
	}, []any{
		float32(0.5 * (1 + 4 + 9 + 16)),
	}, 1e-4)
}

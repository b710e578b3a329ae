// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"github.com/gomlx/gomlx/pkg/ml/layers/regularizers"
)

// DefaultWeightsDecay is the weight decay used by Regularizer callers that don't have an explicit value.
const DefaultWeightsDecay = 5e-4

// Regularizer returns the L2 weight decay applied to the kernels of convolutions and dense layers:
// it adds `weightsDecay * Σw²` to the training losses.
//
// A weightsDecay of 0 returns nil, which the layers treat as no regularization.
func Regularizer(weightsDecay float64) regularizers.Regularizer {
	return regularizers.L2(weightsDecay)
}

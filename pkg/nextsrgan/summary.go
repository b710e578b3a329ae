// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nextsrgan

import (
	"slices"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Summary of the variables under a context scope.
type Summary struct {
	Scope string

	// NumVariables under the scope, including the random number generator state, if any.
	NumVariables int

	// TrainableParameters and FrozenParameters are the number of values in trainable and non-trainable variables.
	TrainableParameters, FrozenParameters int

	// Memory used by all the variables, in bytes.
	Memory uintptr

	// Variables sorted by scope and name.
	Variables []VariableSummary
}

// VariableSummary describes one variable.
type VariableSummary struct {
	Scope, Name string
	Shape       shapes.Shape
	Trainable   bool
}

// Path of the variable: its scope joined with its name.
func (v VariableSummary) Path() string {
	if v.Scope == context.RootScope {
		return v.Scope + v.Name
	}
	return v.Scope + context.ScopeSeparator + v.Name
}

// NumParameters is the total number of parameters in the scope, trainable or not.
func (s Summary) NumParameters() int {
	return s.TrainableParameters + s.FrozenParameters
}

// Find returns the summary of the variable with the given path, relative to the summary's scope.
// E.g.: Find("RRDB_trunk/RRDB_0/rdb_1/conv1/weights").
func (s Summary) Find(relativePath string) (VariableSummary, bool) {
	path := s.Scope + context.ScopeSeparator + strings.TrimPrefix(relativePath, context.ScopeSeparator)
	if s.Scope == context.RootScope {
		path = context.RootScope + strings.TrimPrefix(relativePath, context.ScopeSeparator)
	}
	for _, v := range s.Variables {
		if v.Path() == path {
			return v, true
		}
	}
	return VariableSummary{}, false
}

// Summarize the variables under the current scope of ctx.
func Summarize(ctx *context.Context) Summary {
	s := Summary{Scope: ctx.Scope()}
	for v := range ctx.IterVariablesInScope() {
		s.NumVariables++
		size := v.Shape().Size()
		if v.Trainable {
			s.TrainableParameters += size
		} else {
			s.FrozenParameters += size
		}
		s.Memory += v.Shape().Memory()
		s.Variables = append(s.Variables, VariableSummary{
			Scope:     v.Scope(),
			Name:      v.Name(),
			Shape:     v.Shape(),
			Trainable: v.Trainable,
		})
	}
	slices.SortFunc(s.Variables, func(a, b VariableSummary) int {
		if c := strings.Compare(a.Scope, b.Scope); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return s
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/nextsrgan/pkg/nextsrgan"
)

// modelReport holds the results of building and running one model.
type modelReport struct {
	Name          string
	Input, Output shapes.Shape
	Summary       nextsrgan.Summary
}

// writeSummary writes one table with a column per model: shapes, variables, parameters and memory.
func writeSummary(w io.Writer, reports []modelReport) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Summary"))
	t := newTable(lipgloss.Right, lipgloss.Left)
	headers := []string{"model"}
	for _, r := range reports {
		headers = append(headers, r.Name)
	}
	t.Headers(headers...)
	rows := []struct {
		title string
		fn    func(r modelReport) string
	}{
		{"scope", func(r modelReport) string { return r.Summary.Scope }},
		{"input", func(r modelReport) string { return r.Input.String() }},
		{"output", func(r modelReport) string { return r.Output.String() }},
		{"# variables", func(r modelReport) string { return humanize.Comma(int64(r.Summary.NumVariables)) }},
		{"# parameters", func(r modelReport) string { return humanize.Comma(int64(r.Summary.NumParameters())) }},
		{"# trainable", func(r modelReport) string { return humanize.Comma(int64(r.Summary.TrainableParameters)) }},
		{"# frozen", func(r modelReport) string { return humanize.Comma(int64(r.Summary.FrozenParameters)) }},
		{"# bytes", func(r modelReport) string { return humanize.Bytes(uint64(r.Summary.Memory)) }},
	}
	for _, row := range rows {
		values := []string{row.title}
		for _, r := range reports {
			values = append(values, row.fn(r))
		}
		t.Row(false, values...)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

// writeVariables writes the table of variables of a model. Non-trainable variables are highlighted.
func writeVariables(w io.Writer, r modelReport) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Variables of %q", r.Name)))
	t := newTable(lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	t.Headers("Scope", "Name", "Shape", "Size", "Bytes", "Trainable")
	for _, v := range r.Summary.Variables {
		scope := strings.TrimPrefix(v.Scope, r.Summary.Scope)
		if scope == "" {
			scope = context.ScopeSeparator
		}
		t.Row(!v.Trainable,
			scope, v.Name, v.Shape.String(),
			humanize.Comma(int64(v.Shape.Size())),
			humanize.Bytes(uint64(v.Shape.Memory())),
			fmt.Sprintf("%v", v.Trainable))
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

// writeParams writes the hyperparameters of the context, sorted by scope and key.
func writeParams(w io.Writer, ctx *context.Context) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Hyperparameters"))
	t := newTable(lipgloss.Left)
	t.Headers("Scope", "Name", "Type", "Value")
	var rows [][]string
	ctx.EnumerateParams(func(scope, key string, value any) {
		rows = append(rows, []string{scope, key, fmt.Sprintf("%T", value), fmt.Sprintf("%v", value)})
	})
	slices.SortFunc(rows, func(a, b []string) int {
		if c := strings.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return strings.Compare(a[1], b[1])
	})
	for _, row := range rows {
		t.Row(false, row...)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

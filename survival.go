// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PredictLogSurvival evaluates the fitted mixture at each query horizon.
// Entry (i, j) of the returned [n, len(horizons)] matrix is
//  log P(T > horizons[j] | x_i)
// computed as the exact marginal over components,
//  logsumexp_g(log w_g(x_i) + log S_g(horizons[j]))
// The event CDF at a horizon is 1 minus the exponential of the entry.
// Horizons apply identically to every instance and must be non-negative.
// Evaluation is plain float math over the current parameters; it performs
// no mutation, so concurrent calls on a fitted model are safe.
func PredictLogSurvival(m Model, x mat.Matrix, horizons []float64) (*mat.Dense, error) {
	_, logSurvival, err := m.Distribution().kernels()
	if err != nil {
		return nil, err
	}
	shape, scale, logits := m.Forward(x)

	n, k := shape.Dims()
	logw := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		logSoftmax(logw.RawRowView(i), logits.RawRowView(i))
	}

	out := mat.NewDense(n, len(horizons), nil)
	sum := make([]float64, k)
	for j, th := range horizons {
		for i := 0; i < n; i++ {
			for g := 0; g < k; g++ {
				sum[g] = logw.At(i, g) + logSurvival(shape.At(i, g), scale.At(i, g), th)
			}
			out.Set(i, j, floats.LogSumExp(sum))
		}
	}
	return out, nil
}

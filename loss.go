// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"gonum.org/v1/gonum/mat"
)

// A Model provides the per-instance mixture parameterization of the event
// time distribution. MixtureNet is the canonical implementation; the losses
// and the survival evaluator accept the interface so that alternative
// feature networks can be plugged in.
type Model interface {
	// Components returns K, the number of mixture components.
	Components() int
	// Distribution returns the parametric family of the components.
	Distribution() Distribution
	// Discount returns the censoring discount α in [0, 1].
	Discount() float64
	// Forward maps a [n, inputDim] feature matrix to raw shape, raw scale
	// and gate logits, each [n, K].
	Forward(x mat.Matrix) (shape, scale, logits *mat.Dense)
	// ShapeScale returns the feature-independent base parameters, each
	// [1, K], used by the unconditional objective.
	ShapeScale() (shape, scale *mat.Dense)
}

// ConditionalLoss returns the negative censored log-likelihood of the batch
// under the feature-conditioned mixture,
//  -( \sum_{e_i=1} logfᵢ + α \sum_{e_i=0} logsᵢ ) / n
// where logf and logs are the mixture-aggregated log-density and
// log-survival of instance i. With elbo true the aggregation is the
// softmax-weighted lower bound; otherwise it is the exact marginal
// log-likelihood. The two coincide when K = 1.
//
// ConditionalLoss is a pure function of the model parameters and the batch.
// Times must be strictly positive and finite and e must be 0/1; violating
// either is a caller error and the resulting non-finite values propagate.
func ConditionalLoss(m Model, x mat.Matrix, t, e []float64, elbo bool) (float64, error) {
	logPDF, logSurvival, err := m.Distribution().kernels()
	if err != nil {
		return 0, err
	}
	n := len(t)
	if xr, _ := x.Dims(); xr != n || len(e) != n {
		panic(dimensionMismatch)
	}
	shape, scale, logits := m.Forward(x)

	k := m.Components()
	lf := mat.NewDense(n, k, nil)
	ls := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for g := 0; g < k; g++ {
			a, b := shape.At(i, g), scale.At(i, g)
			lf.Set(i, g, logPDF(a, b, t[i]))
			ls.Set(i, g, logSurvival(a, b, t[i]))
		}
	}

	var agg Aggregator = Exact{}
	if elbo {
		agg = ELBO{}
	}
	logf := make([]float64, n)
	logs := make([]float64, n)
	agg.Aggregate(logf, logits, lf)
	agg.Aggregate(logs, logits, ls)

	alpha := m.Discount()
	var ll float64
	for i := range t {
		if e[i] != 0 {
			ll += logf[i]
		} else {
			ll += alpha * logs[i]
		}
	}
	return -ll / float64(n), nil
}

// UnconditionalLoss returns the negative censored log-likelihood of the
// batch under the feature-independent base parameters, with every component
// weighted uniformly (a plain sum over components, no gating). It is used
// to pretrain the base shape and scale before the feature network has
// learned anything, so it deliberately ignores the gate.
func UnconditionalLoss(m Model, t, e []float64) (float64, error) {
	logPDF, logSurvival, err := m.Distribution().kernels()
	if err != nil {
		return 0, err
	}
	n := len(t)
	if len(e) != n {
		panic(dimensionMismatch)
	}
	shape, scale := m.ShapeScale()
	if sr, sc := shape.Dims(); sr != 1 || sc != m.Components() {
		panic(dimensionMismatch)
	}

	var ll float64
	for g := 0; g < m.Components(); g++ {
		a, b := shape.At(0, g), scale.At(0, g)
		for i, ti := range t {
			if e[i] != 0 {
				ll += logPDF(a, b, ti)
			} else {
				ll += logSurvival(a, b, ti)
			}
		}
	}
	return -ll / float64(n), nil
}

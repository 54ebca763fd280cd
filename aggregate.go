// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var dimensionMismatch = "dsm: dimension mismatch"

// An Aggregator combines per-component log-likelihoods with per-instance
// gate logits into a single log-likelihood per instance. Both losses and
// the survival evaluator reduce over the mixture through an Aggregator.
type Aggregator interface {
	// Aggregate fills dst[i] with the aggregated log-likelihood of row i.
	// logits and ll must both be [len(dst), K] or Aggregate panics.
	Aggregate(dst []float64, logits, ll mat.Matrix)
}

// ELBO aggregates with softmax responsibilities,
//  \sum_g w_g ll_g, w = softmax(logits)
// treating the mixture assignment as a latent variable with a learned but
// unmarginalized posterior. By Jensen's inequality this is a lower bound on
// the exact marginal log-likelihood.
type ELBO struct{}

// Aggregate computes the softmax-weighted component log-likelihood of each
// row.
func (ELBO) Aggregate(dst []float64, logits, ll mat.Matrix) {
	n, k := checkAggregateDims(dst, logits, ll)
	w := make([]float64, k)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, logits)
		softmax(w, row)
		mat.Row(row, i, ll)
		dst[i] = floats.Dot(w, row)
	}
}

// Exact aggregates in the log domain,
//  logsumexp_g(log w_g + ll_g), log w = logsoftmax(logits)
// which is the exact marginal mixture log-likelihood.
type Exact struct{}

// Aggregate computes the marginal mixture log-likelihood of each row.
func (Exact) Aggregate(dst []float64, logits, ll mat.Matrix) {
	n, k := checkAggregateDims(dst, logits, ll)
	logw := make([]float64, k)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, logits)
		logSoftmax(logw, row)
		mat.Row(row, i, ll)
		floats.Add(logw, row)
		dst[i] = floats.LogSumExp(logw)
	}
}

func checkAggregateDims(dst []float64, logits, ll mat.Matrix) (n, k int) {
	n, k = ll.Dims()
	gn, gk := logits.Dims()
	if gn != n || gk != k || len(dst) != n {
		panic(dimensionMismatch)
	}
	return n, k
}

// logSoftmax writes the log-softmax of logits into dst.
func logSoftmax(dst, logits []float64) {
	lse := floats.LogSumExp(logits)
	for i, v := range logits {
		dst[i] = v - lse
	}
}

// softmax writes the softmax of logits into dst. It is computed through
// log-softmax so that large-magnitude logits cannot overflow.
func softmax(dst, logits []float64) {
	logSoftmax(dst, logits)
	for i, v := range dst {
		dst[i] = math.Exp(v)
	}
}

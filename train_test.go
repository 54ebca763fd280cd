// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteppersDescendQuadratic(t *testing.T) {
	// Both optimizers must make progress on f(p) = |p|²/2, whose
	// gradient is p itself.
	for _, name := range []string{OptimizerAdam, OptimizerSGD} {
		params := []float64{3, -2}
		opt, err := newStepper(name, 0.1, len(params))
		require.NoError(t, err)

		norm := func() float64 { return math.Hypot(params[0], params[1]) }
		before := norm()
		for i := 0; i < 200; i++ {
			grad := []float64{params[0], params[1]}
			opt.Step(params, grad)
		}
		assert.True(t, norm() < before/10, "%s: %v -> %v", name, before, norm())
	}
}

func TestNewStepperUnknownOptimizer(t *testing.T) {
	_, err := newStepper("Adagrad", 0.1, 2)
	assert.Error(t, err)
}

func TestPretrainImprovesUnconditionalLoss(t *testing.T) {
	rnd := rand.New(rand.NewSource(15))
	net := NewMixtureNet(1, 2, nil, Weibull, 1000, 1, rnd)

	// Uncensored draws from a unit exponential.
	n := 50
	tt := make([]float64, n)
	e := make([]float64, n)
	for i := range tt {
		tt[i] = 1e-3 - math.Log(1-rnd.Float64())
		e[i] = 1
	}

	before, err := UnconditionalLoss(net, tt, e)
	require.NoError(t, err)

	cfg := DefaultTrainConfig()
	cfg.PretrainIters = 50
	require.NoError(t, pretrain(net, tt, e, cfg))

	after, err := UnconditionalLoss(net, tt, e)
	require.NoError(t, err)
	assert.True(t, after < before, "pretrain did not reduce loss: %v -> %v", before, after)

	// Pretraining touches only the base parameters.
	bases := net.Params()[:2*net.Components()]
	for _, v := range bases {
		assert.False(t, math.IsNaN(v))
	}
}

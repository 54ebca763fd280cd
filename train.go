// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"log"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// TrainConfig collects the hyperparameters of Fit. The zero value is not
// useful; DefaultTrainConfig supplies the defaults of the reference
// training recipe.
type TrainConfig struct {
	// Iters is the number of passes over the training split.
	Iters int
	// LearningRate is the optimizer step size.
	LearningRate float64
	// BatchSize is the mini-batch size.
	BatchSize int
	// ELBO selects the lower-bound objective for training; validation
	// loss is always the exact marginal likelihood.
	ELBO bool
	// Optimizer is one of OptimizerAdam or OptimizerSGD.
	Optimizer string
	// ValidationFraction of the data is held out for model selection.
	ValidationFraction float64
	// PretrainIters is the number of unconditional-objective steps used
	// to initialize the base shape and scale.
	PretrainIters int
	// Seed drives shuffling, splitting and weight initialization.
	Seed int64
	// Logger, when non-nil, receives per-iteration progress.
	Logger *log.Logger
}

// Supported Optimizer values.
const (
	OptimizerAdam = "Adam"
	OptimizerSGD  = "SGD"
)

// DefaultTrainConfig returns the reference hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Iters:              10,
		LearningRate:       1e-3,
		BatchSize:          100,
		ELBO:               true,
		Optimizer:          OptimizerAdam,
		ValidationFraction: 0.15,
		PretrainIters:      100,
		Seed:               100,
	}
}

// A stepper applies one gradient-descent update to a parameter vector.
type stepper interface {
	Step(params, grad []float64)
}

func newStepper(optimizer string, lr float64, dim int) (stepper, error) {
	switch optimizer {
	case OptimizerAdam:
		return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, m: make([]float64, dim), v: make([]float64, dim)}, nil
	case OptimizerSGD:
		return sgd{lr: lr}, nil
	default:
		return nil, errors.Errorf("dsm: unknown optimizer %q", optimizer)
	}
}

// adam is the bias-corrected adaptive moment estimation update.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  []float64
}

func (a *adam) Step(params, grad []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, g := range grad {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*g
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*g*g
		params[i] -= a.lr * (a.m[i] / c1) / (math.Sqrt(a.v[i]/c2) + a.eps)
	}
}

type sgd struct {
	lr float64
}

func (s sgd) Step(params, grad []float64) {
	for i, g := range grad {
		params[i] -= s.lr * g
	}
}

// gradStep evaluates the objective's gradient at the live parameter bundle
// by central differences and applies one optimizer update. The objective is
// read-only; all mutation happens here.
func gradStep(net *MixtureNet, obj func() (float64, error), opt stepper, grad []float64) error {
	params := net.Params()
	var objErr error
	f := func(p []float64) float64 {
		copy(params, p)
		v, err := obj()
		if err != nil && objErr == nil {
			objErr = err
		}
		return v
	}
	x := make([]float64, len(params))
	copy(x, params)
	fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
	copy(params, x)
	if objErr != nil {
		return objErr
	}
	opt.Step(params, grad)
	return nil
}

// pretrain fits the base shape and scale to the whole training split with
// the unconditional objective, leaving the embedding and head weights
// untouched. Only the first 2K entries of the bundle (the bases) receive
// gradient mass, so the optimizer is run on that prefix alone.
func pretrain(net *MixtureNet, t, e []float64, cfg TrainConfig) error {
	bases := net.Params()[:2*net.Components()]
	opt, err := newStepper(cfg.Optimizer, 1e-2, len(bases))
	if err != nil {
		return err
	}
	grad := make([]float64, len(bases))
	var objErr error
	f := func(p []float64) float64 {
		copy(bases, p)
		v, err := UnconditionalLoss(net, t, e)
		if err != nil && objErr == nil {
			objErr = err
		}
		return v
	}
	x := make([]float64, len(bases))
	for iter := 0; iter < cfg.PretrainIters; iter++ {
		copy(x, bases)
		fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
		copy(bases, x)
		if objErr != nil {
			return errors.Wrap(objErr, "pretraining")
		}
		opt.Step(bases, grad)
	}
	return nil
}

// train runs mini-batch gradient descent on the conditional objective,
// tracking the exact-likelihood validation loss and restoring the best
// parameters seen.
func train(net *MixtureNet, x *mat.Dense, t, e []float64, xv *mat.Dense, tv, ev []float64, cfg TrainConfig, rnd *rand.Rand) (float64, error) {
	n := len(t)
	opt, err := newStepper(cfg.Optimizer, cfg.LearningRate, len(net.Params()))
	if err != nil {
		return 0, err
	}
	grad := make([]float64, len(net.Params()))

	best := math.Inf(1)
	bestParams := make([]float64, len(net.Params()))
	copy(bestParams, net.Params())

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	_, d := x.Dims()
	for iter := 0; iter < cfg.Iters; iter++ {
		rnd.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		for lo := 0; lo < n; lo += cfg.BatchSize {
			hi := lo + cfg.BatchSize
			if hi > n {
				hi = n
			}
			bx := mat.NewDense(hi-lo, d, nil)
			bt := make([]float64, hi-lo)
			be := make([]float64, hi-lo)
			for i, p := range perm[lo:hi] {
				bx.SetRow(i, x.RawRowView(p))
				bt[i] = t[p]
				be[i] = e[p]
			}
			obj := func() (float64, error) {
				return ConditionalLoss(net, bx, bt, be, cfg.ELBO)
			}
			if err := gradStep(net, obj, opt, grad); err != nil {
				return 0, errors.Wrapf(err, "training iteration %d", iter)
			}
		}

		valLoss, err := ConditionalLoss(net, xv, tv, ev, false)
		if err != nil {
			return 0, errors.Wrapf(err, "validation at iteration %d", iter)
		}
		if cfg.Logger != nil {
			cfg.Logger.Printf("iter %d: validation loss %.6f", iter, valLoss)
		}
		if valLoss < best {
			best = valLoss
			copy(bestParams, net.Params())
		}
	}

	copy(net.Params(), bestParams)
	return best, nil
}

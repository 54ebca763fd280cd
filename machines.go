// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NotFittedError is returned by the prediction methods of a
// DeepSurvivalMachines that has not been successfully fit.
type NotFittedError struct{}

func (*NotFittedError) Error() string {
	return "dsm: model has not been fitted; call Fit on training data first"
}

// DeepSurvivalMachines is the public interface to the model. It is
// instantiated with hyperparameters and fit on a feature matrix, event or
// censoring times, and event indicators. The prediction methods are
// read-only once Fit has returned and may be called concurrently.
type DeepSurvivalMachines struct {
	// K is the number of mixture components. Default 3.
	K int
	// Dist is the component family. Default Weibull.
	Dist Distribution
	// Layers gives the hidden layer widths of the feature network. Nil
	// means the parameter heads act directly on the features.
	Layers []int
	// Temp rescales the gate logits. Default 1000.
	Temp float64
	// Discount is the censoring discount α in [0, 1]. Default 1.
	Discount float64

	net    *MixtureNet
	fitted bool
}

// New returns a DeepSurvivalMachines with the reference hyperparameters.
func New() *DeepSurvivalMachines {
	return &DeepSurvivalMachines{K: 3, Dist: Weibull, Temp: 1000, Discount: 1}
}

// Fit trains the model. x is [n, inputDim]; t holds strictly positive event
// or censoring times and e the per-instance event indicators (nonzero means
// the event was observed). cfg carries the training hyperparameters;
// DefaultTrainConfig is used when cfg is nil. The data is shuffled with
// cfg.Seed and a cfg.ValidationFraction tail is held out; the parameters
// with the best held-out exact likelihood are kept.
//
// Fit replaces any previously fitted parameters. It must not be called
// concurrently with itself or with the prediction methods.
func (d *DeepSurvivalMachines) Fit(x *mat.Dense, t, e []float64, cfg *TrainConfig) error {
	c := DefaultTrainConfig()
	if cfg != nil {
		c = *cfg
	}
	if c.BatchSize < 1 || c.Iters < 0 || c.PretrainIters < 0 {
		return errors.Errorf("dsm: invalid training configuration: batch size %d, iters %d", c.BatchSize, c.Iters)
	}
	n, dim := x.Dims()
	if len(t) != n || len(e) != n {
		panic(dimensionMismatch)
	}
	if _, _, err := d.Dist.kernels(); err != nil {
		return err
	}

	rnd := rand.New(rand.NewSource(c.Seed))
	perm := rnd.Perm(n)

	vsize := int(c.ValidationFraction * float64(n))
	if n-vsize < 1 || vsize < 1 {
		return errors.Errorf("dsm: cannot split %d instances with validation fraction %v", n, c.ValidationFraction)
	}
	xs := mat.NewDense(n, dim, nil)
	ts := make([]float64, n)
	es := make([]float64, n)
	for i, p := range perm {
		xs.SetRow(i, x.RawRowView(p))
		ts[i] = t[p]
		es[i] = e[p]
	}
	ntr := n - vsize
	xtr := xs.Slice(0, ntr, 0, dim).(*mat.Dense)
	xv := xs.Slice(ntr, n, 0, dim).(*mat.Dense)

	net := NewMixtureNet(dim, d.K, d.Layers, d.Dist, d.Temp, d.Discount, rnd)
	if err := pretrain(net, ts[:ntr], es[:ntr], c); err != nil {
		return err
	}
	if _, err := train(net, xtr, ts[:ntr], es[:ntr], xv, ts[ntr:], es[ntr:], c, rnd); err != nil {
		return err
	}

	d.net = net
	d.fitted = true
	return nil
}

// Network returns the fitted feature network, or a NotFittedError before a
// successful Fit.
func (d *DeepSurvivalMachines) Network() (*MixtureNet, error) {
	if !d.fitted {
		return nil, &NotFittedError{}
	}
	return d.net, nil
}

// PredictSurvival returns the [n, len(times)] matrix of estimated survival
// probabilities P(T > times[j] | x_i).
func (d *DeepSurvivalMachines) PredictSurvival(x mat.Matrix, times []float64) (*mat.Dense, error) {
	if !d.fitted {
		return nil, &NotFittedError{}
	}
	scores, err := PredictLogSurvival(d.net, x, times)
	if err != nil {
		return nil, errors.Wrap(err, "predicting survival")
	}
	applyInPlace(scores, math.Exp)
	return scores, nil
}

// PredictRisk returns the [n, len(times)] matrix of estimated risks
// P(T ≤ times[j] | x_i), the complement of PredictSurvival.
func (d *DeepSurvivalMachines) PredictRisk(x mat.Matrix, times []float64) (*mat.Dense, error) {
	surv, err := d.PredictSurvival(x, times)
	if err != nil {
		return nil, err
	}
	applyInPlace(surv, func(v float64) float64 { return 1 - v })
	return surv, nil
}

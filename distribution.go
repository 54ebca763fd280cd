// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"fmt"
	"math"
)

// Distribution selects the parametric family of the mixture components.
type Distribution int

const (
	// Weibull components parameterize log survival as -(exp(b)·t)^exp(k)
	// for raw shape k and raw scale b.
	Weibull Distribution = iota
	// LogNormal components treat log t as Normal with mean shape and
	// standard deviation exp(scale).
	LogNormal
)

// String returns the name of the distribution family.
func (d Distribution) String() string {
	switch d {
	case Weibull:
		return "Weibull"
	case LogNormal:
		return "LogNormal"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// UnsupportedDistributionError is returned by the losses and the survival
// evaluator when the model selects a distribution family outside the
// supported set. The failing value is never defaulted.
type UnsupportedDistributionError struct {
	Dist Distribution
}

func (e *UnsupportedDistributionError) Error() string {
	return fmt.Sprintf("dsm: distribution %v not implemented", e.Dist)
}

// A kernel evaluates a per-component log quantity at time t given the raw
// (unconstrained) shape and scale of the component.
type kernel func(shape, scale, t float64) float64

// kernels returns the log-density and log-survival kernels of d. Every
// operation that dispatches on a distribution family does so through here
// exactly once, before any per-instance work.
func (d Distribution) kernels() (logPDF, logSurvival kernel, err error) {
	switch d {
	case Weibull:
		return weibullLogPDF, weibullLogSurvival, nil
	case LogNormal:
		return logNormalLogPDF, logNormalLogSurvival, nil
	default:
		return nil, nil, &UnsupportedDistributionError{Dist: d}
	}
}

// LogPDF returns the component log-density at time t for raw parameters
// (shape, scale). Times must be strictly positive; a non-positive t
// propagates whatever non-finite value the math produces.
func (d Distribution) LogPDF(shape, scale, t float64) (float64, error) {
	logPDF, _, err := d.kernels()
	if err != nil {
		return 0, err
	}
	return logPDF(shape, scale, t), nil
}

// LogSurvival returns the component log P(T > t) for raw parameters
// (shape, scale).
func (d Distribution) LogSurvival(shape, scale, t float64) (float64, error) {
	_, logSurvival, err := d.kernels()
	if err != nil {
		return 0, err
	}
	return logSurvival(shape, scale, t), nil
}

func weibullLogSurvival(k, b, t float64) float64 {
	return -math.Pow(math.Exp(b)*t, math.Exp(k))
}

func weibullLogPDF(k, b, t float64) float64 {
	return k + b + (math.Exp(k)-1)*(b+math.Log(t)) + weibullLogSurvival(k, b, t)
}

func logNormalLogSurvival(mu, sigma, t float64) float64 {
	z := (math.Log(t) - mu) / (math.Exp(sigma) * math.Sqrt2)
	return math.Log(0.5 * math.Erfc(z))
}

func logNormalLogPDF(mu, sigma, t float64) float64 {
	d := math.Log(t) - mu
	return -sigma - 0.5*math.Log(2*math.Pi) - d*d/(2*math.Exp(2*sigma))
}

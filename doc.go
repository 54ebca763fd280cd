// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dsm implements fully parametric survival regression with censored
// data, modeling the conditional event time distribution as a mixture of
// parametric distributions whose parameters and mixing weights are produced
// per instance by a feature network. See
//  Deep Survival Machines: Fully Parametric Survival Regression and
//  Representation Learning for Censored Data with Competing Risks
//  by C. Nagpal, X. Li and A. Dubrawski, https://arxiv.org/abs/2003.01176
// for more information.
//
// Documentation notation: an instance is a triple (x, t, e) of features,
// time and event indicator. e = 1 means the event was observed at t, so the
// instance contributes log density; e = 0 means the instance was censored at
// t, so it contributes log survival,
//  log S(t) = log P(T > t)
// The event time distribution conditioned on x is the K-component mixture
//  P(T ≤ t | x) = \sum_{g=1}^K w_g(x) P_g(T ≤ t | x)
// where each P_g is Weibull or LogNormal with per-instance raw shape and
// scale parameters, and the weights w_g are a softmax over learned gate
// logits. Raw parameters are unconstrained; the kernels apply the
// exponential map internally wherever positivity is required.
//
// The training objective is the negative censored log-likelihood, available
// in two forms: the exact marginal mixture likelihood (log-sum-exp over
// components) and its evidence lower bound (softmax-weighted sum of
// component log-likelihoods). Both are pure functions of the model
// parameters and a batch; gradient computation and parameter updates are
// confined to the trainer.
package dsm

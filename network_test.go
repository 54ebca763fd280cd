// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMixtureNetForwardDims(t *testing.T) {
	net := NewMixtureNet(4, 3, []int{8, 6}, Weibull, 1000, 1, rand.New(rand.NewSource(9)))
	x := mat.NewDense(5, 4, nil)

	shape, scale, logits := net.Forward(x)
	for _, m := range []*mat.Dense{shape, scale, logits} {
		r, c := m.Dims()
		assert.Equal(t, 5, r)
		assert.Equal(t, 3, c)
	}

	bs, bsc := net.ShapeScale()
	r, c := bs.Dims()
	require.Equal(t, 1, r)
	require.Equal(t, 3, c)
	for g := 0; g < 3; g++ {
		assert.Equal(t, -1.0, bs.At(0, g))
		assert.Equal(t, -1.0, bsc.At(0, g))
	}

	assert.Panics(t, func() { net.Forward(mat.NewDense(2, 3, nil)) })
}

func TestMixtureNetGateTemperature(t *testing.T) {
	// The same weights with a hotter gate produce proportionally smaller
	// logits.
	x := mat.NewDense(3, 2, []float64{0.5, -1, 2, 0.3, -0.7, 1.1})
	a := NewMixtureNet(2, 2, []int{4}, Weibull, 1, 1, rand.New(rand.NewSource(10)))
	b := NewMixtureNet(2, 2, []int{4}, Weibull, 10, 1, rand.New(rand.NewSource(10)))

	_, _, la := a.Forward(x)
	_, _, lb := b.Forward(x)
	for i := 0; i < 3; i++ {
		for g := 0; g < 2; g++ {
			assert.InDelta(t, la.At(i, g)/10, lb.At(i, g), 1e-12)
		}
	}
}

func TestMixtureNetParamsAlias(t *testing.T) {
	// The weight matrices view the flat bundle, so external updates to
	// the bundle must be visible in Forward.
	net := NewMixtureNet(2, 2, nil, Weibull, 1000, 1, rand.New(rand.NewSource(11)))
	x := mat.NewDense(1, 2, []float64{0.4, -0.2})

	before, _, _ := net.Forward(x)
	b00 := before.At(0, 0)

	// The first K entries of the bundle are the base shapes.
	net.Params()[0] += 0.25
	after, _, _ := net.Forward(x)
	assert.InDelta(t, b00+0.25, after.At(0, 0), 1e-12)
}

func TestMixtureNetParamCount(t *testing.T) {
	// 2K bases + hidden weights + three K-by-lastDim heads, all unbiased.
	net := NewMixtureNet(3, 2, []int{5}, LogNormal, 1000, 1, rand.New(rand.NewSource(12)))
	want := 2*2 + 5*3 + 3*2*5
	assert.Equal(t, want, len(net.Params()))

	assert.Equal(t, 2, net.Components())
	assert.Equal(t, LogNormal, net.Distribution())
	assert.Equal(t, 1.0, net.Discount())
	assert.Equal(t, 3, net.InputDim())
}

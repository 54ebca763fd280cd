// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import "math"

// ConcordanceIndex returns the censoring-aware concordance of the risk
// scores against the observed outcomes: the fraction of comparable pairs
// whose predicted risks are ordered the same way as their event times, with
// ties in risk counted half. A pair (i, j) is comparable when i had an
// observed event strictly before t_j. Higher risk must mean an earlier
// expected event; 0.5 is chance level. NaN is returned when no pair is
// comparable.
func ConcordanceIndex(risk, t, e []float64) float64 {
	if len(t) != len(risk) || len(t) != len(e) {
		panic(dimensionMismatch)
	}
	var num, den float64
	for i := range t {
		if e[i] == 0 {
			continue
		}
		for j := range t {
			if t[i] >= t[j] {
				continue
			}
			den++
			switch {
			case risk[i] > risk[j]:
				num++
			case risk[i] == risk[j]:
				num += 0.5
			}
		}
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

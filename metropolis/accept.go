// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metropolis

import "math"

// Acceptance returns the Metropolis probability of accepting a flip
// that changes the energy by delta, with the coupling j acting as the
// temperature: 1 if delta <= 0, and exp(-delta/j) otherwise, clamped
// to [0, 1]. With j == 0 (zero temperature) uphill flips are never
// accepted, and with j < 0 the exponent is positive so they always are.
// The result is non-increasing in delta for any fixed j.
func Acceptance(delta, j float64) float64 {
	if delta <= 0 {
		return 1
	}
	if j == 0 {
		return 0
	}
	return min(math.Exp(-delta/j), 1)
}

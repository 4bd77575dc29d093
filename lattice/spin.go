// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

// Spin is the value of one cell, +1 (up) or -1 (down).
// Cells are stored as one byte each: 1 for up and 0 for down.
type Spin int8

const (
	Down Spin = -1
	Up   Spin = 1
)

// SpinOf returns the spin for a stored cell value.
func SpinOf(b byte) Spin {
	if b != 0 {
		return Up
	}
	return Down
}

// Byte returns the stored cell value of the spin.
func (s Spin) Byte() byte {
	if s > 0 {
		return 1
	}
	return 0
}

// Flip returns the opposite spin.
func (s Spin) Flip() Spin {
	return -s
}

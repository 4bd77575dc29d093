// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package params provides the simulation parameters and their
// persistence in a flat "Label: value" text file.
package params

import (
	"fmt"

	"cogentcore.org/ising/base/errors"
)

// ErrInvalid is returned for parameters outside of their allowed range.
// It is a configuration error.
var ErrInvalid = errors.New("params: invalid parameter")

// Params are the physical and run parameters of a simulation.
// They are read by one worker and broadcast to all the others
// at the start of every episode.
type Params struct {

	// Size is the number of rows and columns of the lattice (N).
	Size int `toml:"size" yaml:"size" json:"size"`

	// J is the coupling between neighboring spins, in [-1, 1].
	// It also acts as the temperature of the Metropolis acceptance.
	J float64 `toml:"j" yaml:"j" json:"j"`

	// B is the external magnetic field, in [-1, 1].
	B float64 `toml:"b" yaml:"b" json:"b"`

	// Iterations is the number of rounds per episode.
	Iterations int64 `toml:"iterations" yaml:"iterations" json:"iterations"`

	// Repeat is the number of episodes.
	Repeat int64 `toml:"repeat" yaml:"repeat" json:"repeat"`
}

// Defaults returns the default parameters.
func Defaults() Params {
	return Params{Size: 10, J: 1, B: 0, Iterations: 1000, Repeat: 1}
}

// Validate returns an error wrapping [ErrInvalid] for the first
// parameter out of its allowed range.
func (p Params) Validate() error {
	switch {
	case p.Size <= 0:
		return fmt.Errorf("%w: grid size %d must be positive", ErrInvalid, p.Size)
	case p.J < -1 || p.J > 1:
		return fmt.Errorf("%w: J %g must be in [-1, 1]", ErrInvalid, p.J)
	case p.B < -1 || p.B > 1:
		return fmt.Errorf("%w: B %g must be in [-1, 1]", ErrInvalid, p.B)
	case p.Iterations <= 0:
		return fmt.Errorf("%w: iterations %d must be positive", ErrInvalid, p.Iterations)
	case p.Repeat <= 0:
		return fmt.Errorf("%w: repeat %d must be positive", ErrInvalid, p.Repeat)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("grid_size = %d, J = %g, B = %g, iterations = %d, repeat = %d", p.Size, p.J, p.B, p.Iterations, p.Repeat)
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import (
	"fmt"

	"cogentcore.org/ising/base/errors"
)

// ErrPartition is returned for a lattice that cannot be evenly
// partitioned over the workers. It is a configuration error.
var ErrPartition = errors.New("lattice: invalid partition")

// Partition maps the cells of an N×N row-major lattice onto workers,
// each owning a contiguous block of Rows rows.
type Partition struct {

	// N is the number of rows and columns of the lattice.
	N int

	// Workers is the number of workers sharing the lattice.
	Workers int

	// Rows is the number of rows owned by each worker.
	Rows int
}

// NewPartition returns the partition of an n×n lattice over the given
// number of workers. n must be evenly divisible by workers.
func NewPartition(n, workers int) (Partition, error) {
	switch {
	case n <= 0:
		return Partition{}, fmt.Errorf("%w: grid size %d must be positive", ErrPartition, n)
	case workers <= 0:
		return Partition{}, fmt.Errorf("%w: worker count %d must be positive", ErrPartition, workers)
	case n%workers != 0:
		return Partition{}, fmt.Errorf("%w: grid size %d is not divisible by %d workers", ErrPartition, n, workers)
	}
	return Partition{N: n, Workers: workers, Rows: n / workers}, nil
}

// Cells returns the total number of cells, N².
func (p Partition) Cells() int {
	return p.N * p.N
}

// LocalCells returns the number of cells owned by each worker.
func (p Partition) LocalCells() int {
	return p.Rows * p.N
}

// Contains returns whether idx is a valid global index.
func (p Partition) Contains(idx int) bool {
	return idx >= 0 && idx < p.Cells()
}

// Owner returns the rank of the worker owning global index idx.
func (p Partition) Owner(idx int) int {
	return idx / p.LocalCells()
}

// Offset returns the offset of global index idx within its owner's block.
func (p Partition) Offset(idx int) int {
	return idx % p.LocalCells()
}

// Start returns the first global index owned by rank.
func (p Partition) Start(rank int) int {
	return rank * p.LocalCells()
}

// Global returns the global index of offset off in rank's block.
func (p Partition) Global(rank, off int) int {
	return p.Start(rank) + off
}

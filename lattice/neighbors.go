// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

// Neighborhood holds the global indexes of the four nearest
// neighbors of a cell.
type Neighborhood struct {
	Left, Right, Up, Down int
}

// Neighbors returns the neighbors of global index idx in an n×n
// row-major lattice with periodic boundaries, so the lattice is a torus.
// The result does not depend on how the lattice is partitioned.
func Neighbors(idx, n int) Neighborhood {
	row, col := idx/n, idx%n
	return Neighborhood{
		Left:  row*n + wrap(col-1, n),
		Right: row*n + wrap(col+1, n),
		Up:    wrap(row-1, n)*n + col,
		Down:  wrap(row+1, n)*n + col,
	}
}

// Indexes returns the neighbors as a slice, in Left, Right, Up, Down order.
func (nb Neighborhood) Indexes() []int {
	return []int{nb.Left, nb.Right, nb.Up, nb.Down}
}

func wrap(i, n int) int {
	return ((i % n) + n) % n
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package energy computes energies and magnetization of a distributed
// Ising lattice.
//
// The Hamiltonian is
//
//	H = -J Σ<ij> s_i s_j - B Σ_i s_i
//
// with spins ±1 and each nearest-neighbor bond <ij> counted once.
// The energy of a cell is -s_i (J/2 Σ_nb s_j + B), so that the cell
// energies sum to H, and flipping s_i changes H by 2 s_i (J Σ_nb s_j + B).
package energy

import (
	"context"
	"fmt"

	"cogentcore.org/ising/base/mpi"
	"cogentcore.org/ising/lattice"
)

// Evaluator computes energies on one worker's view of a lattice.
type Evaluator struct {

	// Lat is the distributed lattice.
	Lat *lattice.Lattice

	// J is the coupling between neighboring spins.
	J float64

	// B is the external field.
	B float64
}

// New returns a new [Evaluator] for the given lattice and parameters.
func New(lat *lattice.Lattice, j, b float64) *Evaluator {
	return &Evaluator{Lat: lat, J: j, B: b}
}

// neighborhood returns the spin at idx and the sum of its four neighbors,
// reading all five cells concurrently.
func (ev *Evaluator) neighborhood(ctx context.Context, idx int) (lattice.Spin, int, error) {
	nb := lattice.Neighbors(idx, ev.Lat.Part.N)
	spins, err := ev.Lat.ReadAll(ctx, []int{idx, nb.Left, nb.Right, nb.Up, nb.Down})
	if err != nil {
		return 0, 0, err
	}
	return spins[0], int(spins[1] + spins[2] + spins[3] + spins[4]), nil
}

func (ev *Evaluator) cell(s lattice.Spin, sum int) float64 {
	return -float64(s) * (ev.J/2*float64(sum) + ev.B)
}

// CellEnergy returns the energy contribution of the cell at idx.
func (ev *Evaluator) CellEnergy(ctx context.Context, idx int) (float64, error) {
	s, sum, err := ev.neighborhood(ctx, idx)
	if err != nil {
		return 0, fmt.Errorf("energy: cell %d: %w", idx, err)
	}
	return ev.cell(s, sum), nil
}

// FlipDelta returns the change in total energy if the spin at idx were flipped.
func (ev *Evaluator) FlipDelta(ctx context.Context, idx int) (float64, error) {
	s, sum, err := ev.neighborhood(ctx, idx)
	if err != nil {
		return 0, fmt.Errorf("energy: flip delta %d: %w", idx, err)
	}
	return 2 * float64(s) * (ev.J*float64(sum) + ev.B), nil
}

// halo reads the rows just above and below this worker's block,
// which are the only remote cells its energy depends on.
func (ev *Evaluator) halo(ctx context.Context) (map[int]lattice.Spin, error) {
	p := ev.Lat.Part
	start := p.Start(ev.Lat.Rank())
	above := lattice.Neighbors(start, p.N).Up
	below := lattice.Neighbors(start+p.LocalCells()-p.N, p.N).Down
	idxs := make([]int, 0, 2*p.N)
	for c := range p.N {
		idxs = append(idxs, above+c, below+c)
	}
	spins, err := ev.Lat.ReadAll(ctx, idxs)
	if err != nil {
		return nil, err
	}
	h := make(map[int]lattice.Spin, len(idxs))
	for i, idx := range idxs {
		h[idx] = spins[i]
	}
	return h, nil
}

// LocalEnergy returns the summed energy of the cells in this worker's block.
func (ev *Evaluator) LocalEnergy(ctx context.Context) (float64, error) {
	h, err := ev.halo(ctx)
	if err != nil {
		return 0, fmt.Errorf("energy: halo: %w", err)
	}
	l := ev.Lat
	p := l.Part
	local := l.Local()
	spinAt := func(idx int) lattice.Spin {
		if l.IsLocal(idx) {
			return lattice.SpinOf(local[p.Offset(idx)])
		}
		return h[idx]
	}
	start := p.Start(l.Rank())
	e := 0.0
	for off, b := range local {
		idx := start + off
		nb := lattice.Neighbors(idx, p.N)
		sum := int(spinAt(nb.Left) + spinAt(nb.Right) + spinAt(nb.Up) + spinAt(nb.Down))
		e += ev.cell(lattice.SpinOf(b), sum)
	}
	return e, nil
}

// TotalEnergy collectively computes the energy of the whole lattice.
// Every worker must call it, and every worker receives the result.
func (ev *Evaluator) TotalEnergy(ctx context.Context) (float64, error) {
	e, err := ev.LocalEnergy(ctx)
	if err != nil {
		return 0, err
	}
	total, err := ev.Lat.Comm().SumF64(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("energy: total: %w", err)
	}
	return total, nil
}

// Magnetization collectively computes the average spin of the lattice.
func Magnetization(ctx context.Context, lat *lattice.Lattice) (float64, error) {
	sum, err := lat.Comm().SumF64(ctx, float64(lat.LocalSum()))
	if err != nil {
		return 0, fmt.Errorf("energy: magnetization: %w", err)
	}
	return sum / float64(lat.Part.Cells()), nil
}

// Stats are the global statistics of a lattice at a checkpoint.
type Stats struct {

	// Energy is the total energy.
	Energy float64

	// Magnetization is the average spin.
	Magnetization float64
}

// Stats collectively computes the total energy and magnetization
// with a single reduction.
func (ev *Evaluator) Stats(ctx context.Context) (Stats, error) {
	e, err := ev.LocalEnergy(ctx)
	if err != nil {
		return Stats{}, err
	}
	res := make([]float64, 2)
	err = ev.Lat.Comm().AllReduceF64(ctx, mpi.OpSum, res, []float64{e, float64(ev.Lat.LocalSum())})
	if err != nil {
		return Stats{}, fmt.Errorf("energy: stats: %w", err)
	}
	return Stats{Energy: res[0], Magnetization: res[1] / float64(ev.Lat.Part.Cells())}, nil
}

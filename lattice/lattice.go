// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lattice provides a 2D spin lattice distributed over the workers
// of an [mpi.Comm], partitioned into contiguous row blocks.
//
// Each worker owns its block and is the only one that mutates it. Access
// to a cell owned by another worker is sent as a request to the owner,
// which performs the read or write itself when it next services requests
// (owner-compute). Since a worker only services requests from within its
// own blocking communication calls, remote mutations never race with its
// own updates, and no locks are needed.
package lattice

import (
	"context"
	"fmt"

	"cogentcore.org/ising/base/mpi"
	"cogentcore.org/ising/base/randx"
)

// request codes served by the owner of a block.
const (
	codeRead uint8 = iota + 1
	codeWrite
	codeToggle
)

// Lattice is one worker's handle on a distributed lattice.
type Lattice struct {

	// Part is the partition of the lattice over the workers.
	Part Partition

	comm *mpi.Comm

	// handle identifies this lattice in requests; it is the same on every worker.
	handle uint64

	// cells is the block owned by this worker, one byte per cell.
	cells []byte
}

// Allocate collectively creates a new lattice with every spin up.
// It must be called by all workers before any of them accesses the
// lattice, and it returns after all of them have allocated their block.
func Allocate(ctx context.Context, comm *mpi.Comm, part Partition) (*Lattice, error) {
	if part.Workers != comm.Size() {
		return nil, fmt.Errorf("%w: partition for %d workers used with %d", ErrPartition, part.Workers, comm.Size())
	}
	l := &Lattice{
		Part:   part,
		comm:   comm,
		handle: comm.NextHandle(),
		cells:  make([]byte, part.LocalCells()),
	}
	for i := range l.cells {
		l.cells[i] = 1
	}
	comm.Handle(l.handle, l.serve)
	if err := comm.Barrier(ctx); err != nil {
		comm.Unhandle(l.handle)
		return nil, fmt.Errorf("lattice: allocate: %w", err)
	}
	return l, nil
}

// Free collectively releases the lattice. It first waits for every
// worker to reach Free, so all outstanding accesses have completed.
func (l *Lattice) Free(ctx context.Context) error {
	err := l.comm.Barrier(ctx)
	l.comm.Unhandle(l.handle)
	l.cells = nil
	if err != nil {
		return fmt.Errorf("lattice: free: %w", err)
	}
	return nil
}

// Rank returns the rank of this worker.
func (l *Lattice) Rank() int {
	return l.comm.Rank()
}

// Comm returns the communicator of this worker.
func (l *Lattice) Comm() *mpi.Comm {
	return l.comm
}

// Local returns this worker's block. It must not be modified directly.
func (l *Lattice) Local() []byte {
	return l.cells
}

// IsLocal returns whether idx is owned by this worker.
func (l *Lattice) IsLocal(idx int) bool {
	return l.Part.Owner(idx) == l.comm.Rank()
}

// Randomize sets every spin in this worker's block at random.
// It is a local operation; callers needing the result on other
// workers must follow it with a barrier.
func (l *Lattice) Randomize(rnd randx.Rand) {
	for i := range l.cells {
		l.cells[i] = byte(rnd.Intn(2))
	}
}

// LocalSum returns the sum of the spins in this worker's block.
func (l *Lattice) LocalSum() int {
	sum := 0
	for _, b := range l.cells {
		sum += int(SpinOf(b))
	}
	return sum
}

func (l *Lattice) check(idx int) error {
	if l.cells == nil {
		return fmt.Errorf("lattice: access after free")
	}
	if !l.Part.Contains(idx) {
		return fmt.Errorf("lattice: index %d out of range [0,%d)", idx, l.Part.Cells())
	}
	return nil
}

// Read returns the spin at global index idx. A remote read blocks
// until the owner has answered, and reflects the owner's state at the
// time it served the request.
func (l *Lattice) Read(ctx context.Context, idx int) (Spin, error) {
	if err := l.check(idx); err != nil {
		return 0, err
	}
	if l.IsLocal(idx) {
		return SpinOf(l.cells[l.Part.Offset(idx)]), nil
	}
	resp, err := l.comm.Call(ctx, l.Part.Owner(idx), &mpi.Message{Handle: l.handle, Code: codeRead, Index: idx})
	if err != nil {
		return 0, fmt.Errorf("lattice: read %d: %w", idx, err)
	}
	return SpinOf(byte(resp.Value)), nil
}

// ReadAll returns the spins at the given global indexes. All remote
// reads are sent before waiting for any of them.
func (l *Lattice) ReadAll(ctx context.Context, idxs []int) ([]Spin, error) {
	spins := make([]Spin, len(idxs))
	var pending []*mpi.Pending
	var remote []int
	for i, idx := range idxs {
		if err := l.check(idx); err != nil {
			return nil, err
		}
		if l.IsLocal(idx) {
			spins[i] = SpinOf(l.cells[l.Part.Offset(idx)])
			continue
		}
		p, err := l.comm.Go(ctx, l.Part.Owner(idx), &mpi.Message{Handle: l.handle, Code: codeRead, Index: idx})
		if err != nil {
			return nil, fmt.Errorf("lattice: read %d: %w", idx, err)
		}
		pending = append(pending, p)
		remote = append(remote, i)
	}
	if len(pending) == 0 {
		return spins, nil
	}
	resps, err := l.comm.Wait(ctx, pending...)
	if err != nil {
		return nil, fmt.Errorf("lattice: read: %w", err)
	}
	for j, i := range remote {
		spins[i] = SpinOf(byte(resps[j].Value))
	}
	return spins, nil
}

// Write sets the spin at global index idx. A remote write is performed
// by the owner, and Write blocks until the owner has done it.
func (l *Lattice) Write(ctx context.Context, idx int, s Spin) error {
	if err := l.check(idx); err != nil {
		return err
	}
	if l.IsLocal(idx) {
		l.cells[l.Part.Offset(idx)] = s.Byte()
		return nil
	}
	_, err := l.comm.Call(ctx, l.Part.Owner(idx), &mpi.Message{Handle: l.handle, Code: codeWrite, Index: idx, Value: int(s.Byte())})
	if err != nil {
		return fmt.Errorf("lattice: write %d: %w", idx, err)
	}
	return nil
}

// Toggle inverts the spin at global index idx, on its owner.
func (l *Lattice) Toggle(ctx context.Context, idx int) error {
	if err := l.check(idx); err != nil {
		return err
	}
	if l.IsLocal(idx) {
		l.cells[l.Part.Offset(idx)] ^= 1
		return nil
	}
	_, err := l.comm.Call(ctx, l.Part.Owner(idx), &mpi.Message{Handle: l.handle, Code: codeToggle, Index: idx})
	if err != nil {
		return fmt.Errorf("lattice: toggle %d: %w", idx, err)
	}
	return nil
}

// Snapshot collectively gathers the whole lattice onto root, as one
// stored byte per cell in row-major order. It returns nil on other workers.
func (l *Lattice) Snapshot(ctx context.Context, root int) ([]byte, error) {
	blocks, err := l.comm.GatherBytes(ctx, root, l.cells)
	if err != nil {
		return nil, fmt.Errorf("lattice: snapshot: %w", err)
	}
	if blocks == nil {
		return nil, nil
	}
	grid := make([]byte, 0, l.Part.Cells())
	for rank, b := range blocks {
		if len(b) != l.Part.LocalCells() {
			return nil, fmt.Errorf("%w: rank %d sent %d cells, want %d", mpi.ErrRemote, rank, len(b), l.Part.LocalCells())
		}
		grid = append(grid, b...)
	}
	return grid, nil
}

// serve handles a request from another worker for a cell in this block.
func (l *Lattice) serve(req, resp *mpi.Message) error {
	if l.cells == nil {
		return fmt.Errorf("lattice freed")
	}
	if !l.Part.Contains(req.Index) || !l.IsLocal(req.Index) {
		return fmt.Errorf("index %d not owned by rank %d", req.Index, l.comm.Rank())
	}
	off := l.Part.Offset(req.Index)
	switch req.Code {
	case codeRead:
	case codeWrite:
		if req.Value != 0 && req.Value != 1 {
			return fmt.Errorf("invalid cell value %d", req.Value)
		}
		l.cells[off] = byte(req.Value)
	case codeToggle:
		l.cells[off] ^= 1
	default:
		return fmt.Errorf("unknown lattice request %d", req.Code)
	}
	resp.Value = int(l.cells[off])
	return nil
}

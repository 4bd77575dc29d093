// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lattice

import (
	"context"
	"testing"
	"time"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/base/mpi"
	"cogentcore.org/ising/base/randx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, workers int, f func(ctx context.Context, cm *mpi.Comm) error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, mpi.RunLocal(ctx, workers, f))
}

func TestAllocateAllUp(t *testing.T) {
	p, _ := NewPartition(4, 2)
	run(t, 2, func(ctx context.Context, cm *mpi.Comm) error {
		l, err := Allocate(ctx, cm, p)
		if err != nil {
			return err
		}
		if l.LocalSum() != 8 {
			return errors.New("block not all up")
		}
		for idx := range p.Cells() {
			s, err := l.Read(ctx, idx)
			if err != nil {
				return err
			}
			if s != Up {
				return errors.New("spin not up")
			}
		}
		return l.Free(ctx)
	})
}

func TestAllocateWrongWorkers(t *testing.T) {
	p, _ := NewPartition(4, 4)
	run(t, 2, func(ctx context.Context, cm *mpi.Comm) error {
		_, err := Allocate(ctx, cm, p)
		if !errors.Is(err, ErrPartition) {
			return errors.New("expected partition error")
		}
		return nil
	})
}

func TestRemoteToggleAndWrite(t *testing.T) {
	p, _ := NewPartition(4, 2)
	var grid []byte
	run(t, 2, func(ctx context.Context, cm *mpi.Comm) error {
		l, err := Allocate(ctx, cm, p)
		if err != nil {
			return err
		}
		// each worker mutates only cells owned by the other one
		if cm.Rank() == 0 {
			if err := l.Toggle(ctx, 9); err != nil {
				return err
			}
			if err := l.Write(ctx, 15, Down); err != nil {
				return err
			}
		} else {
			if err := l.Toggle(ctx, 0); err != nil {
				return err
			}
		}
		if err := cm.Barrier(ctx); err != nil {
			return err
		}
		spins, err := l.ReadAll(ctx, []int{0, 9, 15, 1})
		if err != nil {
			return err
		}
		if spins[0] != Down || spins[1] != Down || spins[2] != Down || spins[3] != Up {
			return errors.New("unexpected spins after remote mutation")
		}
		g, err := l.Snapshot(ctx, mpi.Root)
		if err != nil {
			return err
		}
		if cm.Rank() == mpi.Root {
			grid = g
		} else if g != nil {
			return errors.New("snapshot on non-root")
		}
		return l.Free(ctx)
	})
	assert.Equal(t, []byte{0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 0}, grid)
}

func TestReadOutOfRange(t *testing.T) {
	p, _ := NewPartition(2, 1)
	run(t, 1, func(ctx context.Context, cm *mpi.Comm) error {
		l, err := Allocate(ctx, cm, p)
		if err != nil {
			return err
		}
		if _, err := l.Read(ctx, 4); err == nil {
			return errors.New("expected range error")
		}
		if err := l.Free(ctx); err != nil {
			return err
		}
		if _, err := l.Read(ctx, 0); err == nil {
			return errors.New("expected error after free")
		}
		return nil
	})
}

func TestRandomize(t *testing.T) {
	p, _ := NewPartition(8, 1)
	run(t, 1, func(ctx context.Context, cm *mpi.Comm) error {
		l, err := Allocate(ctx, cm, p)
		if err != nil {
			return err
		}
		l.Randomize(randx.NewSysRand(1))
		sum := l.LocalSum()
		if sum == 64 || sum == -64 {
			return errors.New("randomize left a uniform block")
		}
		return l.Free(ctx)
	})
}

func TestSpin(t *testing.T) {
	assert.Equal(t, Up, SpinOf(1))
	assert.Equal(t, Down, SpinOf(0))
	assert.Equal(t, byte(0), Down.Byte())
	assert.Equal(t, Down, Up.Flip())
}

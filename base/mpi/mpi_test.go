// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cogentcore.org/ising/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRanks runs f on n ranks of an in-process network.
func runRanks(t *testing.T, n int, f func(ctx context.Context, cm *Comm) error) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return RunLocal(ctx, n, f)
}

func TestBarrier(t *testing.T) {
	var arrived atomic.Int32
	err := runRanks(t, 4, func(ctx context.Context, cm *Comm) error {
		for round := range 3 {
			arrived.Add(1)
			if err := cm.Barrier(ctx); err != nil {
				return err
			}
			// everyone has arrived for this round before anyone leaves
			if got := arrived.Load(); got < int32(4*(round+1)) {
				return errors.New("left barrier early")
			}
			if err := cm.Barrier(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestAllReduce(t *testing.T) {
	res := make([][]float64, 3)
	err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
		r := float64(cm.Rank())
		dest := make([]float64, 2)
		if err := cm.AllReduceF64(ctx, OpSum, dest, []float64{r, 1}); err != nil {
			return err
		}
		mx := []float64{0}
		if err := cm.AllReduceF64(ctx, OpMax, mx, []float64{r * 10}); err != nil {
			return err
		}
		res[cm.Rank()] = append(dest, mx[0])
		return nil
	})
	require.NoError(t, err)
	for _, r := range res {
		assert.Equal(t, []float64{3, 3, 20}, r)
	}
}

func TestReduceOnlyRoot(t *testing.T) {
	res := make([]float64, 3)
	err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
		dest := []float64{-1}
		if err := cm.ReduceF64(ctx, 2, OpProd, dest, []float64{float64(cm.Rank() + 2)}); err != nil {
			return err
		}
		res[cm.Rank()] = dest[0]
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, 24}, res)
}

type bcastValue struct {
	Name string
	J    float64
	N    int
}

func TestBcast(t *testing.T) {
	res := make([]bcastValue, 3)
	err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
		var v bcastValue
		if cm.Rank() == 1 {
			v = bcastValue{Name: "lattice", J: 0.1 + 0.2, N: 8}
		}
		if err := cm.Bcast(ctx, 1, &v); err != nil {
			return err
		}
		res[cm.Rank()] = v
		return nil
	})
	require.NoError(t, err)
	for _, v := range res {
		assert.Equal(t, bcastValue{Name: "lattice", J: 0.1 + 0.2, N: 8}, v)
	}
}

func TestGatherBytes(t *testing.T) {
	var got [][]byte
	err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
		all, err := cm.GatherBytes(ctx, Root, []byte{byte(cm.Rank()), 9})
		if cm.Rank() == Root {
			got = all
		} else if all != nil {
			return errors.New("non-root received gather result")
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0, 9}, {1, 9}, {2, 9}}, got)
}

func TestCallOwnerCompute(t *testing.T) {
	const handle = 7
	counts := make([]int, 3)
	err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
		rank := cm.Rank()
		cm.Handle(handle, func(req, resp *Message) error {
			counts[rank] += req.Value
			resp.Value = counts[rank]
			return nil
		})
		if err := cm.Barrier(ctx); err != nil {
			return err
		}
		// every rank increments every other rank's counter, pipelined
		var ps []*Pending
		for to := range cm.Size() {
			if to == rank {
				continue
			}
			p, err := cm.Go(ctx, to, &Message{Handle: handle, Value: 1})
			if err != nil {
				return err
			}
			ps = append(ps, p)
		}
		if _, err := cm.Wait(ctx, ps...); err != nil {
			return err
		}
		return cm.Barrier(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, counts)
}

func TestCallUnknownHandle(t *testing.T) {
	err := runRanks(t, 2, func(ctx context.Context, cm *Comm) error {
		if cm.Rank() == 0 {
			_, err := cm.Call(ctx, 1, &Message{Handle: 99})
			if !errors.Is(err, ErrRemote) {
				return errors.New("expected remote error")
			}
		}
		return cm.Barrier(ctx)
	})
	assert.NoError(t, err)
}

func TestAbort(t *testing.T) {
	err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
		if cm.Rank() == 2 {
			cm.Abort(ctx, errors.New("disk full"))
			return nil
		}
		err := cm.Barrier(ctx)
		if !errors.Is(err, ErrAborted) {
			return errors.New("barrier did not report abort")
		}
		return nil
	})
	assert.NoError(t, err)
}

// TestAbortRepeated runs the abort scenario many times, since whether
// the root has already left when the others reach the barrier depends
// on scheduling.
func TestAbortRepeated(t *testing.T) {
	for i := range 200 {
		var mu sync.Mutex
		errs := map[int]error{}
		err := runRanks(t, 3, func(ctx context.Context, cm *Comm) error {
			if cm.Rank() == 2 {
				cm.Abort(ctx, errors.New("disk full"))
				return nil
			}
			err := cm.Barrier(ctx)
			mu.Lock()
			errs[cm.Rank()] = err
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		for rank, err := range errs {
			require.ErrorIs(t, err, ErrAborted, "run %d rank %d", i, rank)
		}
	}
}

func TestSendToClosedRank(t *testing.T) {
	ctx := context.Background()
	trs := NewChanNetwork(3)
	cm := NewComm(trs[0])
	require.NoError(t, trs[1].Close())

	_, err := cm.Call(ctx, 1, &Message{Handle: 1})
	assert.ErrorIs(t, err, ErrAborted)
	assert.NotErrorIs(t, err, ErrRemote)
	// later calls report the same abort without blocking
	assert.ErrorIs(t, cm.Barrier(ctx), ErrAborted)
}

func TestSendFailureReportsQueuedAbort(t *testing.T) {
	ctx := context.Background()
	trs := NewChanNetwork(3)
	cm := NewComm(trs[1])
	require.NoError(t, trs[2].Send(ctx, 1, &Message{Kind: KindAbort, From: 2, Err: "disk full"}))
	require.NoError(t, trs[0].Close())

	err := cm.Barrier(ctx)
	require.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, err.Error(), "rank 2: disk full")
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "Sum", OpSum.String())
	assert.Equal(t, "Min", OpMin.String())
}

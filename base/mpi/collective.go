// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// Collectives are implemented as a gather of contributions onto a root
// followed by a release from the root. Every rank must make the same
// sequence of collective calls with the same root.

// begin starts a new collective and returns its sequence number.
func (cm *Comm) begin() uint64 {
	cm.collSeq++
	return cm.collSeq
}

func (cm *Comm) checkRoot(root int) error {
	if root < 0 || root >= cm.Size() {
		return fmt.Errorf("mpi: invalid root %d of %d", root, cm.Size())
	}
	return nil
}

// gather sends contrib to root. On the root it returns all contributions
// indexed by rank, including its own; elsewhere it returns nil.
func (cm *Comm) gather(ctx context.Context, seq uint64, root int, contrib *Message) ([]*Message, error) {
	contrib.Kind = KindGather
	contrib.From = cm.Rank()
	contrib.Seq = seq
	if cm.Rank() != root {
		return nil, cm.send(ctx, root, contrib)
	}
	n := cm.Size()
	err := cm.progress(ctx, func() bool {
		return len(cm.coll[seq]) >= n-1
	})
	if err != nil {
		return nil, err
	}
	all := make([]*Message, n)
	all[root] = contrib
	for _, m := range cm.coll[seq] {
		all[m.From] = m
	}
	delete(cm.coll, seq)
	return all, nil
}

// release sends payload from root to every other rank and returns it.
// Elsewhere it blocks until the root's payload arrives.
func (cm *Comm) release(ctx context.Context, seq uint64, root int, payload *Message) (*Message, error) {
	if cm.Rank() == root {
		payload.Kind = KindRelease
		payload.From = root
		payload.Seq = seq
		for to := range cm.Size() {
			if to == root {
				continue
			}
			if err := cm.send(ctx, to, payload); err != nil {
				return nil, err
			}
		}
		return payload, nil
	}
	err := cm.progress(ctx, func() bool {
		return len(cm.coll[seq]) > 0
	})
	if err != nil {
		return nil, err
	}
	m := cm.coll[seq][0]
	delete(cm.coll, seq)
	return m, nil
}

// Barrier blocks until every rank has called Barrier. Everything any
// rank did before the barrier happens before anything any rank does
// after it. Requests from other ranks are serviced while waiting.
func (cm *Comm) Barrier(ctx context.Context) error {
	seq := cm.begin()
	if _, err := cm.gather(ctx, seq, Root, &Message{}); err != nil {
		return err
	}
	_, err := cm.release(ctx, seq, Root, &Message{})
	return err
}

// ReduceF64 reduces orig across all ranks with op into dest on root.
// Contributions are combined in rank order, so the result does not
// depend on arrival order. dest is only written on root.
func (cm *Comm) ReduceF64(ctx context.Context, root int, op Op, dest, orig []float64) error {
	if err := cm.checkRoot(root); err != nil {
		return err
	}
	seq := cm.begin()
	all, err := cm.gather(ctx, seq, root, &Message{Floats: orig})
	if err != nil || all == nil {
		return err
	}
	res, err := combine(op, all, len(orig))
	if err != nil {
		return err
	}
	copy(dest, res)
	return nil
}

// AllReduceF64 reduces orig across all ranks with op, and
// every rank receives the result in dest.
func (cm *Comm) AllReduceF64(ctx context.Context, op Op, dest, orig []float64) error {
	seq := cm.begin()
	all, err := cm.gather(ctx, seq, Root, &Message{Floats: orig})
	if err != nil {
		return err
	}
	payload := &Message{}
	if all != nil {
		payload.Floats, err = combine(op, all, len(orig))
		if err != nil {
			return err
		}
	}
	res, err := cm.release(ctx, seq, Root, payload)
	if err != nil {
		return err
	}
	if len(res.Floats) != len(dest) {
		return fmt.Errorf("%w: all-reduce of %d values into %d", ErrRemote, len(res.Floats), len(dest))
	}
	copy(dest, res.Floats)
	return nil
}

func combine(op Op, all []*Message, n int) ([]float64, error) {
	res := slices.Clone(all[0].Floats)
	if len(res) != n {
		return nil, fmt.Errorf("%w: rank 0 contributed %d values, want %d", ErrRemote, len(res), n)
	}
	for _, m := range all[1:] {
		if len(m.Floats) != n {
			return nil, fmt.Errorf("%w: rank %d contributed %d values, want %d", ErrRemote, m.From, len(m.Floats), n)
		}
		op.apply(res, m.Floats)
	}
	return res, nil
}

// SumF64 returns the sum of v over all ranks, on every rank.
func (cm *Comm) SumF64(ctx context.Context, v float64) (float64, error) {
	res := []float64{0}
	err := cm.AllReduceF64(ctx, OpSum, res, []float64{v})
	return res[0], err
}

// Bcast sends the value v held by root to every rank. v must be a
// pointer; on the other ranks it is overwritten with the JSON decoding
// of the root's value.
func (cm *Comm) Bcast(ctx context.Context, root int, v any) error {
	if err := cm.checkRoot(root); err != nil {
		return err
	}
	seq := cm.begin()
	payload := &Message{}
	if cm.Rank() == root {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("mpi: broadcast encode: %w", err)
		}
		payload.Data = b
	}
	res, err := cm.release(ctx, seq, root, payload)
	if err != nil || cm.Rank() == root {
		return err
	}
	if err := json.Unmarshal(res.Data, v); err != nil {
		return fmt.Errorf("%w: broadcast decode: %w", ErrRemote, err)
	}
	return nil
}

// GatherBytes collects b from every rank onto root, indexed by rank.
// It returns nil on the other ranks.
func (cm *Comm) GatherBytes(ctx context.Context, root int, b []byte) ([][]byte, error) {
	if err := cm.checkRoot(root); err != nil {
		return nil, err
	}
	seq := cm.begin()
	all, err := cm.gather(ctx, seq, root, &Message{Data: b})
	if err != nil || all == nil {
		return nil, err
	}
	res := make([][]byte, len(all))
	for i, m := range all {
		res[i] = m.Data
	}
	return res, nil
}

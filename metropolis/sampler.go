// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metropolis runs Metropolis Monte-Carlo sampling
// of a distributed Ising lattice.
package metropolis

import (
	"context"
	"fmt"

	"cogentcore.org/ising/base/randx"
	"cogentcore.org/ising/energy"
)

// Step records one proposal made by one worker.
type Step struct {
	Episode  int
	Round    int64
	Rank     int
	Index    int
	Delta    float64
	P        float64
	R        float64
	Accepted bool
}

// Sampler runs the rounds of one episode on one worker. In every round
// each worker proposes one flip of a cell in its own block, evaluates it
// against the lattice as it was at the start of the round, and applies
// it if accepted. Barriers separate evaluation from application and
// close every round, so a round's outcome only depends on the random
// streams and not on how the workers are scheduled.
type Sampler struct {

	// Eval evaluates energies on the lattice being sampled.
	Eval *energy.Evaluator

	// Rand is this worker's random stream.
	Rand randx.Rand

	// Iterations is the number of rounds to run.
	Iterations int64

	// Episode is the index of the episode, recorded in steps.
	Episode int

	// CheckpointEvery is the number of rounds between calls to
	// Checkpoint. The last round always has a checkpoint.
	CheckpointEvery int64

	// Checkpoint, if set, is called collectively on every worker
	// after the closing barrier of a checkpoint round.
	Checkpoint func(ctx context.Context, round int64) error

	// Observer, if set, is called with every step of this worker.
	Observer func(Step)
}

// Run runs all the rounds of the episode.
func (s *Sampler) Run(ctx context.Context) error {
	every := max(s.CheckpointEvery, 1)
	for round := int64(1); round <= s.Iterations; round++ {
		if _, err := s.Round(ctx, round); err != nil {
			return err
		}
		if s.Checkpoint != nil && (round%every == 0 || round == s.Iterations) {
			if err := s.Checkpoint(ctx, round); err != nil {
				return fmt.Errorf("metropolis: checkpoint of round %d: %w", round, err)
			}
		}
	}
	return nil
}

// Round runs one round, which every worker must call collectively.
func (s *Sampler) Round(ctx context.Context, round int64) (Step, error) {
	lat := s.Eval.Lat
	comm := lat.Comm()
	st := Step{Episode: s.Episode, Round: round, Rank: lat.Rank()}
	st.Index = lat.Part.Start(st.Rank) + s.Rand.Intn(lat.Part.LocalCells())

	var err error
	st.Delta, err = s.Eval.FlipDelta(ctx, st.Index)
	if err != nil {
		return st, fmt.Errorf("metropolis: round %d: %w", round, err)
	}
	st.P = Acceptance(st.Delta, s.Eval.J)
	st.R = s.Rand.Float64()
	st.Accepted = st.R < st.P

	if err := comm.Barrier(ctx); err != nil {
		return st, fmt.Errorf("metropolis: round %d: %w", round, err)
	}
	if st.Accepted {
		if err := lat.Toggle(ctx, st.Index); err != nil {
			return st, fmt.Errorf("metropolis: round %d: %w", round, err)
		}
	}
	if err := comm.Barrier(ctx); err != nil {
		return st, fmt.Errorf("metropolis: round %d: %w", round, err)
	}
	if s.Observer != nil {
		s.Observer(st)
	}
	comm.Log.Debug("round", "episode", s.Episode, "round", round, "index", st.Index, "delta", st.Delta, "accepted", st.Accepted)
	return st, nil
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim drives a simulation job: every worker runs the same
// sequence of episodes on its own rank, with rank 0 loading the
// parameters and writing the results.
package sim

import (
	"context"
	"fmt"
	"io/fs"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/base/mpi"
	"cogentcore.org/ising/base/randx"
	"cogentcore.org/ising/config"
	"cogentcore.org/ising/energy"
	"cogentcore.org/ising/lattice"
	"cogentcore.org/ising/metropolis"
	"cogentcore.org/ising/params"
	"cogentcore.org/ising/results"
)

// Meta is the metadata recorded with every episode.
type Meta struct {
	Episode       int           `yaml:"episode"`
	Params        params.Params `yaml:"params"`
	Workers       int           `yaml:"workers"`
	Seed          int64         `yaml:"seed"`
	Init          string        `yaml:"init"`
	SnapshotEvery int64         `yaml:"snapshot_every"`
	Transport     string        `yaml:"transport"`
}

// Worker runs the episodes of a job on one rank.
type Worker struct {

	// Config is this worker's configuration.
	Config *config.Config

	// Comm connects this worker to the rest of the job.
	Comm *mpi.Comm

	// Writer receives the results; it is only used on rank 0.
	Writer results.Writer

	// Observer, if set, receives every sampler step of this worker.
	Observer func(metropolis.Step)

	// Report prints a summary line for every episode on rank 0.
	Report bool

	params *params.Params
}

// start is what rank 0 broadcasts at the start of every episode.
type start struct {
	Params params.Params `json:"params"`
	Dir    string        `json:"dir"`
	Err    string        `json:"err"`
}

// Run runs all the episodes. It must be called on every rank.
func (w *Worker) Run(ctx context.Context) error {
	rnd := randx.WorkerStream(w.Config.Seed, w.Comm.Rank())
	for rep := 0; ; rep++ {
		p, ep, err := w.begin(ctx, rep)
		if err != nil {
			return err
		}
		err = w.episode(ctx, rep, p, ep, rnd)
		if ep != nil {
			err = errors.Join(err, ep.Close())
		}
		if err != nil {
			return fmt.Errorf("sim: episode %d: %w", rep, err)
		}
		if int64(rep+1) >= p.Repeat {
			return nil
		}
	}
}

// begin starts episode rep: rank 0 sets it up and broadcasts the
// outcome, so that every rank stops together if it failed.
func (w *Worker) begin(ctx context.Context, rep int) (params.Params, results.Episode, error) {
	var st start
	var ep results.Episode
	var err error
	if w.Comm.Rank() == mpi.Root {
		st.Params, ep, err = w.setup(rep)
		if err != nil {
			st.Err = err.Error()
		} else {
			st.Dir = ep.Dir()
		}
	}
	if berr := w.Comm.Bcast(ctx, mpi.Root, &st); berr != nil {
		if ep != nil {
			errors.Log(ep.Close())
		}
		return st.Params, nil, fmt.Errorf("sim: episode %d: %w", rep, berr)
	}
	if err != nil {
		return st.Params, nil, err
	}
	if st.Err != "" {
		return st.Params, nil, fmt.Errorf("sim: episode %d failed on rank %d: %s", rep, mpi.Root, st.Err)
	}
	w.Comm.Log.Info("episode start", "episode", rep, "dir", st.Dir, "params", st.Params.String())
	return st.Params, ep, nil
}

// setup loads the parameters on the first episode and opens the
// output of episode rep. It only runs on rank 0.
func (w *Worker) setup(rep int) (params.Params, results.Episode, error) {
	if w.params == nil {
		p, err := w.loadParams()
		if err != nil {
			return p, nil, err
		}
		w.params = &p
	}
	p := *w.params
	ep, err := w.Writer.Begin(rep)
	if err != nil {
		return p, nil, err
	}
	err = ep.Meta(Meta{
		Episode:       rep,
		Params:        p,
		Workers:       w.Comm.Size(),
		Seed:          w.Config.Seed,
		Init:          w.Config.Init,
		SnapshotEvery: w.Config.SnapshotEvery,
		Transport:     w.Config.Transport,
	})
	if err != nil {
		errors.Log(ep.Close())
		return p, nil, err
	}
	return p, ep, nil
}

func (w *Worker) loadParams() (params.Params, error) {
	p := w.Config.Params
	if w.Config.ParamsFile != "" {
		lp, err := params.Load(w.Config.ParamsFile, p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			w.Comm.Log.Warn("parameter file not found, using configured parameters", "file", w.Config.ParamsFile)
		case err != nil:
			return p, err
		default:
			p = lp
		}
	}
	if err := w.Config.ValidateParams(p); err != nil {
		return p, err
	}
	return p, nil
}

// episode runs one episode with parameters p. ep is nil except on rank 0.
func (w *Worker) episode(ctx context.Context, rep int, p params.Params, ep results.Episode, rnd randx.Rand) error {
	part, err := lattice.NewPartition(p.Size, w.Comm.Size())
	if err != nil {
		return err
	}
	lat, err := lattice.Allocate(ctx, w.Comm, part)
	if err != nil {
		return err
	}
	if w.Config.Init == config.InitRandom {
		lat.Randomize(rnd)
		if err := w.Comm.Barrier(ctx); err != nil {
			return err
		}
	}
	ev := energy.New(lat, p.J, p.B)
	var last energy.Stats
	s := &metropolis.Sampler{
		Eval:            ev,
		Rand:            rnd,
		Iterations:      p.Iterations,
		Episode:         rep,
		CheckpointEvery: w.Config.SnapshotEvery,
		Observer:        w.Observer,
		Checkpoint: func(ctx context.Context, round int64) error {
			st, err := ev.Stats(ctx)
			if err != nil {
				return err
			}
			last = st
			grid, err := lat.Snapshot(ctx, mpi.Root)
			if err != nil || ep == nil {
				return err
			}
			return errors.Join(ep.Spins(grid, p.Size), ep.Energy(st.Energy), ep.Magnetization(st.Magnetization))
		},
	}
	if err := s.Run(ctx); err != nil {
		return err
	}
	if err := lat.Free(ctx); err != nil {
		return err
	}
	w.Comm.Log.Info("episode done", "episode", rep, "energy", last.Energy, "magnetization", last.Magnetization)
	if w.Report {
		w.Comm.Printf("episode %d: energy %f magnetization %f\n", rep, last.Energy, last.Magnetization)
	}
	return nil
}

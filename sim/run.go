// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"context"
	"fmt"
	"time"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/base/mpi"
	"cogentcore.org/ising/base/mpi/wsnet"
	"cogentcore.org/ising/config"
	"cogentcore.org/ising/metropolis"
	"cogentcore.org/ising/results"
)

// AbortTimeout bounds the time a failing rank spends notifying
// the others of a multi-process job.
var AbortTimeout = 5 * time.Second

// Options are the settings of a job that are not part of its config.
type Options struct {

	// Writer receives the results on rank 0. If nil, a
	// [results.FileWriter] under the configured output is used.
	Writer results.Writer

	// Observer is passed to every [Worker].
	Observer func(metropolis.Step)

	// Report is passed to every [Worker].
	Report bool
}

// Run runs the job described by cfg on the configured transport.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.Writer == nil && (cfg.Transport == config.TransportChan || cfg.Rank == mpi.Root) {
		fw, err := results.NewFileWriter(cfg.Output)
		if err != nil {
			return err
		}
		opts.Writer = fw
	}
	if cfg.Transport == config.TransportWS {
		return RunRemote(ctx, cfg, opts)
	}
	return RunLocal(ctx, cfg, opts)
}

// RunLocal runs the job with cfg.Workers goroutine workers in this
// process. The first failing worker cancels the others.
func RunLocal(ctx context.Context, cfg *config.Config, opts Options) error {
	return mpi.RunLocal(ctx, cfg.Workers, func(ctx context.Context, cm *mpi.Comm) error {
		w := &Worker{Config: cfg.Clone(), Comm: cm, Writer: opts.Writer, Observer: opts.Observer, Report: opts.Report}
		return w.Run(ctx)
	})
}

// RunRemote runs rank cfg.Rank of a job with one process per rank,
// connected over websockets to cfg.Peers. A failing rank aborts
// the whole job.
func RunRemote(ctx context.Context, cfg *config.Config, opts Options) error {
	tr, err := wsnet.Listen(cfg.Rank, cfg.Peers[cfg.Rank])
	if err != nil {
		return err
	}
	return runTransport(ctx, cfg, tr, opts)
}

// runTransport connects the listening transport tr to the peers and
// runs this rank's worker on it.
func runTransport(ctx context.Context, cfg *config.Config, tr *wsnet.Transport, opts Options) error {
	if err := tr.Connect(ctx, cfg.Peers); err != nil {
		return errors.Join(err, tr.Close())
	}
	cm := mpi.NewComm(tr)
	w := &Worker{Config: cfg, Comm: cm, Writer: opts.Writer, Observer: opts.Observer, Report: opts.Report}
	err := w.Run(ctx)
	if err != nil && !errors.Is(err, mpi.ErrAborted) {
		cm.Log.Error("aborting job", "err", err)
		// the job context may be what failed
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), AbortTimeout)
		cm.Abort(actx, err)
		cancel()
	}
	if cerr := cm.Close(); cerr != nil {
		cm.Log.Debug("close", "err", cerr)
	}
	if err != nil {
		return fmt.Errorf("sim: rank %d: %w", cfg.Rank, err)
	}
	return nil
}

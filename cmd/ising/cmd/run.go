// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"cogentcore.org/ising/config"
	"github.com/spf13/cobra"
)

func (a *App) runCmd() *cobra.Command {
	var workers int
	var seed, every int64
	var initState, output string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a job with all workers in this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.Config
			c.Transport = config.TransportChan
			f := cmd.Flags()
			if f.Changed("workers") {
				c.Workers = workers
			}
			if f.Changed("seed") {
				c.Seed = seed
			}
			if f.Changed("init") {
				c.Init = initState
			}
			if f.Changed("output") {
				c.Output = output
			}
			if f.Changed("snapshot-every") {
				c.SnapshotEvery = every
			}
			return a.run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.IntVarP(&workers, "workers", "n", 1, "number of workers")
	f.Int64Var(&seed, "seed", 0, "base random seed")
	f.StringVar(&initState, "init", config.InitUp, "initial lattice: up or random")
	f.StringVarP(&output, "output", "o", "result", "result directory")
	f.Int64Var(&every, "snapshot-every", 1, "rounds between snapshots")
	return cmd
}

func (a *App) workerCmd() *cobra.Command {
	var rank int
	var peers []string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one rank of a job with one process per rank",
		Long: `Run one rank of a job with one process per rank. Every process is
started with the same --peers list of listening addresses, indexed by rank,
and its own --rank. Rank 0 loads the parameters and writes the results.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.Config
			c.Transport = config.TransportWS
			f := cmd.Flags()
			if f.Changed("rank") {
				c.Rank = rank
			}
			if f.Changed("peers") {
				c.Peers = peers
			}
			return a.run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.IntVar(&rank, "rank", 0, "rank of this process")
	f.StringSliceVar(&peers, "peers", nil, "listening addresses of all ranks, in rank order")
	return cmd
}

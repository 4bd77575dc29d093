// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmd contains the commands of the ising tool.
package cmd

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/base/logx"
	"cogentcore.org/ising/config"
	"cogentcore.org/ising/sim"
	"github.com/spf13/cobra"
)

// App holds the state shared by the commands.
type App struct {

	// Config is the job configuration, loaded before any command runs.
	Config *config.Config

	configFile string
	paramsFile string
	vv, v, q   bool
}

// NewRoot returns the root command of the ising tool.
func NewRoot() *cobra.Command {
	a := &App{}
	root := &cobra.Command{
		Use:           "ising",
		Short:         "Distributed Metropolis simulation of the 2D Ising model",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "TOML config file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&a.paramsFile, "params", "", "parameter file (default from config)")
	pf.BoolVarP(&a.v, "verbose", "v", false, "print info messages")
	pf.BoolVar(&a.vv, "vv", false, "print debug messages")
	pf.BoolVarP(&a.q, "quiet", "q", false, "only print errors")

	root.AddCommand(a.runCmd(), a.workerCmd(), a.paramsCmd(), a.menuCmd())
	return root
}

// load reads the config and sets up logging.
func (a *App) load(cmd *cobra.Command) error {
	a.Config = config.Defaults()
	switch {
	case a.configFile != "":
		if err := config.Open(a.Config, a.configFile); err != nil {
			return err
		}
	default:
		err := config.Open(a.Config, config.DefaultFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if a.paramsFile != "" {
		a.Config.ParamsFile = a.paramsFile
	}
	level, err := a.Config.Level()
	if err != nil {
		return err
	}
	if a.vv || a.v || a.q {
		level = logx.LevelFromFlags(a.vv, a.v, a.q)
	}
	logx.UserLevel = level
	logx.SetDefaultLogger()
	slog.Debug("loaded config", "file", a.configFile, "params", a.Config.ParamsFile)
	return nil
}

// run runs the configured job until it completes or is interrupted.
func (a *App) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return sim.Run(ctx, a.Config, sim.Options{Report: !a.q})
}

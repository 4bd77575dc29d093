// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"io/fs"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/params"
	"github.com/spf13/cobra"
)

// paramsFilename returns the parameter file used by the commands.
func (a *App) paramsFilename() string {
	if a.Config.ParamsFile == "" {
		return params.DefaultFile
	}
	return a.Config.ParamsFile
}

// loadParams loads the parameter file, falling back on the
// configured parameters if it does not exist.
func (a *App) loadParams() (params.Params, error) {
	p, err := params.Load(a.paramsFilename(), a.Config.Params)
	if errors.Is(err, fs.ErrNotExist) {
		return a.Config.Params, nil
	}
	return p, err
}

func (a *App) paramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show or change the parameter file",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadParams()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", a.paramsFilename(), p)
			return nil
		},
	}

	var np params.Params
	set := &cobra.Command{
		Use:   "set",
		Short: "Change parameters and save them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadParams()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("size") {
				p.Size = np.Size
			}
			if f.Changed("j") {
				p.J = np.J
			}
			if f.Changed("b") {
				p.B = np.B
			}
			if f.Changed("iterations") {
				p.Iterations = np.Iterations
			}
			if f.Changed("repeat") {
				p.Repeat = np.Repeat
			}
			if err := p.Validate(); err != nil {
				return err
			}
			if err := params.Save(a.paramsFilename(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	f := set.Flags()
	f.IntVar(&np.Size, "size", 0, "number of rows and columns")
	f.Float64Var(&np.J, "j", 0, "coupling J in [-1, 1]")
	f.Float64Var(&np.B, "b", 0, "magnetic field B in [-1, 1]")
	f.Int64Var(&np.Iterations, "iterations", 0, "rounds per episode")
	f.Int64Var(&np.Repeat, "repeat", 0, "number of episodes")

	cmd.AddCommand(show, set)
	return cmd
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"cogentcore.org/ising/params"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

const menuText = `====================================================
||         SELECT ACTION FROM LIST BELOW:         ||
|| 1. Change grid_size      4. Change iterations  ||
|| 2.     Change J          5.   Change repeat    ||
|| 3.     Change B          6.    Run program     ||
====================================================
`

// Menu is the interactive parameter editor. Every change is saved
// to File before the next choice is read.
type Menu struct {
	Params params.Params
	File   string

	in  *bufio.Scanner
	out *termenv.Output
}

// NewMenu returns a new menu reading choices from in and writing to out.
func NewMenu(p params.Params, file string, in io.Reader, out io.Writer) *Menu {
	sc := bufio.NewScanner(in)
	sc.Split(bufio.ScanWords)
	return &Menu{Params: p, File: file, in: sc, out: termenv.NewOutput(out)}
}

// Run shows the menu until the user chooses to run the program,
// in which case it returns true, or the input ends.
func (m *Menu) Run() (bool, error) {
	for {
		fmt.Fprint(m.out, menuText)
		fmt.Fprintf(m.out, "                Currently set parameters:\n%s\n\n>>  Choose option: ", m.Params)
		tok, ok := m.next()
		if !ok {
			return false, m.in.Err()
		}
		opt, _ := strconv.Atoi(tok)
		p := m.Params
		switch opt {
		case 1:
			ok = m.readInt("Enter new Net Size: ", "a positive integer for Net Size", &p.Size)
		case 2:
			ok = m.readFloat("Enter new J (-1 to 1): ", "a value between -1 and 1 for J", &p.J)
		case 3:
			ok = m.readFloat("Enter new B (-1 to 1): ", "a value between -1 and 1 for B", &p.B)
		case 4:
			ok = m.readInt64("Enter new iterations: ", "a positive integer for iterations", &p.Iterations)
		case 5:
			ok = m.readInt64("Enter new repeat: ", "a positive integer for repeat", &p.Repeat)
		case 6:
			m.out.ClearScreen()
			fmt.Fprintln(m.out, "Running the program")
			return true, nil
		default:
			fmt.Fprintln(m.out, "Invalid option")
			continue
		}
		if !ok {
			return false, m.in.Err()
		}
		m.Params = p
		if err := params.Save(m.File, p); err != nil {
			return false, err
		}
	}
}

func (m *Menu) next() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return m.in.Text(), true
}

// read prompts for a value until parse accepts one.
func (m *Menu) read(prompt, want string, parse func(string) bool) bool {
	m.out.ClearScreen()
	fmt.Fprint(m.out, prompt)
	for {
		tok, ok := m.next()
		if !ok {
			return false
		}
		if parse(tok) {
			return true
		}
		fmt.Fprintf(m.out, "Invalid input. Please enter %s: ", want)
	}
}

func (m *Menu) readInt(prompt, want string, v *int) bool {
	return m.read(prompt, want, func(s string) bool {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return false
		}
		*v = n
		return true
	})
}

func (m *Menu) readInt64(prompt, want string, v *int64) bool {
	return m.read(prompt, want, func(s string) bool {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return false
		}
		*v = n
		return true
	})
}

func (m *Menu) readFloat(prompt, want string, v *float64) bool {
	return m.read(prompt, want, func(s string) bool {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < -1 || f > 1 {
			return false
		}
		*v = f
		return true
	})
}

func (a *App) menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Edit the parameters interactively, then run a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadParams()
			if err != nil {
				return err
			}
			m := NewMenu(p, a.paramsFilename(), cmd.InOrStdin(), cmd.OutOrStdout())
			run, err := m.Run()
			if err != nil || !run {
				return err
			}
			a.Config.Params = m.Params
			a.Config.ParamsFile = m.File
			return a.run(cmd.Context())
		},
	}
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cogentcore.org/ising/params"
	"cogentcore.org/ising/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenu(t *testing.T) {
	file := filepath.Join(t.TempDir(), params.DefaultFile)
	in := strings.NewReader("1 0 abc 8\n2 5 0.5\n7\n5 3\n6\n")
	var out bytes.Buffer
	m := NewMenu(params.Defaults(), file, in, &out)
	run, err := m.Run()
	require.NoError(t, err)
	assert.True(t, run)
	assert.Equal(t, params.Params{Size: 8, J: 0.5, B: 0, Iterations: 1000, Repeat: 3}, m.Params)

	saved, err := params.Load(file, params.Params{})
	require.NoError(t, err)
	assert.Equal(t, m.Params, saved)

	s := out.String()
	assert.Contains(t, s, "Invalid input. Please enter a positive integer for Net Size")
	assert.Contains(t, s, "Invalid input. Please enter a value between -1 and 1 for J")
	assert.Contains(t, s, "Invalid option")
	assert.Contains(t, s, "Running the program")
}

func TestMenuEOF(t *testing.T) {
	file := filepath.Join(t.TempDir(), params.DefaultFile)
	m := NewMenu(params.Defaults(), file, strings.NewReader("3 -0.25\n4"), &bytes.Buffer{})
	run, err := m.Run()
	require.NoError(t, err)
	assert.False(t, run)
	assert.Equal(t, -0.25, m.Params.B)
	assert.Equal(t, int64(1000), m.Params.Iterations)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParamsCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), params.DefaultFile)
	_, err := execute(t, "params", "set", "--params", file, "--size", "8", "--j", "0.5", "--repeat", "2", "-q")
	require.NoError(t, err)
	out, err := execute(t, "params", "show", "--params", file, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "grid_size = 8, J = 0.5, B = 0, iterations = 1000, repeat = 2")

	_, err = execute(t, "params", "set", "--params", file, "--b", "3", "-q")
	assert.ErrorIs(t, err, params.ErrInvalid)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, params.DefaultFile)
	require.NoError(t, params.Save(file, params.Params{Size: 4, J: 1, B: 0.1, Iterations: 6, Repeat: 1}))
	output := filepath.Join(dir, "result")
	_, err := execute(t, "run", "-n", "2", "--seed", "9", "--init", "random", "--params", file, "-o", output, "-q")
	require.NoError(t, err)
	dirs, err := os.ReadDir(output)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	b, err := os.ReadFile(filepath.Join(output, dirs[0].Name(), results.SpinsFile))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(b)), "\n"), 4*6)

	_, err = execute(t, "run", "-n", "3", "--params", file, "-o", output, "-q")
	assert.Error(t, err)
}

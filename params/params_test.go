// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	want := Params{Size: 10, J: 0.5, B: 0.1, Iterations: 100, Repeat: 3}
	require.NoError(t, Save(path, want))
	got, err := Load(path, Params{})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Net Size: 10\nJ: 0.5\nB: 0.1\nNumber of iterations: 100\nNumber repeats: 3\n", string(b))
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, Save(path, Params{Size: 100, J: 1, B: 1, Iterations: 100000, Repeat: 100}))
	require.NoError(t, Save(path, Params{Size: 4, J: 1, Iterations: 1, Repeat: 1}))
	got, err := Load(path, Params{})
	require.NoError(t, err)
	assert.Equal(t, Params{Size: 4, J: 1, Iterations: 1, Repeat: 1}, got)
}

func TestReadReorderedAndUnknown(t *testing.T) {
	in := `# parameters
Number repeats: 2
B:   -0.25
Comment: ignored
Net Size:8
garbage line
J: 1
`
	got, err := Read(strings.NewReader(in), Defaults())
	require.NoError(t, err)
	assert.Equal(t, Params{Size: 8, J: 1, B: -0.25, Iterations: Defaults().Iterations, Repeat: 2}, got)
}

func TestReadBadValue(t *testing.T) {
	_, err := Read(strings.NewReader("Net Size: ten\n"), Defaults())
	assert.ErrorContains(t, err, "line 1")
}

func TestLoadMissing(t *testing.T) {
	base := Defaults()
	got, err := Load(filepath.Join(t.TempDir(), "none.txt"), base)
	assert.Error(t, err)
	assert.Equal(t, base, got)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
	bad := []Params{
		{Size: 0, J: 1, Iterations: 1, Repeat: 1},
		{Size: 4, J: 1.5, Iterations: 1, Repeat: 1},
		{Size: 4, J: 1, B: -2, Iterations: 1, Repeat: 1},
		{Size: 4, J: 1, Iterations: 0, Repeat: 1},
		{Size: 4, J: 1, Iterations: 1, Repeat: 0},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.Validate(), ErrInvalid, p.String())
	}
}

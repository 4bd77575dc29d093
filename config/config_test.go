// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/ising/lattice"
	"cogentcore.org/ising/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Validate())
	require.NoError(t, c.ValidateParams(c.Params))
	l, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
}

func TestValidate(t *testing.T) {
	c := Defaults()
	c.Init = "cold"
	assert.Error(t, c.Validate())

	c = Defaults()
	c.Workers = 0
	assert.ErrorIs(t, c.Validate(), lattice.ErrPartition)

	c = Defaults()
	c.Transport = TransportWS
	c.Peers = []string{"a:1", "b:2"}
	c.Rank = 2
	assert.Error(t, c.Validate())
	c.Rank = 1
	assert.NoError(t, c.Validate())
	assert.Equal(t, 2, c.Size())

	c = Defaults()
	c.LogLevel = "loud"
	assert.Error(t, c.Validate())
}

func TestValidateParams(t *testing.T) {
	c := Defaults()
	c.Workers = 3
	p := params.Defaults()
	assert.ErrorIs(t, c.ValidateParams(p), lattice.ErrPartition)
	p.Size = 9
	assert.NoError(t, c.ValidateParams(p))
	p.J = 2
	assert.ErrorIs(t, c.ValidateParams(p), params.ErrInvalid)
}

func TestClone(t *testing.T) {
	c := Defaults()
	c.Peers = []string{"a:1", "b:2"}
	nc := c.Clone()
	assert.Equal(t, c, nc)
	nc.Peers[0] = "c:3"
	nc.Params.Size = 4
	assert.Equal(t, "a:1", c.Peers[0])
	assert.Equal(t, 10, c.Params.Size)
}

func TestOpenSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	c := Defaults()
	c.Workers = 5
	c.Seed = 42
	c.Init = InitRandom
	c.Params.Size = 20
	c.Params.B = 0.25
	require.NoError(t, Save(c, path))

	nc := Defaults()
	require.NoError(t, Open(nc, path))
	assert.Equal(t, c, nc)
}

func TestOpenPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	src := "workers = 2\nseed = 7\n\n[params]\nsize = 8\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0666))
	c := Defaults()
	require.NoError(t, Open(c, path))
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, int64(7), c.Seed)
	assert.Equal(t, 8, c.Params.Size)
	assert.Equal(t, 1.0, c.Params.J)
	assert.Equal(t, "result", c.Output)

	require.NoError(t, os.WriteFile(path, []byte("wrkers = 2\n"), 0666))
	assert.Error(t, Open(Defaults(), path))
}

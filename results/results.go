// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package results writes the checkpoints of simulation episodes.
package results

import (
	"sync"

	"cogentcore.org/ising/base/errors"
)

// ErrIO wraps every file system error of a [Writer]. The job
// treats these as fatal, since later checkpoints need the files.
var ErrIO = errors.New("results: i/o error")

// Writer creates the output of each episode.
type Writer interface {

	// Begin starts the output of episode rep.
	Begin(rep int) (Episode, error)
}

// Episode receives the checkpoints of one episode.
type Episode interface {

	// Dir returns the location of the episode output.
	Dir() string

	// Spins appends the n×n grid of stored cell values.
	Spins(grid []byte, n int) error

	// Energy appends a total energy value.
	Energy(e float64) error

	// Magnetization appends an average magnetization value.
	Magnetization(m float64) error

	// Meta records run metadata for the episode.
	Meta(v any) error

	// Close finishes the episode.
	Close() error
}

// Memory is a [Writer] that keeps everything in memory.
type Memory struct {
	mu       sync.Mutex
	Episodes []*MemoryEpisode
}

// MemoryEpisode is the output of one episode of a [Memory] writer.
type MemoryEpisode struct {
	Rep            int
	Grids          [][]byte
	Energies       []float64
	Magnetizations []float64
	Metadata       any
	Closed         bool
}

func (m *Memory) Begin(rep int) (Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep := &MemoryEpisode{Rep: rep}
	m.Episodes = append(m.Episodes, ep)
	return ep, nil
}

func (ep *MemoryEpisode) Dir() string { return "" }

func (ep *MemoryEpisode) Spins(grid []byte, n int) error {
	ep.Grids = append(ep.Grids, append([]byte(nil), grid...))
	return nil
}

func (ep *MemoryEpisode) Energy(e float64) error {
	ep.Energies = append(ep.Energies, e)
	return nil
}

func (ep *MemoryEpisode) Magnetization(v float64) error {
	ep.Magnetizations = append(ep.Magnetizations, v)
	return nil
}

func (ep *MemoryEpisode) Meta(v any) error {
	ep.Metadata = v
	return nil
}

func (ep *MemoryEpisode) Close() error {
	ep.Closed = true
	return nil
}

// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package results

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// File names within an episode directory.
const (
	SpinsFile         = "spins.txt"
	EnergyFile        = "energy.txt"
	MagnetizationFile = "avgMagnetism.txt"
	MetaFile          = "run.yaml"
)

// TimeFormat is the layout of the timestamp in episode directory names.
const TimeFormat = "20060102_150405"

// FileWriter writes each episode into its own directory
// Root/<timestamp>_<rep>, appending one line per checkpoint
// to the flat result files.
type FileWriter struct {

	// Root is the directory containing all episode directories.
	Root string

	// Now returns the time used for directory names.
	Now func() time.Time
}

// NewFileWriter returns a new [FileWriter] under root, which may
// start with ~ for the home directory.
func NewFileWriter(root string) (*FileWriter, error) {
	r, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return &FileWriter{Root: r, Now: time.Now}, nil
}

// Begin creates the directory of episode rep. An existing directory
// with the same name is reused.
func (w *FileWriter) Begin(rep int) (Episode, error) {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	dir := filepath.Join(w.Root, w.Now().Format(TimeFormat)+"_"+strconv.Itoa(rep))
	err := os.Mkdir(dir, 0o755)
	switch {
	case os.IsExist(err):
		slog.Warn("episode directory already exists", "dir", dir)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	default:
		slog.Info("created episode directory", "dir", dir)
	}
	return &fileEpisode{dir: dir}, nil
}

type fileEpisode struct {
	dir string
}

func (ep *fileEpisode) Dir() string { return ep.dir }

func (ep *fileEpisode) append(name string, b []byte) error {
	f, err := os.OpenFile(filepath.Join(ep.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	_, err = f.Write(b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (ep *fileEpisode) Spins(grid []byte, n int) error {
	if len(grid) != n*n {
		return fmt.Errorf("results: grid of %d cells is not %d×%d", len(grid), n, n)
	}
	var b bytes.Buffer
	for i, c := range grid {
		b.WriteString(strconv.Itoa(int(c)))
		b.WriteByte(' ')
		if (i+1)%n == 0 {
			b.WriteByte('\n')
		}
	}
	return ep.append(SpinsFile, b.Bytes())
}

func (ep *fileEpisode) Energy(e float64) error {
	return ep.append(EnergyFile, fmt.Appendf(nil, "%f\n", e))
}

func (ep *fileEpisode) Magnetization(m float64) error {
	return ep.append(MagnetizationFile, fmt.Appendf(nil, "%f\n", m))
}

func (ep *fileEpisode) Meta(v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("results: meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(ep.dir, MetaFile), b, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func (ep *fileEpisode) Close() error { return nil }

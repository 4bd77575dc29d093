// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config contains the configuration of a simulation job.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/lattice"
	"cogentcore.org/ising/params"
	"github.com/jinzhu/copier"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is the name of the config file looked up by the CLI.
const DefaultFile = "ising.toml"

// Initial states of the lattice.
const (
	InitUp     = "up"
	InitRandom = "random"
)

// Transports that connect the workers of a job.
const (
	TransportChan = "chan"
	TransportWS   = "ws"
)

// Config is the configuration of a simulation job.
type Config struct {

	// Params are the simulation parameters, used as the base when
	// ParamsFile is loaded.
	Params params.Params `toml:"params"`

	// ParamsFile is the parameter store read by rank 0 before the
	// first episode. Empty means Params are used as they are.
	ParamsFile string `toml:"params_file"`

	// Workers is the number of workers of an in-process job.
	Workers int `toml:"workers"`

	// Seed is the base seed; worker r uses Seed + r.
	Seed int64 `toml:"seed"`

	// Init is the initial lattice state: "up" or "random".
	Init string `toml:"init"`

	// SnapshotEvery is the number of rounds between checkpoints.
	SnapshotEvery int64 `toml:"snapshot_every"`

	// Output is the root directory of the episode results.
	Output string `toml:"output"`

	// Transport is "chan" for goroutine workers in one process or
	// "ws" for one process per worker.
	Transport string `toml:"transport"`

	// Peers are the listening addresses of all ranks of a "ws" job,
	// indexed by rank.
	Peers []string `toml:"peers,omitempty"`

	// Rank is the rank of this process in a "ws" job.
	Rank int `toml:"rank"`

	// LogLevel is the slog level name: debug, info, warn or error.
	LogLevel string `toml:"log_level"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Params:        params.Defaults(),
		ParamsFile:    params.DefaultFile,
		Workers:       1,
		Init:          InitUp,
		SnapshotEvery: 1,
		Output:        "result",
		Transport:     TransportChan,
		LogLevel:      "warn",
	}
}

// Size returns the number of workers of the job.
func (c *Config) Size() int {
	if c.Transport == TransportWS {
		return len(c.Peers)
	}
	return c.Workers
}

// Level returns the parsed LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("config: log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Validate checks the settings that do not depend on the parameters.
func (c *Config) Validate() error {
	if !slices.Contains([]string{InitUp, InitRandom}, c.Init) {
		return fmt.Errorf("config: unknown init %q", c.Init)
	}
	if c.SnapshotEvery <= 0 {
		return fmt.Errorf("config: snapshot_every %d must be positive", c.SnapshotEvery)
	}
	switch c.Transport {
	case TransportChan:
		if c.Workers <= 0 {
			return fmt.Errorf("%w: %d workers", lattice.ErrPartition, c.Workers)
		}
	case TransportWS:
		if c.Rank < 0 || c.Rank >= len(c.Peers) {
			return fmt.Errorf("config: rank %d out of range for %d peers", c.Rank, len(c.Peers))
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	_, err := c.Level()
	return err
}

// ValidateParams checks p and that it can be partitioned among the
// workers of the job. Errors wrap [params.ErrInvalid] or
// [lattice.ErrPartition].
func (c *Config) ValidateParams(p params.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := lattice.NewPartition(p.Size, c.Size())
	return err
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	nc := &Config{}
	errors.Must(copier.CopyWithOption(nc, c, copier.Option{DeepCopy: true}))
	return nc
}

// Open reads the TOML file at path into c, overwriting only the
// settings present in the file. A leading ~ in path is expanded.
func Open(c *Config, path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	d := toml.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	if err := d.Decode(c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Save writes c to the TOML file at path.
func Save(c *Config, path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0666)
}

// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromFlags(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFromFlags(true, false, false))
	assert.Equal(t, slog.LevelInfo, LevelFromFlags(false, true, true))
	assert.Equal(t, slog.LevelError, LevelFromFlags(false, false, true))
	assert.Equal(t, slog.LevelWarn, LevelFromFlags(false, false, false))
}

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, slog.LevelInfo, termenv.WithProfile(termenv.Ascii))
	lg := slog.New(h).With("rank", 1).WithGroup("round")

	lg.Debug("hidden")
	assert.Empty(t, buf.String())

	lg.Info("checkpoint", "index", 3)
	out := buf.String()
	assert.Contains(t, out, "INFO  checkpoint")
	assert.Contains(t, out, " rank=1")
	assert.Contains(t, out, " round.index=3")
	assert.NotContains(t, out, "\x1b[")
}

func TestDefaultLogger(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	UserLevel = slog.LevelDebug
	defer func() { UserLevel = defaultUserLevel }()
	SetDefaultLogger()
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}

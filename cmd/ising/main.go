// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ising runs distributed Metropolis simulations of the
// two-dimensional Ising model.
package main

import (
	"os"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/cmd/ising/cmd"
)

func main() {
	if errors.Log(cmd.NewRoot().Execute()) != nil {
		os.Exit(1)
	}
}

// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunLocal runs f as the n ranks of one job within this process, one
// goroutine per rank, connected by [NewChanNetwork]. The first rank to
// return an error cancels the context of all the others, and that
// error is returned.
func RunLocal(ctx context.Context, n int, f func(ctx context.Context, cm *Comm) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, tr := range NewChanNetwork(n) {
		cm := NewComm(tr)
		g.Go(func() error {
			defer cm.Close()
			return f(ctx, cm)
		})
	}
	return g.Wait()
}

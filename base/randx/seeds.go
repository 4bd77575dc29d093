// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package randx

import (
	"time"
)

// Seeds is a set of random seeds, one per worker rank.
// A worker's stream depends only on its own seed, so a run is
// reproducible for a fixed base seed and worker count, but changing
// the number of workers changes which cells each stream proposes.
type Seeds []int64

// Init allocates seeds for n workers, set to base + rank.
func (rs *Seeds) Init(n int, base int64) {
	*rs = make([]int64, n)
	for i := range *rs {
		(*rs)[i] = base + int64(i)
	}
}

// NewSeeds sets a new set of random seeds based on current time
func (rs *Seeds) NewSeeds() {
	rn := time.Now().UnixNano()
	for i := range *rs {
		(*rs)[i] = rn + int64(i)
	}
}

// Stream returns a new independent [SysRand] for the given worker rank.
func (rs Seeds) Stream(rank int) *SysRand {
	return NewSysRand(rs[rank])
}

// WorkerStream returns the stream for the given rank under base seed,
// equivalent to a [Seeds] of any size initialized with base.
func WorkerStream(base int64, rank int) *SysRand {
	return NewSysRand(base + int64(rank))
}

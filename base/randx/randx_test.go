// Copyright (c) 2019, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package randx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func draw(r Rand, n int) []int {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = r.Intn(1000)
	}
	return vals
}

func TestSeedsInit(t *testing.T) {
	var rs Seeds
	rs.Init(3, 10)
	assert.Equal(t, Seeds{10, 11, 12}, rs)
}

func TestStreamsReproducible(t *testing.T) {
	var rs Seeds
	rs.Init(2, 0)
	a := draw(rs.Stream(1), 20)
	b := draw(WorkerStream(0, 1), 20)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, draw(rs.Stream(0), 20))
}

func TestSeedResets(t *testing.T) {
	r := NewSysRand(5)
	a := r.Float64()
	r.Seed(5)
	assert.Equal(t, a, r.Float64())

	var z SysRand
	z.Seed(5)
	assert.Equal(t, a, z.Float64())
}

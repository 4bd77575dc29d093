// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mpi provides the message passing layer shared by the workers
// of a distributed job: point-to-point requests routed to the rank that
// owns some piece of state, and collective barrier, reduce, broadcast
// and gather operations.
//
// All communication operates as methods on [Comm]. A Comm belongs to
// exactly one worker, and every one of its blocking calls keeps
// servicing incoming requests from other ranks while it waits, so a
// rank's registered [Handler]s only ever run on that rank's own goroutine.
//
// The underlying [Transport] can be an in-process channel network
// ([NewChanNetwork]) or a network transport such as wsnet.
package mpi

import (
	"math"

	"cogentcore.org/ising/base/errors"
)

var (
	// ErrRemote is returned when a request to another rank fails,
	// either on the owner side or in transit.
	ErrRemote = errors.New("mpi: remote access failed")

	// ErrAborted is returned by blocking calls after another rank
	// called [Comm.Abort].
	ErrAborted = errors.New("mpi: job aborted")

	// ErrClosed is returned by a [Transport] that has been closed,
	// or when sending to a rank whose end has been closed.
	ErrClosed = errors.New("mpi: transport closed")
)

// Op is an aggregation operation: Sum, Min, Max, etc
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
	OpProd
)

const (
	// Root is the rank 0 node -- it is more semantic to use this
	Root int = 0
)

// String returns the name of the operation.
func (op Op) String() string {
	switch op {
	case OpSum:
		return "Sum"
	case OpMax:
		return "Max"
	case OpMin:
		return "Min"
	case OpProd:
		return "Prod"
	}
	return "Op(?)"
}

// apply combines b into a element-wise.
func (op Op) apply(a, b []float64) {
	for i := range a {
		switch op {
		case OpSum:
			a[i] += b[i]
		case OpMax:
			a[i] = math.Max(a[i], b[i])
		case OpMin:
			a[i] = math.Min(a[i], b[i])
		case OpProd:
			a[i] *= b[i]
		}
	}
}

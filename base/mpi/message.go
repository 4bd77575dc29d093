// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import "slices"

// Kind is the type of a [Message].
type Kind uint8

const (
	// KindRequest asks the receiving rank to run a [Handler].
	KindRequest Kind = iota

	// KindResponse answers a KindRequest with the same Seq.
	KindResponse

	// KindGather is a contribution sent to the root of a collective.
	KindGather

	// KindRelease is sent by the root of a collective to every other rank.
	KindRelease

	// KindAbort tells the receiver that the sender aborted the job.
	KindAbort
)

// Message is the unit of communication between ranks.
// Messages are JSON encoded by network transports.
type Message struct {
	Kind Kind `json:"k"`

	// From is the rank of the sender.
	From int `json:"f"`

	// Seq is the request id for requests and responses,
	// and the collective sequence number for collectives.
	Seq uint64 `json:"s"`

	// Handle selects the [Handler] that serves a request.
	Handle uint64 `json:"h,omitempty"`

	// Code is a handler-defined operation code.
	Code uint8 `json:"c,omitempty"`

	Index int `json:"i,omitempty"`

	Value int `json:"v,omitempty"`

	Floats []float64 `json:"d,omitempty"`

	Data []byte `json:"b,omitempty"`

	// Err is set on responses whose handler failed, and on aborts.
	Err string `json:"e,omitempty"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	c.Floats = slices.Clone(m.Floats)
	c.Data = slices.Clone(m.Data)
	return &c
}

// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import (
	"context"
	"fmt"
	"sync"
)

// Transport delivers messages between the ranks of a job.
// Messages between any ordered pair of ranks are delivered in order.
// Send must not block indefinitely on a slow receiver.
type Transport interface {
	// Rank returns the rank this transport sends from.
	Rank() int

	// Size returns the number of ranks in the job.
	Size() int

	// Send delivers m to the given rank. The caller must not
	// modify m afterwards.
	Send(ctx context.Context, to int, m *Message) error

	// Recv blocks until the next message for this rank arrives.
	Recv(ctx context.Context) (*Message, error)

	// Close releases the transport; pending and later Recv calls
	// return [ErrClosed].
	Close() error
}

// Mailbox is an unbounded FIFO queue of messages for one rank.
type Mailbox struct {
	mu     sync.Mutex
	queue  []*Message
	signal chan struct{}
	closed bool
}

// NewMailbox returns a new empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{signal: make(chan struct{}, 1)}
}

// Put appends m to the queue. It never blocks.
func (mb *Mailbox) Put(m *Message) error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return ErrClosed
	}
	mb.queue = append(mb.queue, m)
	mb.mu.Unlock()
	mb.notify()
	return nil
}

// Get removes and returns the oldest message, blocking until one
// arrives, the context is done, or the mailbox is closed.
func (mb *Mailbox) Get(ctx context.Context) (*Message, error) {
	for {
		mb.mu.Lock()
		if len(mb.queue) > 0 {
			m := mb.queue[0]
			mb.queue[0] = nil
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()
			return m, nil
		}
		closed := mb.closed
		mb.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-mb.signal:
		}
	}
}

// Close wakes any waiting Get; queued messages are still delivered.
func (mb *Mailbox) Close() {
	mb.mu.Lock()
	mb.closed = true
	mb.mu.Unlock()
	mb.notify()
}

func (mb *Mailbox) notify() {
	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

// chanTransport is one rank's view of an in-process network.
type chanTransport struct {
	rank  int
	boxes []*Mailbox
}

// NewChanNetwork returns n connected in-process transports,
// one per rank, for running all workers of a job as goroutines.
func NewChanNetwork(n int) []Transport {
	boxes := make([]*Mailbox, n)
	for i := range boxes {
		boxes[i] = NewMailbox()
	}
	ts := make([]Transport, n)
	for i := range ts {
		ts[i] = &chanTransport{rank: i, boxes: boxes}
	}
	return ts
}

func (t *chanTransport) Rank() int { return t.rank }

func (t *chanTransport) Size() int { return len(t.boxes) }

func (t *chanTransport) Send(ctx context.Context, to int, m *Message) error {
	if to < 0 || to >= len(t.boxes) {
		return fmt.Errorf("mpi: send to invalid rank %d of %d", to, len(t.boxes))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.boxes[to].Put(m.Clone())
}

func (t *chanTransport) Recv(ctx context.Context) (*Message, error) {
	return t.boxes[t.rank].Get(ctx)
}

func (t *chanTransport) Close() error {
	t.boxes[t.rank].Close()
	return nil
}

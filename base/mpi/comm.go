// Copyright (c) 2020, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpi

import (
	"context"
	"fmt"
	"log/slog"

	"cogentcore.org/ising/base/errors"
)

// Handler serves a request addressed to this rank, filling in resp.
// A returned error is sent back to the requester and surfaces there
// as [ErrRemote].
type Handler func(req, resp *Message) error

// Comm is the communicator of one rank. All communication operates as
// methods on this struct. It is not safe for concurrent use: it belongs
// to the single goroutine running that rank.
type Comm struct {

	// Log is the logger used for this rank, with a rank attribute.
	Log *slog.Logger

	tr Transport

	// nextReq is the sequence number of the next request sent.
	nextReq uint64

	// waiting holds requests in flight; the value is nil until
	// the response arrives.
	waiting map[uint64]*Message

	// collSeq counts collective calls; every rank makes the same
	// collective calls in the same order, so it is identical everywhere.
	collSeq uint64

	// coll holds collective messages received for each sequence number.
	coll map[uint64][]*Message

	handlers map[uint64]Handler

	// aborted is set once an abort message has been received.
	aborted error

	// draining is set while drain dispatches queued messages.
	draining bool
}

// NewComm creates a new communicator over the given transport.
func NewComm(tr Transport) *Comm {
	return &Comm{
		Log:      slog.Default().With("rank", tr.Rank()),
		tr:       tr,
		waiting:  map[uint64]*Message{},
		coll:     map[uint64][]*Message{},
		handlers: map[uint64]Handler{},
	}
}

// Rank returns the rank/ID for this proc
func (cm *Comm) Rank() int {
	return cm.tr.Rank()
}

// Size returns the number of procs in this communicator
func (cm *Comm) Size() int {
	return cm.tr.Size()
}

// Close closes the underlying transport.
func (cm *Comm) Close() error {
	return cm.tr.Close()
}

// Handle registers h to serve requests carrying the given handle.
func (cm *Comm) Handle(handle uint64, h Handler) {
	cm.handlers[handle] = h
}

// Unhandle removes the handler for the given handle. Later requests
// for it are answered with an error.
func (cm *Comm) Unhandle(handle uint64) {
	delete(cm.handlers, handle)
}

// NextHandle returns a handle that is identical on every rank,
// provided that it is called collectively in the same order.
func (cm *Comm) NextHandle() uint64 {
	return cm.collSeq + 1
}

// Abort notifies every other rank that the job failed with err.
// Their blocking calls return [ErrAborted]. Send failures are ignored,
// since the job is going down anyway.
func (cm *Comm) Abort(ctx context.Context, err error) {
	msg := "aborted"
	if err != nil {
		msg = err.Error()
	}
	for to := range cm.Size() {
		if to == cm.Rank() {
			continue
		}
		cm.tr.Send(ctx, to, &Message{Kind: KindAbort, From: cm.Rank(), Err: msg})
	}
	cm.aborted = fmt.Errorf("%w: %s", ErrAborted, msg)
}

// Pending is a request in flight, returned by [Comm.Go].
type Pending struct {
	seq uint64
	to  int
}

// Go sends req to rank to without waiting for the response.
// The response must be collected with [Comm.Wait].
func (cm *Comm) Go(ctx context.Context, to int, req *Message) (*Pending, error) {
	cm.nextReq++
	req.Kind = KindRequest
	req.From = cm.Rank()
	req.Seq = cm.nextReq
	cm.waiting[req.Seq] = nil
	if err := cm.send(ctx, to, req); err != nil {
		delete(cm.waiting, req.Seq)
		return nil, err
	}
	return &Pending{seq: req.Seq, to: to}, nil
}

// Wait blocks until the responses to all given requests have arrived,
// servicing incoming requests meanwhile. Responses are returned in the
// order of ps. If any handler failed, the error wraps [ErrRemote].
func (cm *Comm) Wait(ctx context.Context, ps ...*Pending) ([]*Message, error) {
	err := cm.progress(ctx, func() bool {
		for _, p := range ps {
			if cm.waiting[p.seq] == nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	resps := make([]*Message, len(ps))
	var errs []error
	for i, p := range ps {
		resps[i] = cm.waiting[p.seq]
		delete(cm.waiting, p.seq)
		if resps[i].Err != "" {
			errs = append(errs, fmt.Errorf("%w: rank %d: %s", ErrRemote, p.to, resps[i].Err))
		}
	}
	return resps, errors.Join(errs...)
}

// Call sends req to rank to and blocks until the response arrives.
func (cm *Comm) Call(ctx context.Context, to int, req *Message) (*Message, error) {
	p, err := cm.Go(ctx, to, req)
	if err != nil {
		return nil, err
	}
	resps, err := cm.Wait(ctx, p)
	if err != nil {
		return nil, err
	}
	return resps[0], nil
}

// send sends m to rank to. When that fails, the messages already
// received are dispatched first, so that an abort which explains the
// failure is reported as such. A rank that has closed its transport
// has left the job, which aborts it.
func (cm *Comm) send(ctx context.Context, to int, m *Message) error {
	err := cm.tr.Send(ctx, to, m)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	cm.drain(ctx)
	if cm.aborted != nil {
		return cm.aborted
	}
	if errors.Is(err, ErrClosed) {
		cm.aborted = fmt.Errorf("%w: rank %d has left the job", ErrAborted, to)
		return cm.aborted
	}
	return fmt.Errorf("%w: send to rank %d: %w", ErrRemote, to, err)
}

// drain dispatches the messages already received, without blocking,
// until none is left or one of them aborts the job.
func (cm *Comm) drain(ctx context.Context) {
	if cm.draining {
		return
	}
	cm.draining = true
	defer func() { cm.draining = false }()
	poll, cancel := context.WithCancel(ctx)
	cancel()
	for cm.aborted == nil {
		m, err := cm.tr.Recv(poll)
		if err != nil {
			return
		}
		if err := cm.dispatch(ctx, m); err != nil {
			return
		}
	}
}

// progress receives and dispatches messages until done returns true.
func (cm *Comm) progress(ctx context.Context, done func() bool) error {
	for !done() {
		if cm.aborted != nil {
			return cm.aborted
		}
		m, err := cm.tr.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: receive: %w", ErrRemote, err)
		}
		if err := cm.dispatch(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (cm *Comm) dispatch(ctx context.Context, m *Message) error {
	switch m.Kind {
	case KindRequest:
		resp := &Message{Kind: KindResponse, From: cm.Rank(), Seq: m.Seq, Handle: m.Handle}
		h, ok := cm.handlers[m.Handle]
		if !ok {
			resp.Err = fmt.Sprintf("no handler for handle %d", m.Handle)
		} else if err := h(m, resp); err != nil {
			resp.Err = err.Error()
		}
		return cm.send(ctx, m.From, resp)
	case KindResponse:
		if _, ok := cm.waiting[m.Seq]; !ok {
			cm.Log.Warn("dropping unexpected response", "from", m.From, "seq", m.Seq)
			return nil
		}
		cm.waiting[m.Seq] = m
	case KindGather, KindRelease:
		cm.coll[m.Seq] = append(cm.coll[m.Seq], m)
	case KindAbort:
		cm.aborted = fmt.Errorf("%w: rank %d: %s", ErrAborted, m.From, m.Err)
	default:
		return fmt.Errorf("%w: unknown message kind %d from rank %d", ErrRemote, m.Kind, m.From)
	}
	return nil
}

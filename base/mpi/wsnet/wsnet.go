// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wsnet provides an [mpi.Transport] that connects the ranks of a
// job running as separate processes over WebSocket connections.
// Each rank listens for incoming connections and dials one connection
// to every other rank; messages are sent as JSON text frames.
package wsnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"cogentcore.org/ising/base/errors"
	"cogentcore.org/ising/base/mpi"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Path is the HTTP path on which ranks accept connections.
const Path = "/ising"

// RetryInterval is how long Connect waits between dial attempts
// while a peer is not yet listening.
var RetryInterval = 100 * time.Millisecond

// Transport is one rank's WebSocket endpoint.
type Transport struct {
	rank  int
	size  int
	box   *mpi.Mailbox
	ln    net.Listener
	srv   *http.Server
	peers []*peer

	mu      sync.Mutex
	inbound []*websocket.Conn
	closed  bool
}

// peer is an outgoing connection, with writes serialized by mu.
type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Listen starts accepting connections for the given rank on addr
// (for example "127.0.0.1:0"). [Transport.Connect] must be called
// before the transport is used.
func Listen(rank int, addr string) (*Transport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("wsnet: listen on %s: %w", addr, err)
	}
	t := &Transport{rank: rank, box: mpi.NewMailbox(), ln: ln}
	mux := http.NewServeMux()
	mux.HandleFunc(Path, t.serve)
	t.srv = &http.Server{Handler: mux}
	go func() {
		err := t.srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("wsnet: serve", "rank", rank, "err", err)
		}
	}()
	return t, nil
}

// Addr returns the address the transport is listening on.
func (t *Transport) Addr() string {
	return t.ln.Addr().String()
}

// Connect dials every other rank, where addrs[i] is the listening
// address of rank i. It retries until ctx is done, so ranks may
// start in any order.
func (t *Transport) Connect(ctx context.Context, addrs []string) error {
	if t.rank < 0 || t.rank >= len(addrs) {
		return fmt.Errorf("wsnet: rank %d out of range for %d peers", t.rank, len(addrs))
	}
	t.size = len(addrs)
	t.peers = make([]*peer, t.size)
	g, ctx := errgroup.WithContext(ctx)
	for to, addr := range addrs {
		if to == t.rank {
			continue
		}
		g.Go(func() error {
			conn, err := t.dial(ctx, addr)
			if err != nil {
				return fmt.Errorf("wsnet: connect rank %d to rank %d at %s: %w", t.rank, to, addr, err)
			}
			t.peers[to] = &peer{conn: conn}
			return nil
		})
	}
	return g.Wait()
}

func (t *Transport) dial(ctx context.Context, addr string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path, RawQuery: "from=" + strconv.Itoa(t.rank)}
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), err)
		case <-time.After(RetryInterval):
		}
	}
}

var upgrader = websocket.Upgrader{}

// serve reads messages from one incoming connection into the mailbox.
// A connection lost before a clean close is reported to the rank as an
// abort from the peer, since the job cannot continue without it.
func (t *Transport) serve(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "missing sender rank", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("wsnet: upgrade", "rank", t.rank, "from", from, "err", err)
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		errors.Log(conn.Close())
		return
	}
	t.inbound = append(t.inbound, conn)
	t.mu.Unlock()
	defer func() {
		if t.release(conn) {
			errors.Log(conn.Close())
		}
	}()

	for {
		m := &mpi.Message{}
		if err := conn.ReadJSON(m); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.box.Put(&mpi.Message{Kind: mpi.KindAbort, From: from, Err: "connection lost: " + err.Error()})
			}
			return
		}
		if m.From != from {
			slog.Warn("wsnet: sender mismatch", "rank", t.rank, "conn", from, "message", m.From)
		}
		if t.box.Put(m) != nil {
			return
		}
	}
}

// release removes conn from the inbound connections, returning
// whether it was still there, in which case the caller closes it.
func (t *Transport) release(conn *websocket.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.Index(t.inbound, conn)
	if i < 0 {
		return false
	}
	t.inbound = slices.Delete(t.inbound, i, i+1)
	return true
}

func (t *Transport) Rank() int { return t.rank }

func (t *Transport) Size() int { return t.size }

func (t *Transport) Send(ctx context.Context, to int, m *mpi.Message) error {
	if to == t.rank {
		return t.box.Put(m.Clone())
	}
	if to < 0 || to >= len(t.peers) || t.peers[to] == nil {
		return fmt.Errorf("wsnet: no connection to rank %d", to)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p := t.peers[to]
	p.mu.Lock()
	defer p.mu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		if err := p.conn.SetWriteDeadline(dl); err != nil {
			return err
		}
	}
	// a cancelled job closes the connection, which unblocks a write
	// stalled on a peer that stopped reading
	stop := context.AfterFunc(ctx, func() {
		errors.Log(p.conn.NetConn().Close())
	})
	defer stop()
	err := p.conn.WriteJSON(m)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: write to rank %d: %w", mpi.ErrClosed, to, err)
	}
	return nil
}

func (t *Transport) Recv(ctx context.Context) (*mpi.Message, error) {
	return t.box.Get(ctx)
}

// Close cleanly closes all connections and stops listening.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	inbound := t.inbound
	t.inbound = nil
	t.mu.Unlock()

	var errs []error
	for _, c := range inbound {
		errs = append(errs, c.Close())
	}
	for to, p := range t.peers {
		if p == nil {
			continue
		}
		p.mu.Lock()
		// the peer may have gone already
		err := p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		if err != nil {
			slog.Debug("wsnet: close message", "rank", t.rank, "to", to, "err", err)
		}
		errs = append(errs, p.conn.Close())
		p.mu.Unlock()
	}
	errs = append(errs, t.srv.Close())
	t.box.Close()
	return errors.Join(errs...)
}

package ftpkit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type poolState int32

const (
	poolClosed poolState = iota
	poolOpening
	poolOpen
	poolClosing
)

// Pool is a bounded pool of authenticated FTP control connections. Open
// dials and logs in MaxConnections connections up front; Get/Release hand
// them out to concurrent callers; Close tears every connection down.
//
// Pool owns no separate worker thread pool: Get/Release are channel
// operations, and blocking FTP calls simply run on whichever goroutine
// calls them. Callers that want to bound concurrent FTP traffic do so with
// an errgroup.Group.SetLimit(MaxWorkers), as FileSystem and Orchestrator do.
type Pool struct {
	params *ConnectionParameters
	log    *logrus.Logger

	state atomic.Int32

	ready chan *ftp.ServerConn

	mu      sync.Mutex
	tracked map[*ftp.ServerConn]struct{}
}

// NewPool constructs a Pool bound to params. The pool is not usable until
// Open succeeds. log may be nil, in which case a logger is allocated with
// logrus defaults.
func NewPool(params *ConnectionParameters, log *logrus.Logger) *Pool {
	if log == nil {
		log = logrus.New()
	}
	return &Pool{
		params:  params,
		log:     log,
		tracked: make(map[*ftp.ServerConn]struct{}),
	}
}

func (p *Pool) loadState() poolState { return poolState(p.state.Load()) }

// Open idempotently dials and logs in MaxConnections connections in
// parallel, subject to a total deadline of params.Timeout. A second call
// while already open is a no-op; a failed call leaves the pool closed.
func (p *Pool) Open(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(poolClosed), int32(poolOpening)) {
		if p.loadState() == poolOpen {
			return nil
		}
		return ErrPoolAlreadyOpen
	}

	ctx, cancel := contextWithOptionalTimeout(ctx, p.params.Timeout)
	defer cancel()

	ready := make(chan *ftp.ServerConn, p.params.MaxConnections)
	tracked := make([]*ftp.ServerConn, 0, p.params.MaxConnections)
	var mu sync.Mutex

	grp, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.params.MaxConnections; i++ {
		grp.Go(func() error {
			conn, err := dialAndLogin(gctx, p.params)
			if err != nil {
				return err
			}
			mu.Lock()
			tracked = append(tracked, conn)
			mu.Unlock()
			ready <- conn
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		for _, c := range tracked {
			_ = c.Quit()
		}
		p.state.Store(int32(poolClosed))
		if ctx.Err() != nil {
			return &PoolOpenTimeoutError{MaxConnections: p.params.MaxConnections, Err: err}
		}
		return &FTPError{Op: "open", Err: err}
	}

	p.mu.Lock()
	for _, c := range tracked {
		p.tracked[c] = struct{}{}
	}
	p.mu.Unlock()
	p.ready = ready
	p.state.Store(int32(poolOpen))
	return nil
}

// Get blocks until a connection is available or ctx is cancelled. The
// caller must return the connection via Release on every exit path.
func (p *Pool) Get(ctx context.Context) (*ftp.ServerConn, error) {
	if p.loadState() != poolOpen {
		return nil, ErrPoolNotOpen
	}
	select {
	case c := <-p.ready:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns c to the pool. If the pool is not open, c is closed
// instead of recycled. If c was not created by this pool, a warning is
// logged and c is dropped without being closed or recycled.
func (p *Pool) Release(c *ftp.ServerConn) {
	if c == nil {
		return
	}
	if p.loadState() != poolOpen {
		_ = c.Quit()
		return
	}

	p.mu.Lock()
	_, ok := p.tracked[c]
	p.mu.Unlock()
	if !ok {
		p.log.WithField("component", "pool").Warn("release of untracked connection dropped")
		return
	}

	select {
	case p.ready <- c:
	default:
		// Ready queue is at capacity; this should not happen for a
		// well-behaved caller, but close rather than leak.
		_ = c.Quit()
	}
}

// Close idempotently closes every tracked connection in parallel and marks
// the pool closed. The tracked map is a superset of the ready queue, so the
// queue itself is never drained or closed here: a Release racing Close can
// still complete its send without panicking, and the stale channel is simply
// replaced by the next Open. The first close error observed, if any, is
// returned.
func (p *Pool) Close(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(poolOpen), int32(poolClosing)) {
		return nil
	}

	p.mu.Lock()
	conns := make([]*ftp.ServerConn, 0, len(p.tracked))
	for c := range p.tracked {
		conns = append(conns, c)
	}
	p.tracked = make(map[*ftp.ServerConn]struct{})
	p.mu.Unlock()

	grp, _ := errgroup.WithContext(ctx)
	for _, c := range conns {
		conn := c
		grp.Go(func() error { return closeConnection(conn) })
	}
	err := grp.Wait()
	p.state.Store(int32(poolClosed))
	if err != nil {
		return &FTPError{Op: "close", Err: err}
	}
	return nil
}

// closeConnection sends QUIT and tears the control connection down. The
// client library closes the underlying socket as part of Quit even when the
// server's goodbye fails, so there is no separate hard-close to fall back
// to; any error is surfaced as-is.
func closeConnection(c *ftp.ServerConn) error {
	return c.Quit()
}

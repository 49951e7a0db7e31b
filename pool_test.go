package ftpkit

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/attenberger/ftpkit/internal/fakeftp"
)

func testParams(t *testing.T, addr string, maxConnections, maxWorkers int) *ConnectionParameters {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("splitting fake server addr %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing fake server port %q: %v", portStr, err)
	}
	return &ConnectionParameters{
		Host:           host,
		Port:           port,
		Credentials:    Credentials{Username: "user", Password: "pass"},
		Timeout:        2 * time.Second,
		MaxConnections: maxConnections,
		MaxWorkers:     maxWorkers,
	}
}

func TestPoolOpenDialsExactlyMaxConnections(t *testing.T) {
	srv, err := fakeftp.New()
	if err != nil {
		t.Fatalf("fakeftp.New: %v", err)
	}
	defer srv.Close()

	params := testParams(t, srv.Addr(), 3, 9)
	pool := NewPool(params, nil)

	ctx := context.Background()
	if err := pool.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := pool.Open(ctx); err != nil {
		t.Fatalf("second Open: %v", err)
	}

	if got := len(pool.tracked); got != 3 {
		t.Errorf("tracked connections = %d, want 3", got)
	}

	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pool.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPoolGetReleaseBalance(t *testing.T) {
	srv, err := fakeftp.New()
	if err != nil {
		t.Fatalf("fakeftp.New: %v", err)
	}
	defer srv.Close()

	params := testParams(t, srv.Addr(), 2, 2)
	pool := NewPool(params, nil)
	ctx := context.Background()
	if err := pool.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close(ctx)

	c1, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	c2, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	getCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := pool.Get(getCtx); err == nil {
		t.Fatal("Get succeeded with no connections available, want a timeout error")
	}

	pool.Release(c1)
	c3, err := pool.Get(ctx)
	if err != nil {
		t.Fatalf("Get after Release: %v", err)
	}

	pool.Release(c2)
	pool.Release(c3)
}

func TestPoolGetFailsWhenNotOpen(t *testing.T) {
	params := &ConnectionParameters{Host: "127.0.0.1", Port: 21, Credentials: Credentials{Username: "u", Password: "p"}, Timeout: time.Second, MaxConnections: 1, MaxWorkers: 1}
	pool := NewPool(params, nil)
	if _, err := pool.Get(context.Background()); err != ErrPoolNotOpen {
		t.Errorf("Get on closed pool = %v, want ErrPoolNotOpen", err)
	}
}

func TestPoolCloseIsIdempotentAndReleasesAllConnections(t *testing.T) {
	srv, err := fakeftp.New()
	if err != nil {
		t.Fatalf("fakeftp.New: %v", err)
	}
	defer srv.Close()

	params := testParams(t, srv.Addr(), 4, 4)
	pool := NewPool(params, nil)
	ctx := context.Background()
	if err := pool.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := pool.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pool.Get(ctx); err != ErrPoolNotOpen {
		t.Errorf("Get after Close = %v, want ErrPoolNotOpen", err)
	}
	if err := pool.Close(ctx); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

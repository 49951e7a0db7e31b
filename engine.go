package ftpkit

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/attenberger/ftpkit/transfer"
)

// Engine is the bulk transfer primitive: one file up, or one file down,
// over a pooled connection. Each transfer acquires a connection from the
// shared Pool for its duration rather than dialing a dedicated connection
// per task.
type Engine struct {
	pool   *Pool
	params *ConnectionParameters
}

// NewEngine builds a transfer Engine over pool.
func NewEngine(pool *Pool, params *ConnectionParameters) *Engine {
	return &Engine{pool: pool, params: params}
}

// Download fetches the single remote file src into the local path dst,
// creating dst's parent directory first. It returns the number of bytes
// written.
func (e *Engine) Download(ctx context.Context, src, dst string) (int64, error) {
	dst, err := expandHome(dst)
	if err != nil {
		return 0, &LocalIOError{Path: dst, Err: err}
	}
	if parent := filepath.Dir(dst); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return 0, &LocalIOError{Path: parent, Err: err}
		}
	}

	url := transfer.EnsureFTPURL(e.params.Host, e.params.Port, src)

	conn, err := e.pool.Get(ctx)
	if err != nil {
		return 0, err
	}
	defer e.pool.Release(conn)

	resp, err := conn.Retr(src)
	if err != nil {
		return 0, &FTPError{Op: "download", Target: url, Err: err}
	}
	defer resp.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, &LocalIOError{Path: dst, Err: err}
	}
	defer f.Close()

	n, err := io.Copy(f, resp)
	if err != nil {
		return n, &LocalIOError{Path: dst, Err: err}
	}
	return n, nil
}

// Upload pushes the single local file src to the remote path dst. The
// caller is responsible for ensuring dst's parent directory already exists
// on the server (the orchestrator does this once per batch via
// FileSystem.MakeDirs before scheduling any Upload).
func (e *Engine) Upload(ctx context.Context, src, dst string) (int64, error) {
	url := transfer.EnsureFTPURL(e.params.Host, e.params.Port, dst)

	f, err := os.Open(src)
	if err != nil {
		return 0, &LocalIOError{Path: src, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, &LocalIOError{Path: src, Err: err}
	}

	conn, err := e.pool.Get(ctx)
	if err != nil {
		return 0, err
	}
	defer e.pool.Release(conn)

	if err := conn.Stor(dst, f); err != nil {
		return 0, &FTPError{Op: "upload", Target: url, Err: err}
	}
	return info.Size(), nil
}

// expandHome resolves a leading "~" against os.UserHomeDir for local
// download destinations.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

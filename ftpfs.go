package ftpkit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/attenberger/ftpkit/pathtrie"
)

// walkPollInterval is how often Walk's driver re-checks the stop flag while
// waiting for worker output. Short enough to stay responsive to
// cancellation, long enough not to spin.
const walkPollInterval = 100 * time.Millisecond

// FileSystem layers directory listing, parallel walking, path-trie backed
// directory creation, and recursive removal on top of a Pool.
type FileSystem struct {
	pool   *Pool
	params *ConnectionParameters
	log    *logrus.Logger
}

// NewFileSystem wraps pool with file-system style operations. pool must
// already be open (or Open must be called via Pool directly) before any
// FileSystem method is used.
func NewFileSystem(pool *Pool, params *ConnectionParameters, log *logrus.Logger) *FileSystem {
	if log == nil {
		log = logrus.New()
	}
	return &FileSystem{pool: pool, params: params, log: log}
}

// WalkResult is one directory's listing, delivered by Walk.
type WalkResult struct {
	Dir     string
	Subdirs []string
	Files   []string
}

// ListDir lists the immediate directories and files under path.
func (fs *FileSystem) ListDir(ctx context.Context, dir string) (dirs, files []string, err error) {
	conn, err := fs.pool.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer fs.pool.Release(conn)
	return fs.listDirOn(conn, dir)
}

func (fs *FileSystem) listDirOn(conn *ftp.ServerConn, dir string) (dirs, files []string, err error) {
	if err := conn.ChangeDir(dir); err != nil {
		return nil, nil, &FTPError{Op: "listdir", Target: dir, Err: err}
	}
	entries, err := conn.List(".")
	if err != nil {
		return nil, nil, &FTPError{Op: "listdir", Target: dir, Err: err}
	}
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		name := e.Name
		if e.Type == ftp.EntryTypeLink {
			// Symlink entries report "name -> target"; only the link's own
			// name belongs in the listing, not what it points to.
			if idx := strings.Index(name, " -> "); idx >= 0 {
				name = name[:idx]
			}
		}
		full := joinRemote(dir, name)
		if e.Type == ftp.EntryTypeFolder {
			dirs = append(dirs, full)
		} else {
			files = append(files, full)
		}
	}
	return dirs, files, nil
}

func joinRemote(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// Walk yields one WalkResult per directory reached from root, discovered in
// parallel by params.MaxWorkers workers. Any single directory's listing
// failure aborts the whole walk (fail-fast) and is surfaced as a
// *WalkWorkerError on the returned error channel. Cancelling ctx stops all
// workers and releases every checked-out connection exactly once.
func (fs *FileSystem) Walk(ctx context.Context, root string) (<-chan WalkResult, <-chan error) {
	out := make(chan WalkResult)
	errc := make(chan error, 1)

	go fs.runWalk(ctx, root, out, errc)
	return out, errc
}

func (fs *FileSystem) runWalk(ctx context.Context, root string, out chan<- WalkResult, errc chan<- error) {
	defer close(out)
	defer close(errc)

	tasks := make(chan string, 4096)
	results := make(chan WalkResult, 4096)
	var stop atomic.Bool
	var pending sync.WaitGroup

	pending.Add(1)
	tasks <- root

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(fs.params.MaxWorkers)

	var firstErr atomic.Value // error

	worker := func() {
		for {
			select {
			case dir, ok := <-tasks:
				if !ok {
					return
				}
				fs.walkOne(gctx, dir, &stop, tasks, results, &pending, &firstErr)
			case <-gctx.Done():
				return
			}
		}
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(tasks)
		close(done)
	}()

	for i := 0; i < fs.params.MaxWorkers; i++ {
		grp.Go(func() error { worker(); return nil })
	}

	ticker := time.NewTicker(walkPollInterval)
	defer ticker.Stop()

drain:
	for {
		select {
		case r := <-results:
			select {
			case out <- r:
			case <-ctx.Done():
				stop.Store(true)
				break drain
			}
		case <-done:
			break drain
		case <-ctx.Done():
			stop.Store(true)
			break drain
		case <-ticker.C:
			if stop.Load() {
				break drain
			}
		}
	}

	stop.Store(true)

	// Keep draining results while waiting for the workers to exit, so a
	// worker blocked on a full results buffer can finish its send.
	waitDone := make(chan struct{})
	go func() {
		_ = grp.Wait()
		close(waitDone)
	}()
forward:
	for {
		select {
		case r := <-results:
			select {
			case out <- r:
			case <-ctx.Done():
			}
		case <-waitDone:
			break forward
		}
	}

	// Workers are gone. Cancellation may have left tasks queued with their
	// pending counts never decremented; settle them so the closer goroutine
	// above can finish instead of leaking on pending.Wait.
	for settled := false; !settled; {
		select {
		case _, ok := <-tasks:
			if !ok {
				settled = true
				break
			}
			pending.Done()
		default:
			settled = true
		}
	}

	close(results)
	for r := range results {
		select {
		case out <- r:
		case <-ctx.Done():
		}
	}

	if v := firstErr.Load(); v != nil {
		errc <- v.(error)
	} else if ctx.Err() != nil {
		errc <- ctx.Err()
	}
}

func (fs *FileSystem) walkOne(ctx context.Context, dir string, stop *atomic.Bool, tasks chan<- string, results chan<- WalkResult, pending *sync.WaitGroup, firstErr *atomic.Value) {
	defer pending.Done()

	if stop.Load() {
		return
	}

	conn, err := fs.pool.Get(ctx)
	if err != nil {
		stop.Store(true)
		firstErr.CompareAndSwap(nil, &WalkWorkerError{Path: dir, Err: err})
		return
	}
	dirs, files, err := fs.listDirOn(conn, dir)
	fs.pool.Release(conn)
	if err != nil {
		stop.Store(true)
		firstErr.CompareAndSwap(nil, &WalkWorkerError{Path: dir, Err: err})
		return
	}

	select {
	case results <- WalkResult{Dir: dir, Subdirs: dirs, Files: files}:
	case <-ctx.Done():
		return
	}

	for _, d := range dirs {
		pending.Add(1)
		select {
		case tasks <- d:
		case <-ctx.Done():
			pending.Done()
			return
		}
	}
}

// MakeDirs creates every directory implied by paths, deduplicated and
// ordered parent-before-child via a pathtrie.Trie. Relative paths are
// rejected with a *ConfigError: a relative remote path has no defined
// meaning without a known current working directory on the server.
func (fs *FileSystem) MakeDirs(ctx context.Context, paths ...string) error {
	var trie pathtrie.Trie
	for _, p := range paths {
		if p == "" {
			continue
		}
		if p[0] != '/' {
			return &ConfigError{Field: "path", Err: errRelativeRemotePath(p)}
		}
		trie.Insert(p)
	}

	conn, err := fs.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer fs.pool.Release(conn)

	for _, p := range trie.AllUniquePaths() {
		if p == "/" {
			continue
		}
		if err := conn.ChangeDir(p); err == nil {
			continue
		}
		if err := conn.MakeDir(p); err != nil {
			return &FTPError{Op: "makedirs", Target: p, Err: err}
		}
	}
	return nil
}

// Remove deletes a single remote file.
func (fs *FileSystem) Remove(ctx context.Context, file string) error {
	conn, err := fs.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer fs.pool.Release(conn)

	if err := conn.Delete(file); err != nil {
		return &FTPError{Op: "remove", Target: file, Err: err}
	}
	return nil
}

// RemoveTree deletes root and every file and directory under it, files
// first (in parallel, bounded by MaxWorkers) then directories serially in
// children-before-parents order. The server root "/" itself is never
// removed.
func (fs *FileSystem) RemoveTree(ctx context.Context, root string) error {
	out, errc := fs.Walk(ctx, root)

	var dirsLIFO []string
	var files []string
	dirsLIFO = append(dirsLIFO, root)

	for r := range out {
		dirsLIFO = append(dirsLIFO, r.Subdirs...)
		files = append(files, r.Files...)
	}
	if err := <-errc; err != nil {
		return err
	}

	fs.log.WithField("component", "ftpfs").Debugf("Deleting %d files", len(files))
	fs.log.WithField("component", "ftpfs").Debugf("Deleting %d directories", len(dirsLIFO)-1)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(fs.params.MaxWorkers)
	for _, f := range files {
		f := f
		grp.Go(func() error { return fs.Remove(gctx, f) })
	}
	if err := grp.Wait(); err != nil {
		return &WalkWorkerError{Err: err}
	}

	conn, err := fs.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer fs.pool.Release(conn)

	for i := len(dirsLIFO) - 1; i >= 0; i-- {
		d := dirsLIFO[i]
		if d == "/" {
			continue
		}
		if err := conn.RemoveDir(d); err != nil {
			return &FTPError{Op: "removetree", Target: d, Err: err}
		}
	}
	return nil
}

// IsDir reports whether path exists on the server and is a directory,
// checked by attempting a CWD round trip on a scratch connection.
func (fs *FileSystem) IsDir(ctx context.Context, p string) (bool, error) {
	conn, err := fs.pool.Get(ctx)
	if err != nil {
		return false, err
	}
	defer fs.pool.Release(conn)

	cur, err := conn.CurrentDir()
	if err != nil {
		return false, &FTPError{Op: "isdir", Target: p, Err: err}
	}
	if err := conn.ChangeDir(p); err != nil {
		return false, nil
	}
	_ = conn.ChangeDir(cur)
	return true, nil
}

// IsFile reports whether path exists on the server and is not a directory,
// checked via SIZE (directories typically refuse SIZE with a 550 error).
func (fs *FileSystem) IsFile(ctx context.Context, p string) (bool, error) {
	conn, err := fs.pool.Get(ctx)
	if err != nil {
		return false, err
	}
	defer fs.pool.Release(conn)

	if _, err := conn.FileSize(p); err != nil {
		return false, nil
	}
	return true, nil
}

func errRelativeRemotePath(p string) error {
	return &relativePathError{path: p}
}

type relativePathError struct{ path string }

func (e *relativePathError) Error() string {
	return "relative remote paths are not supported: " + e.path
}

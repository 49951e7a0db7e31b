package ftpkit

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/attenberger/ftpkit/transfer"
)

// DefaultLogInterval is how many completed transfers elapse between
// progress log lines in a batch upload/download.
const DefaultLogInterval = 10

// Orchestrator dispatches upload/download requests by the shape of their
// source and destination, fanning batch transfers out over the pool's
// connections bounded by params.MaxWorkers. The shape classifier
// (Download/Upload) is a thin wrapper around *One/*ManyTo/*Tree.
type Orchestrator struct {
	fs     *FileSystem
	engine *Engine
	params *ConnectionParameters
	log    *logrus.Logger

	logInterval atomic.Int64
}

// NewOrchestrator builds an Orchestrator over fs and engine. fs and engine
// must share the same underlying Pool.
func NewOrchestrator(fs *FileSystem, engine *Engine, params *ConnectionParameters, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	o := &Orchestrator{fs: fs, engine: engine, params: params, log: log}
	o.logInterval.Store(DefaultLogInterval)
	return o
}

// SetLogInterval changes how many completions elapse between progress log
// lines. n must be positive.
func (o *Orchestrator) SetLogInterval(n int) error {
	if n <= 0 {
		return &ConfigError{Field: "log_interval", Err: fmt.Errorf("must be positive, got %d", n)}
	}
	o.logInterval.Store(int64(n))
	return nil
}

// ---- download ----

// DownloadOne fetches a single remote file to a single local path.
func (o *Orchestrator) DownloadOne(ctx context.Context, src, dst string) error {
	return o.runBatch(ctx, "Downloaded", "downloads", []string{src}, []string{dst}, func(ctx context.Context, src, dst string) error {
		_, err := o.engine.Download(ctx, src, dst)
		return err
	})
}

// DownloadManyTo downloads each srcs[i] to dsts[i]; lengths must match.
func (o *Orchestrator) DownloadManyTo(ctx context.Context, srcs, dsts []string) error {
	if len(srcs) != len(dsts) {
		return &ConfigError{Field: "dst", Err: fmt.Errorf("%d sources but %d destinations", len(srcs), len(dsts))}
	}
	return o.runBatch(ctx, "Downloaded", "downloads", srcs, dsts, func(ctx context.Context, src, dst string) error {
		_, err := o.engine.Download(ctx, src, dst)
		return err
	})
}

// DownloadMany downloads every src into the directory dst, naming each
// local file after the remote basename.
func (o *Orchestrator) DownloadMany(ctx context.Context, srcs []string, dstDir string) error {
	dsts := make([]string, len(srcs))
	for i, s := range srcs {
		dsts[i] = path.Join(dstDir, path.Base(s))
	}
	return o.DownloadManyTo(ctx, srcs, dsts)
}

// DownloadTree walks src recursively and downloads every file found under
// it into the matching relative location under dst.
func (o *Orchestrator) DownloadTree(ctx context.Context, src, dst string) error {
	out, errc := o.fs.Walk(ctx, src)

	var srcs, dsts []string
	for r := range out {
		for _, f := range r.Files {
			rel, err := relPosix(src, f)
			if err != nil {
				return err
			}
			srcs = append(srcs, f)
			dsts = append(dsts, filepath.Join(dst, filepath.FromSlash(rel)))
		}
	}
	if err := <-errc; err != nil {
		return err
	}

	if len(srcs) == 0 {
		o.log.WithField("component", "orchestrator").Warnf("nothing to download under %q: source tree is empty", src)
		return nil
	}
	return o.DownloadManyTo(ctx, srcs, dsts)
}

// Download classifies src and dst by shape (transfer.IsDirPath) and
// dispatches to DownloadOne/DownloadTree. It rejects the "directory ->
// file" shape.
func (o *Orchestrator) Download(ctx context.Context, src, dst string) error {
	src = transfer.StripGlobSuffix(src)
	srcIsDir := transfer.IsDirPath(src)
	dstIsDir := transfer.IsDirPath(dst)

	switch {
	case !srcIsDir && !dstIsDir:
		return o.DownloadOne(ctx, src, dst)
	case !srcIsDir && dstIsDir:
		return o.DownloadOne(ctx, src, path.Join(dst, path.Base(src)))
	case srcIsDir && !dstIsDir:
		return fmt.Errorf("ftpkit: cannot download directory %q into file path %q", src, dst)
	default:
		return o.DownloadTree(ctx, src, dst)
	}
}

// ---- upload ----

// UploadOne pushes a single local file to a single remote path, creating
// its parent directory on the server first.
func (o *Orchestrator) UploadOne(ctx context.Context, src, dst string) error {
	if err := o.fs.MakeDirs(ctx, path.Dir(dst)); err != nil {
		return err
	}
	return o.runBatch(ctx, "Uploaded", "uploads", []string{src}, []string{dst}, func(ctx context.Context, src, dst string) error {
		_, err := o.engine.Upload(ctx, src, dst)
		return err
	})
}

// UploadManyTo uploads each srcs[i] to dsts[i]; lengths must match. The
// distinct parent directories of every dst are created once, up front, via
// FileSystem.MakeDirs before any transfer is scheduled.
func (o *Orchestrator) UploadManyTo(ctx context.Context, srcs, dsts []string) error {
	if len(srcs) != len(dsts) {
		return &ConfigError{Field: "dst", Err: fmt.Errorf("%d sources but %d destinations", len(srcs), len(dsts))}
	}

	seen := make(map[string]struct{}, len(dsts))
	var parents []string
	for _, d := range dsts {
		p := path.Dir(d)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		parents = append(parents, p)
	}
	if len(parents) > 0 {
		if err := o.fs.MakeDirs(ctx, parents...); err != nil {
			return err
		}
	}

	return o.runBatch(ctx, "Uploaded", "uploads", srcs, dsts, func(ctx context.Context, src, dst string) error {
		_, err := o.engine.Upload(ctx, src, dst)
		return err
	})
}

// UploadMany uploads every local src into the remote directory dst,
// keeping each file's basename.
func (o *Orchestrator) UploadMany(ctx context.Context, srcs []string, dstDir string) error {
	dsts := make([]string, len(srcs))
	for i, s := range srcs {
		dsts[i] = path.Join(dstDir, filepath.Base(s))
	}
	return o.UploadManyTo(ctx, srcs, dsts)
}

// UploadTree walks the local directory src recursively and uploads every
// file under it to the matching relative location under the remote
// directory dst.
func (o *Orchestrator) UploadTree(ctx context.Context, src, dst string) error {
	base := src
	var srcs, dsts []string
	err := filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(base, p)
		if relErr != nil {
			return relErr
		}
		srcs = append(srcs, p)
		dsts = append(dsts, path.Join(dst, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return &LocalIOError{Path: src, Err: err}
	}

	if len(srcs) == 0 {
		o.log.WithField("component", "orchestrator").Warnf("nothing to upload from %q: local tree is empty", src)
		return nil
	}
	return o.UploadManyTo(ctx, srcs, dsts)
}

// Upload classifies src via os.Stat (a local path is always directly
// inspectable, unlike a remote one) and dst via transfer.IsDirPath, then
// dispatches to UploadOne/UploadTree.
func (o *Orchestrator) Upload(ctx context.Context, src, dst string) error {
	src = transfer.StripGlobSuffix(src)
	info, err := os.Stat(src)
	if err != nil {
		return &LocalIOError{Path: src, Err: err}
	}
	dstIsDir := transfer.IsDirPath(dst)

	switch {
	case !info.IsDir() && !dstIsDir:
		return o.UploadOne(ctx, src, dst)
	case !info.IsDir() && dstIsDir:
		return o.UploadOne(ctx, src, path.Join(dst, filepath.Base(src)))
	case info.IsDir() && !dstIsDir:
		return fmt.Errorf("ftpkit: cannot upload directory %q into file path %q", src, dst)
	default:
		return o.UploadTree(ctx, src, dst)
	}
}

// ---- batch execution ----

// runBatch schedules one goroutine per (srcs[i], dsts[i]) pair bounded by
// params.MaxWorkers, logging progress every logInterval completions. The
// first error cancels the rest of the batch via the errgroup's derived
// context; pastTense ("Downloaded"/"Uploaded") and pluralNoun
// ("downloads"/"uploads") drive the two log message shapes only.
func (o *Orchestrator) runBatch(ctx context.Context, pastTense, pluralNoun string, srcs, dsts []string, do func(ctx context.Context, src, dst string) error) error {
	n := len(srcs)
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(o.params.MaxWorkers)

	var completed atomic.Int64
	interval := o.logInterval.Load()

	for i := 0; i < n; i++ {
		src, dst := srcs[i], dsts[i]
		grp.Go(func() error {
			if err := do(gctx, src, dst); err != nil {
				return err
			}
			c := completed.Add(1)
			if interval > 0 && c%interval == 0 {
				o.log.WithField("component", "orchestrator").Infof("%s: %d / %d", pastTense, c, n)
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return err
	}
	o.log.WithField("component", "orchestrator").Infof("All %s finished: %d / %d", pluralNoun, n, n)
	return nil
}

// relPosix computes the slash-separated path of target relative to base,
// both POSIX remote paths.
func relPosix(base, target string) (string, error) {
	b := path.Clean(base)
	t := path.Clean(target)
	if b == "/" {
		return t[1:], nil
	}
	if t == b {
		return ".", nil
	}
	prefix := b + "/"
	if len(t) <= len(prefix) || t[:len(prefix)] != prefix {
		return "", fmt.Errorf("ftpkit: %q is not under %q", target, base)
	}
	return t[len(prefix):], nil
}

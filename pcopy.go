// pcopy.go - parallel recursive copy of files and directories
//
// (c) 2024 Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// Package pcopy copies files and directory trees like "cp -r" - except
// that the individual files are copied concurrently by a bounded pool
// of workers. The tree traversal and directory creation happen on the
// caller's goroutine; every regular file found is queued for a worker.
// Every failure is collected and returned at the end: a failing file
// doesn't stop the copy of the others.
package pcopy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Stats describes the work done by Copy
type Stats struct {
	Files int64 // regular files copied
	Links int64 // symlinks recreated
	Dirs  int64 // directories created
	Bytes int64 // bytes copied
}

func (s *Stats) String() string {
	return fmt.Sprintf("%d files, %d symlinks, %d dirs, %d bytes",
		s.Files, s.Links, s.Dirs, s.Bytes)
}

// the workers update these concurrently
type counters struct {
	files *xsync.Counter
	links *xsync.Counter
	dirs  *xsync.Counter
	bytes *xsync.Counter
}

func newCounters() counters {
	return counters{
		files: xsync.NewCounter(),
		links: xsync.NewCounter(),
		dirs:  xsync.NewCounter(),
		bytes: xsync.NewCounter(),
	}
}

func (c *counters) stats() *Stats {
	return &Stats{
		Files: c.files.Value(),
		Links: c.links.Value(),
		Dirs:  c.dirs.Value(),
		Bytes: c.bytes.Value(),
	}
}

// copier is the state of one invocation of Copy
type copier struct {
	copyopt

	pool *WorkPool[task]
	ctr  counters

	// these are only touched by the walking goroutine
	fails   FailureSet
	dirs    []dirMeta
	claimed map[string]string
}

// Copy copies each of 'srcs' to 'dst' - like "cp -r". If 'dst' is an
// existing directory, each source is copied into it under its own
// basename; otherwise the single source is copied to 'dst' itself.
// Directories are copied recursively.
//
// Copy returns an *Error for configuration problems (eg. multiple
// sources and 'dst' is not a directory) before touching the file
// system. Otherwise it attempts every source and returns a FailureSet
// with every failure, or nil when everything was copied. The Stats are
// valid in either case.
func Copy(dst string, srcs []string, opts ...Option) (*Stats, error) {
	opt := defaultOpts()
	for _, fp := range opts {
		fp(&opt)
	}

	if err := opt.validate(len(srcs)); err != nil {
		return &Stats{}, err
	}

	dstIsDir := false
	if di, err := Stat(dst); err == nil && di.IsDir() {
		dstIsDir = true
	}

	if len(srcs) > 1 && !dstIsDir {
		return &Stats{}, &Error{"config", "", dst, ErrAmbiguousDestination}
	}

	c := &copier{
		copyopt: opt,
		ctr:     newCounters(),
		claimed: make(map[string]string),
	}

	c.pool = NewWorkPool[task](opt.workers, c.apply)

	// the workers are always drained and released - even if we panic
	// mid-walk. Wait() is idempotent.
	defer c.pool.Wait()

	for _, src := range srcs {
		c.source(src, dst, dstIsDir)
	}

	c.debug("waiting for %d workers ..", opt.workers)
	c.fails = append(c.fails, c.pool.Wait()...)
	c.finishDirs()

	st := c.ctr.stats()
	c.info("copied %s; %d errors", st, len(c.fails))

	if len(c.fails) > 0 {
		return st, c.fails
	}
	return st, nil
}

// validate one top level source and walk it
func (c *copier) source(src, dst string, dstIsDir bool) {
	src = filepath.Clean(src)
	if dstIsDir {
		switch nm := filepath.Base(src); nm {
		case ".", string(filepath.Separator):
		case "..":
			if abs, err := filepath.Abs(src); err == nil {
				dst = filepath.Join(dst, filepath.Base(abs))
			}
		default:
			dst = filepath.Join(dst, nm)
		}
	}

	fi, err := Lstat(src)
	if err != nil {
		c.fail(&Error{"stat-src", src, dst, err})
		return
	}

	stat := Lstat
	if c.symlinks == FollowSymlinks {
		stat = Stat
		if fi, err = Stat(src); err != nil {
			c.fail(&Error{"stat-src", src, dst, err})
			return
		}
	}

	if di, err := stat(dst); err == nil && di.IsSameFile(fi) {
		c.fail(&Error{"validate", src, dst, ErrSelfCopy})
		return
	}

	if fi.IsDir() && isNested(src, dst) {
		c.fail(&Error{"validate", src, dst, ErrRecursiveCopy})
		return
	}

	c.debug("copy %s -> %s", src, dst)
	c.walk(src, dst, fi)
}

// queue a task for the workers; each destination is written at most
// once per invocation. A repeat of the same source is skipped; a
// different source for the same destination is a failure.
func (c *copier) submit(t task) {
	src := t.src
	if abs, err := filepath.Abs(src); err == nil {
		src = abs
	}

	if prev, ok := c.claimed[t.dst]; ok {
		if prev != src {
			c.fail(&Error{"submit", t.src, t.dst,
				fmt.Errorf("%w (from %s)", ErrDupDestination, prev)})
			return
		}
		c.info("skip %s: %s already copied", t.src, t.dst)
		return
	}

	c.claimed[t.dst] = src
	if err := c.pool.Submit(t); err != nil {
		c.fail(&Error{"submit", t.src, t.dst, err})
	}
}

// apply is the workpool's worker function
func (c *copier) apply(_ int, t task) error {
	switch t.typ {
	case taskFile:
		n, err := CopyFile(t.dst, t.src, &c.CopyOpt)
		if err != nil {
			return err
		}
		c.ctr.files.Inc()
		c.ctr.bytes.Add(n)

	case taskLink:
		if err := CopyLink(t.dst, t.src); err != nil {
			return err
		}
		c.ctr.links.Inc()

	default:
		return &Error{"unknown-op", t.src, t.dst, fmt.Errorf("unknown op %d", t.typ)}
	}
	return nil
}

// apply the source dir metadata to the copies; children before
// parents so that updating a child doesn't disturb the parent's mtime.
func (c *copier) finishDirs() {
	for i := len(c.dirs) - 1; i >= 0; i-- {
		d := &c.dirs[i]
		if err := updateDirMeta(d); err != nil {
			c.fail(err)
		}
	}
}

func updateDirMeta(d *dirMeta) error {
	if err := os.Chmod(d.dst, d.fi.Mode()&_modeMask); err != nil {
		return &Error{"chmod", d.src, d.dst, err}
	}

	if err := copyXattr(d.dst, d.src, true); err != nil {
		return &Error{"xattr", d.src, d.dst, err}
	}

	if err := utimes(d.dst, d.fi, true); err != nil {
		return &Error{"utimes", d.src, d.dst, err}
	}
	return nil
}

func (c *copier) fail(err error) {
	c.debug("%s", err)
	c.fails = append(c.fails, err)
}

func (c *copier) debug(s string, v ...any) {
	if c.log != nil {
		c.log.Debug(s, v...)
	}
}

func (c *copier) info(s string, v ...any) {
	if c.log != nil {
		c.log.Info(s, v...)
	}
}

// isNested returns true if 'dst' is 'src' or lies beneath it. Both
// are compared as absolute paths with symlinks resolved.
func isNested(src, dst string) bool {
	s, err := realPath(src)
	if err != nil {
		return false
	}

	d, err := realPath(dst)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(s, d)
	if err != nil {
		return false
	}

	return rel == "." ||
		(rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// realPath resolves the symlinks in the longest existing prefix of 'nm'
// and appends the rest.
func realPath(nm string) (string, error) {
	abs, err := filepath.Abs(nm)
	if err != nil {
		return "", err
	}

	var rest []string
	for dir := abs; ; {
		r, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{r}, rest...)...), nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}

		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
	}
}

// walk.go - mirror a source tree and queue its files for copying
//
// (c) 2022- Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package pcopy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// High level design:
//
// * the walk runs on the caller's goroutine; only the file copies are
//   handed to the workpool.
// * a directory is created at the destination *before* any of its
//   entries are submitted. So a worker never writes into a directory
//   that doesn't exist yet.
// * directories are made owner writable; their real mode and times are
//   applied by Copy() after the workers are done.

type taskType int

const (
	taskFile taskType = 1 + iota // copy a file
	taskLink                     // recreate a symlink
)

// task is one unit of work for the workpool
type task struct {
	typ      taskType
	src, dst string
}

// directories whose metadata is cloned after all copies complete
type dirMeta struct {
	src, dst string
	fi       *Info
}

// walk mirrors 'src' at 'dst'; 'fi' describes src.
func (c *copier) walk(src, dst string, fi *Info) {
	m := fi.Mode()
	switch {
	case m.IsRegular():
		c.submit(task{taskFile, src, dst})

	case m.IsDir():
		c.walkDir(src, dst, fi)

	case (m & fs.ModeSymlink) > 0:
		c.walkSymlink(src, dst)

	default:
		c.fail(&Error{"file-type", src, dst, ErrSpecialFile})
	}
}

func (c *copier) walkDir(src, dst string, fi *Info) {
	if err := c.mkdir(src, dst); err != nil {
		c.fail(err)
		return
	}

	c.dirs = append(c.dirs, dirMeta{src, dst, fi})

	names, err := readDir(src)
	if err != nil {
		c.fail(&Error{"readdir", src, dst, err})
		return
	}

	for _, nm := range names {
		if c.exclude(nm) {
			c.debug("exclude %s", filepath.Join(src, nm))
			continue
		}

		s := filepath.Join(src, nm)
		d := filepath.Join(dst, nm)

		ei, err := Lstat(s)
		if err != nil {
			c.fail(&Error{"lstat", s, d, err})
			continue
		}
		c.walk(s, d, ei)
	}
}

func (c *copier) walkSymlink(src, dst string) {
	if c.symlinks == CopySymlinks {
		c.submit(task{taskLink, src, dst})
		return
	}

	// we know this is no longer a symlink
	fi, err := Stat(src)
	if err != nil {
		c.fail(&Error{"symlink", src, dst, err})
		return
	}
	c.walk(src, dst, fi)
}

// make the destination dir if needed; an existing dir is fine.
func (c *copier) mkdir(src, dst string) error {
	di, err := Stat(dst)
	if err == nil {
		if !di.IsDir() {
			return &Error{"mkdir", src, dst, ErrNotDir}
		}
		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return &Error{"stat-dst", src, dst, err}
	}

	if err = os.MkdirAll(dst, 0700); err != nil {
		return &Error{"mkdir", src, dst, err}
	}

	c.ctr.dirs.Inc()
	c.debug("mkdir %s", dst)
	return nil
}

// read a dir and return the names in lexical order
func readDir(nm string) ([]string, error) {
	fd, err := os.Open(nm)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	names, err := fd.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// copyfile.go - copy a file and its metadata using the sendfile(2) fast
// path when asked, and fallback to a mmap'd copy.
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

package pcopy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Do fast path copies in chunks of 1GB
const _ioChunkSize int64 = 1024 * 1048576

// CopyOpt controls how CopyFile moves the bytes
type CopyOpt struct {
	// FastCopy enables the kernel zero-copy path (sendfile(2));
	// platforms and file systems that can't do it fall back to
	// the buffered copy.
	FastCopy bool

	// ChunkSize is the max bytes per fast path syscall
	ChunkSize int64
}

// sendfile(2) moves at most this many bytes per call
const _maxSendfile int64 = 0x7ffff000

func (o *CopyOpt) chunk() int64 {
	if o.ChunkSize <= 0 {
		return _ioChunkSize
	}
	return min(o.ChunkSize, _maxSendfile)
}

// returned by sysCopyFile when the fast path can't be used
var errNoFastPath = errors.New("copyfile: fast path not supported")

// mode bits we carry over to the destination
const _modeMask = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// CopyFile copies the contents of 'src' to 'dst' along with the
// permission bits, extended attributes and access/modification times.
// Symlinks in 'src' are followed. An existing regular file at 'dst' is
// replaced atomically; a failed copy leaves 'dst' untouched. If 'dst' is
// a symlink to a regular file, the copy is written through to its target
// like cp(1). CopyFile returns the number of bytes copied.
func CopyFile(dst, src string, o *CopyOpt) (int64, error) {
	if o == nil {
		o = &CopyOpt{}
	}

	s, err := os.Open(src)
	if err != nil {
		return 0, &Error{"open-src", src, dst, err}
	}

	defer s.Close()

	fi, err := Stat(src)
	if err != nil {
		return 0, &Error{"stat-src", src, dst, err}
	}

	if !fi.IsRegular() {
		return 0, &Error{"file-type", src, dst, ErrSpecialFile}
	}

	wr := writeTarget(dst)
	if di, err := Stat(wr); err == nil && di.IsSameFile(fi) {
		return 0, &Error{"validate", src, dst, ErrSelfCopy}
	}

	// We create the file so that we can write to it; we'll update the perm bits
	// later on
	d, err := NewSafeFile(wr, OPT_OVERWRITE, os.O_WRONLY, 0600)
	if err != nil {
		return 0, &Error{"safefile", src, dst, err}
	}

	defer d.Abort()

	n, err := copyData(d, s, fi.Size(), o)
	if err != nil {
		return n, err
	}

	if n != fi.Size() {
		err = fmt.Errorf("size changed during copy: exp %d, saw %d", fi.Size(), n)
		return n, &Error{"copy", src, dst, err}
	}

	if err = d.Chmod(fi.Mode() & _modeMask); err != nil {
		return n, &Error{"chmod", src, dst, err}
	}

	if err = copyXattr(d.Name(), src, true); err != nil {
		return n, &Error{"xattr", src, dst, err}
	}

	if err = d.Close(); err != nil {
		return n, &Error{"close", src, dst, err}
	}

	// mtime must be the last thing we touch
	if err = utimes(wr, fi, true); err != nil {
		return n, &Error{"utimes", src, dst, err}
	}
	return n, nil
}

// return the file that a copy to 'dst' must replace: the target of a
// symlink to a regular file, else 'dst' itself.
func writeTarget(dst string) string {
	li, err := Lstat(dst)
	if err != nil || (li.Mode()&fs.ModeSymlink) == 0 {
		return dst
	}

	if fi, err := Stat(dst); err != nil || !fi.IsRegular() {
		return dst
	}

	if r, err := filepath.EvalSymlinks(dst); err == nil {
		return r
	}
	return dst
}

// CopyLink recreates the symlink 'src' at 'dst' along with its
// extended attributes and times; an existing file or symlink at 'dst'
// is replaced atomically.
func CopyLink(dst, src string) error {
	fi, err := Lstat(src)
	if err != nil {
		return &Error{"lstat-src", src, dst, err}
	}

	targ, err := os.Readlink(src)
	if err != nil {
		return &Error{"readlink", src, dst, err}
	}

	tmp := fmt.Sprintf("%s.tmp.%d.%x", dst, os.Getpid(), randU32())
	if err = os.Symlink(targ, tmp); err != nil {
		return &Error{"symlink", src, dst, err}
	}

	if err = copyXattr(tmp, src, false); err != nil {
		os.Remove(tmp)
		return &Error{"xattr", src, dst, err}
	}

	if err = utimes(tmp, fi, false); err != nil {
		os.Remove(tmp)
		return &Error{"utimes", src, dst, err}
	}

	if err = os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return &Error{"rename", src, dst, err}
	}
	return nil
}

// copy 'sz' bytes from s to d
func copyData(d *SafeFile, s *os.File, sz int64, o *CopyOpt) (int64, error) {
	if sz == 0 {
		return 0, nil
	}

	if o.FastCopy {
		n, err := sysCopyFile(d.File, s, sz, o.chunk())
		if !errors.Is(err, errNoFastPath) {
			return n, err
		}
	}
	return copyViaMmap(d, s)
}

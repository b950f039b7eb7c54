// safefile_test.go -- tests for safefile impl

package pcopy

import (
	"errors"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func TestSafeFileSimple(t *testing.T) {
	assert := newAsserter(t)
	tmpdir := getTmpdir(t)

	fn := filepath.Join(tmpdir, "file-1")

	_, err := createFile(fn, 1024+mrand.IntN(65536))
	assert(err == nil, "can't create tmpfile: %s", err)

	_, err = NewSafeFile(fn, 0, 0, 0600)
	assert(err != nil, "%s: bypassed overwrite protection", fn)

	buf := make([]byte, 128+mrand.IntN(65536))
	randbuf(buf)

	sf, err := NewSafeFile(fn, OPT_OVERWRITE, 0, 0600)
	assert(err == nil, "%s: can't create safefile: %s", fn, err)
	assert(sf != nil, "%s: nil ptr", fn)

	n, err := sf.Write(buf)
	assert(err == nil, "%s: write error: %s", sf.Name(), err)
	assert(n == len(buf), "%s: partial write: exp %d, saw %d", sf.Name(), len(buf), n)

	err = sf.Close()
	assert(err == nil, "%s: close: %s", sf.Name(), err)

	ck2 := cksum(buf)
	ck3, err := fileCksum(fn)
	assert(err == nil, "%s: cksum error: %s", fn, err)
	assert(byteEq(ck2, ck3), "cksum mismatch: %s\nexp %x\nsaw %x", fn, ck2, ck3)

	// the temp file must be gone
	names, err := readDir(tmpdir)
	assert(err == nil, "readdir: %s", err)
	assert(len(names) == 1, "stray files: %v", names)
}

func TestSafeFileAbort(t *testing.T) {
	assert := newAsserter(t)
	tmpdir := getTmpdir(t)

	fn := filepath.Join(tmpdir, "file-1")

	ck1, err := createFile(fn, 1024+mrand.IntN(65536))
	assert(err == nil, "can't create tmpfile: %s", err)

	buf := make([]byte, 128+mrand.IntN(65536))
	randbuf(buf)

	sf, err := NewSafeFile(fn, OPT_OVERWRITE, 0, 0600)
	assert(err == nil, "%s: can't create safefile: %s", fn, err)
	assert(sf != nil, "%s: nil ptr", fn)

	n, err := sf.Write(buf)
	assert(err == nil, "%s: write error: %s", sf.Name(), err)
	assert(n == len(buf), "%s: partial write: exp %d, saw %d", sf.Name(), len(buf), n)

	sf.Abort()
	err = sf.Close()
	assert(errors.Is(err, ErrAborted), "%s: abort+close: exp ErrAborted, saw %v", fn, err)

	// File original contents shouldn't change
	ck3, err := fileCksum(fn)
	assert(err == nil, "%s: cksum error: %s", fn, err)
	assert(byteEq(ck1, ck3), "cksum mismatch: %s", fn)

	_, err = os.Stat(sf.Name())
	assert(os.IsNotExist(err), "%s: temp file not removed", sf.Name())
}

func TestSafeFileNotRegular(t *testing.T) {
	assert := newAsserter(t)
	tmpdir := getTmpdir(t)

	dn := filepath.Join(tmpdir, "dir")
	err := os.Mkdir(dn, 0700)
	assert(err == nil, "mkdir: %s", err)

	_, err = NewSafeFile(dn, OPT_OVERWRITE, 0, 0600)
	assert(err != nil, "%s: overwrote a directory", dn)
}

func TestSafeFileWriteError(t *testing.T) {
	assert := newAsserter(t)
	tmpdir := getTmpdir(t)

	fn := filepath.Join(tmpdir, "file-1")
	ck1, err := createFile(fn, 0)
	assert(err == nil, "can't create tmpfile: %s", err)

	src := filepath.Join(tmpdir, "src")
	_, err = createFile(src, 0)
	assert(err == nil, "can't create src: %s", err)

	s, err := os.Open(src)
	assert(err == nil, "open: %s", err)
	defer s.Close()

	sf, err := NewSafeFile(fn, OPT_OVERWRITE, 0, 0600)
	assert(err == nil, "%s: can't create safefile: %s", fn, err)

	// break the underlying fd; every write after the first failure
	// must see the same error
	sf.File.Close()

	_, err = copyViaMmap(sf, s)
	var ce *Error
	assert(errors.As(err, &ce) && ce.Op == "mmap-copy", "exp mmap-copy error, saw %v", err)
	assert(errors.Is(err, os.ErrClosed), "exp ErrClosed, saw %v", err)

	_, err = sf.Write([]byte("hello"))
	assert(errors.Is(err, os.ErrClosed), "sticky: exp ErrClosed, saw %v", err)

	err = sf.Close()
	assert(errors.Is(err, os.ErrClosed), "close: exp ErrClosed, saw %v", err)

	ck3, err := fileCksum(fn)
	assert(err == nil, "%s: cksum error: %s", fn, err)
	assert(byteEq(ck1, ck3), "cksum mismatch: %s", fn)

	_, err = os.Stat(sf.Name())
	assert(os.IsNotExist(err), "%s: temp file not removed", sf.Name())
}

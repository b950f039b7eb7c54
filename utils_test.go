// utils_test.go -- test harness utilities
//
// (c) 2024- Sudhi Herle <sudhi@herle.net>
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
	"bytes"
	crand "crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"flag"
	"fmt"
	"io/fs"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/opencoff/go-mmap"
)

var testDir = flag.String("testdir", "", "Use 'T' as the testdir for file I/O tests")

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("\n%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

func getTmpdir(t *testing.T) string {
	assert := newAsserter(t)
	tmpdir := t.TempDir()

	if len(*testDir) > 0 {
		tmpdir = filepath.Join(*testDir, t.Name())
		err := os.MkdirAll(tmpdir, 0700)
		assert(err == nil, "mkdir %s: %s", tmpdir, err)
		t.Logf("Using %s as test dir .. \n", tmpdir)
		t.Cleanup(func() {
			t.Logf("cleaning up %s ..\n", tmpdir)
			os.RemoveAll(tmpdir)
		})
	}
	return tmpdir
}

func mkfilex(fn string) error {
	bn := filepath.Dir(fn)
	if err := os.MkdirAll(bn, 0700); err != nil {
		return fmt.Errorf("mkdir: %s: %w", bn, err)
	}

	fd, err := os.OpenFile(fn, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creat: %s: %w", fn, err)
	}

	fd.Write([]byte("hello"))
	fd.Sync()
	return fd.Close()
}

// create a file and return cryptographic checksum
func createFile(nm string, sz int) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(nm), 0700); err != nil {
		return nil, err
	}

	fd, err := os.OpenFile(nm, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	if sz <= 0 {
		sz = 1024 + mrand.IntN(65536)
	}

	buf := make([]byte, 4096)
	h := sha256.New()

	// fill it with random data
	for sz > 0 {
		n := min(len(buf), sz)
		b := buf[:n]
		randbuf(b)
		h.Write(b)
		n, err := fd.Write(b)
		if err != nil {
			return nil, err
		}
		if n != len(b) {
			return nil, fmt.Errorf("%s: partial write (exp %d, saw %d)", nm, len(b), n)
		}
		sz -= n
	}

	if err = fd.Sync(); err != nil {
		return nil, err
	}

	if err = fd.Close(); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

func randbuf(b []byte) []byte {
	n, err := crand.Read(b)
	if err != nil || n != len(b) {
		panic(fmt.Sprintf("can't read %d bytes of crypto/rand: %s", len(b), err))
	}
	return b
}

func byteEq(a, b []byte) bool {
	return 1 == subtle.ConstantTimeCompare(a, b)
}

func cksum(b []byte) []byte {
	h := sha256.New()
	h.Write(b)
	return h.Sum(nil)[:]
}

func fileCksum(nm string) ([]byte, error) {
	fd, err := os.Open(nm)
	if err != nil {
		return nil, err
	}

	defer fd.Close()

	st, err := fd.Stat()
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	if st.Size() == 0 {
		return h.Sum(nil)[:], nil
	}

	_, err = mmap.Reader(fd, func(b []byte) error {
		h.Write(b)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return h.Sum(nil)[:], nil
}

// a tree of test files rooted at a dir
type rootdir string

func (d rootdir) path(nm string) string {
	return filepath.Join(string(d), nm)
}

// make files with random content; returns their checksums keyed
// by relative name
func (d rootdir) mkfiles(names ...string) (map[string][]byte, error) {
	sums := make(map[string][]byte)
	for _, nm := range names {
		sum, err := createFile(d.path(nm), 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", nm, err)
		}
		sums[nm] = sum
	}
	return sums, nil
}

func (d rootdir) mkdir(nm string) error {
	fn := d.path(nm)
	if err := os.MkdirAll(fn, 0700); err != nil {
		return fmt.Errorf("mkdir: %s: %w", fn, err)
	}
	return nil
}

// make a symlink 'linkname' pointing to 'target'
func (d rootdir) symlink(target, linkname string) error {
	dst := d.path(linkname)
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return fmt.Errorf("symlink: mkdir %s: %w", filepath.Dir(dst), err)
	}

	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("symlink: %s %s: %w", target, dst, err)
	}
	return nil
}

// return the relative names of all regular files under d
func (d rootdir) files() ([]string, error) {
	var names []string
	root := string(d)
	err := filepath.WalkDir(root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.Type().IsRegular() {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			names = append(names, rel)
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

// verify that the regular files under 'dst' are exactly those of
// 'sums' with matching content
func treeEq(dst string, sums map[string][]byte) error {
	names, err := rootdir(dst).files()
	if err != nil {
		return err
	}

	if len(names) != len(sums) {
		return fmt.Errorf("%s: exp %d files, saw %d: %v", dst, len(sums), len(names), names)
	}

	for _, nm := range names {
		want, ok := sums[nm]
		if !ok {
			return fmt.Errorf("%s: unexpected file %s", dst, nm)
		}

		have, err := fileCksum(filepath.Join(dst, nm))
		if err != nil {
			return err
		}
		if !bytes.Equal(want, have) {
			return fmt.Errorf("%s: content mismatch", nm)
		}
	}
	return nil
}

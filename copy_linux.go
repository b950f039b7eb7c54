// copy_linux.go - Linux specific file copy
//
// (c) 2021 Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

//go:build linux

package pcopy

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// copy 'sz' bytes using sendfile(2). We only fall back to the slow path
// if the very first transfer tells us that sendfile(2) isn't usable for
// this pair of files.
func sysCopyFile(dst, src *os.File, sz int64, chunk int64) (int64, error) {
	d := int(dst.Fd())
	s := int(src.Fd())

	var off, n int64
	for n < sz {
		want := min(chunk, sz-n)
		m, err := unix.Sendfile(d, s, &off, int(want))
		switch {
		case err == nil:

		case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
			continue

		case n == 0 && noSendfile(err):
			return 0, errNoFastPath

		default:
			return n, &Error{"sendfile", src.Name(), dst.Name(), err}
		}

		if m == 0 {
			return n, &Error{"sendfile", src.Name(), dst.Name(),
				fmt.Errorf("zero sized transfer")}
		}
		n += int64(m)
	}
	return n, nil
}

func noSendfile(err error) bool {
	return errors.Is(err, unix.EINVAL) ||
		errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EOPNOTSUPP)
}

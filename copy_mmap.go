// copy_mmap.go - copy using mmap(2)
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

package pcopy

import (
	"os"

	"github.com/opencoff/go-mmap"
)

// Use mmap(2) to copy src to dst; a failed write is sticky in dst.
func copyViaMmap(dst *SafeFile, src *os.File) (int64, error) {
	var n int64
	_, err := mmap.Reader(src, func(b []byte) error {
		m, err := dst.Write(b)
		n += int64(m)
		return err
	})
	if err != nil {
		return n, &Error{"mmap-copy", src.Name(), dst.Name(), err}
	}
	return n, nil
}

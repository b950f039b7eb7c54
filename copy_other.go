// copy_other.go - non-Linux file copy
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

//go:build !linux

package pcopy

import (
	"os"
)

// sendfile(2) on the BSDs only writes to sockets; so there's no fast
// path for file to file copies.
func sysCopyFile(dst, src *os.File, sz int64, chunk int64) (int64, error) {
	return 0, errNoFastPath
}

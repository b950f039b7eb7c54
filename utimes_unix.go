// utimes_unix.go -- set file times for unixish platforms
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

//go:build unix

package pcopy

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// set the atime and mtime of 'nm' from 'fi' with nanosecond precision.
// When 'follow' is false, a symlink's own times are updated.
func utimes(nm string, fi *Info, follow bool) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(fi.Atim.UnixNano()),
		unix.NsecToTimespec(fi.Mtim.UnixNano()),
	}

	var flags int
	if !follow {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}

	if err := unix.UtimesNanoAt(unix.AT_FDCWD, nm, ts, flags); err != nil {
		return &fs.PathError{Op: "utimes", Path: nm, Err: err}
	}
	return nil
}

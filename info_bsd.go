// info_bsd.go - syscall.Stat_t to Info for darwin and freebsd
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

//go:build darwin || freebsd

package pcopy

import (
	"syscall"
)

func makeInfo(fi *Info, nm string, st *syscall.Stat_t) {
	*fi = Info{
		Ino:  uint64(st.Ino),
		Siz:  st.Size,
		Dev:  uint64(st.Dev),
		Rdev: uint64(st.Rdev),

		Mod:   fileMode(uint32(st.Mode)),
		Uid:   st.Uid,
		Gid:   st.Gid,
		Nlink: uint64(st.Nlink),

		Atim: ts2time(st.Atimespec),
		Mtim: ts2time(st.Mtimespec),
		Ctim: ts2time(st.Ctimespec),

		Nam: nm,
	}
}

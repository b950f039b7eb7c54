// info_linux.go - syscall.Stat_t to Info for linux
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

//go:build linux

package pcopy

import (
	"syscall"
)

func makeInfo(fi *Info, nm string, st *syscall.Stat_t) {
	*fi = Info{
		Nam:   nm,
		Ino:   uint64(st.Ino),
		Nlink: uint64(st.Nlink),
		Mod:   fileMode(uint32(st.Mode)),
		Uid:   st.Uid,
		Gid:   st.Gid,
		Siz:   st.Size,
		Dev:   uint64(st.Dev),
		Rdev:  uint64(st.Rdev),
		Atim:  ts2time(st.Atim),
		Mtim:  ts2time(st.Mtim),
		Ctim:  ts2time(st.Ctim),
	}
}

// info.go - a leaner fs.FileInfo that carries device and inode
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
	"fmt"
	"io/fs"
	"syscall"
	"time"
)

// Info is the stat(2) info of a file system entry
type Info struct {
	Nam   string
	Ino   uint64
	Nlink uint64

	Mod fs.FileMode
	Uid uint32
	Gid uint32

	Siz  int64
	Dev  uint64
	Rdev uint64

	Atim time.Time
	Mtim time.Time
	Ctim time.Time
}

var _ fs.FileInfo = &Info{}

// Stat is like os.Stat() but retains the device and inode
func Stat(nm string) (*Info, error) {
	var ii Info
	if err := Statm(nm, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Statm is like Stat above - except it uses caller
// supplied memory for the stat(2) info
func Statm(nm string, fi *Info) error {
	var st syscall.Stat_t

	if err := syscall.Stat(nm, &st); err != nil {
		return &fs.PathError{Op: "stat", Path: nm, Err: err}
	}

	makeInfo(fi, nm, &st)
	return nil
}

// Lstat is like os.Lstat() but retains the device and inode
func Lstat(nm string) (*Info, error) {
	var ii Info
	if err := Lstatm(nm, &ii); err != nil {
		return nil, err
	}
	return &ii, nil
}

// Lstatm is like Lstat except it uses the caller's
// supplied memory.
func Lstatm(nm string, fi *Info) error {
	var st syscall.Stat_t
	if err := syscall.Lstat(nm, &st); err != nil {
		return &fs.PathError{Op: "lstat", Path: nm, Err: err}
	}

	makeInfo(fi, nm, &st)
	return nil
}

// IsSameFile returns true if ii and b refer to the same
// underlying inode.
func (ii *Info) IsSameFile(b *Info) bool {
	return ii.Dev == b.Dev && ii.Ino == b.Ino
}

func (ii *Info) String() string {
	return fmt.Sprintf("%s: %d; %s", ii.Name(), ii.Siz, ii.Mode().String())
}

// fs.FileInfo methods of Info
func (ii *Info) Name() string {
	return ii.Nam
}

func (ii *Info) Size() int64 {
	return ii.Siz
}

func (ii *Info) Mode() fs.FileMode {
	return fs.FileMode(ii.Mod)
}

func (ii *Info) ModTime() time.Time {
	return ii.Mtim
}

func (ii *Info) IsDir() bool {
	m := ii.Mode()
	return m.IsDir()
}

func (ii *Info) IsRegular() bool {
	m := ii.Mode()
	return m.IsRegular()
}

func (ii *Info) Sys() any {
	return ii
}

// fill in the mode bits common to all platforms
func fileMode(mode uint32) fs.FileMode {
	m := fs.FileMode(mode & 0777)
	switch mode & syscall.S_IFMT {
	case syscall.S_IFBLK:
		m |= fs.ModeDevice
	case syscall.S_IFCHR:
		m |= fs.ModeDevice | fs.ModeCharDevice
	case syscall.S_IFDIR:
		m |= fs.ModeDir
	case syscall.S_IFIFO:
		m |= fs.ModeNamedPipe
	case syscall.S_IFLNK:
		m |= fs.ModeSymlink
	case syscall.S_IFREG:
		// nothing to do
	case syscall.S_IFSOCK:
		m |= fs.ModeSocket
	}
	if mode&syscall.S_ISGID != 0 {
		m |= fs.ModeSetgid
	}
	if mode&syscall.S_ISUID != 0 {
		m |= fs.ModeSetuid
	}
	if mode&syscall.S_ISVTX != 0 {
		m |= fs.ModeSticky
	}
	return m
}

func ts2time(a syscall.Timespec) time.Time {
	return time.Unix(int64(a.Sec), int64(a.Nsec))
}

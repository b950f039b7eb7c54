// xattr.go - extended attribute support
//
// (c) 2023- Sudhi Herle <sudhi@herle.net>
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
	"strings"
	"syscall"

	"github.com/pkg/xattr"
)

// Xattr is a collection of all the extended attributes of a given file
type Xattr map[string]string

// String returns the string representation of all the extended attributes
func (x Xattr) String() string {
	var s strings.Builder
	for k, v := range x {
		s.WriteString(fmt.Sprintf("%s=%s\n", k, v))
	}
	return s.String()
}

// Equal returns true if all xattr of 'x' is the same as all the
// xattr of 'y' and returns false otherwise.
func (x Xattr) Equal(y Xattr) bool {
	if len(x) != len(y) {
		return false
	}
	for k, a := range x {
		if b, ok := y[k]; !ok || a != b {
			return false
		}
	}
	return true
}

// GetXattr returns all the extended attributes of a file.
// This function will traverse symlinks.
func GetXattr(nm string) (Xattr, error) {
	return fetch(nm, xattr.List, xattr.Get)
}

// LgetXattr returns all the extended attributes of a file.
// If 'nm' points to a symlink, LgetXattr will return the
// extended attributes of the symlink and *not* the target.
func LgetXattr(nm string) (Xattr, error) {
	return fetch(nm, xattr.LList, xattr.LGet)
}

// SetXattr sets/updates the xattr list for a given file.
func SetXattr(nm string, x Xattr) error {
	return store(nm, x, xattr.Set)
}

// LsetXattr sets/updates the xattr list for a given file.
// If 'nm' points to a symlink, LsetXattr will set/update the
// extended attributes of the symlink and *not* the target.
func LsetXattr(nm string, x Xattr) error {
	return store(nm, x, xattr.LSet)
}

// copyXattr copies the extended attributes of src to dst. File systems
// that don't support xattr, and attributes we're not allowed to set
// (eg. trusted.* or security.* as non-root) are skipped.
func copyXattr(dst, src string, follow bool) error {
	get, set := LgetXattr, LsetXattr
	if follow {
		get, set = GetXattr, SetXattr
	}

	x, err := get(src)
	if err != nil {
		if ignoreXattrErr(err) {
			return nil
		}
		return err
	}

	for k, v := range x {
		if err := set(dst, Xattr{k: v}); err != nil && !ignoreXattrErr(err) {
			return err
		}
	}
	return nil
}

func ignoreXattrErr(err error) bool {
	return errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.EINVAL) ||
		errors.Is(err, xattr.ENOATTR)
}

// handy helper that works for files and symlinks
func fetch(nm string, list func(nm string) ([]string, error),
	get func(nm string, k string) ([]byte, error)) (Xattr, error) {
	keys, err := list(nm)
	if err != nil {
		return nil, err
	}

	x := make(Xattr)
	for _, k := range keys {
		b, err := get(nm, k)
		if err != nil {
			return nil, err
		}
		x[k] = string(b)
	}
	return x, nil
}

func store(nm string, x Xattr, set func(nm, key string, val []byte) error) error {
	for k, v := range x {
		if err := set(nm, k, []byte(v)); err != nil {
			return err
		}
	}
	return nil
}

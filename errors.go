// errors.go - descriptive errors for pcopy
//
// (c) 2024 Sudhi Herle <sudhi@herle.net>
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
)

var (
	// ErrAmbiguousDestination is returned when multiple sources are
	// given and the destination is not an existing directory.
	ErrAmbiguousDestination = errors.New("multiple sources need an existing destination directory")

	// ErrInvalidWorkers is returned when the worker count is less than 1
	ErrInvalidWorkers = errors.New("worker count must be at least 1")

	// ErrNoSources is returned when Copy is called without any source
	ErrNoSources = errors.New("no sources to copy")

	// ErrSelfCopy is recorded when a source and its destination are the
	// same file system entry
	ErrSelfCopy = errors.New("source and destination are the same file")

	// ErrRecursiveCopy is recorded when a directory would be copied into
	// its own subtree
	ErrRecursiveCopy = errors.New("cannot copy a directory into itself")

	// ErrSpecialFile is recorded for devices, named pipes and sockets
	ErrSpecialFile = errors.New("not a regular file, directory or symlink")

	// ErrDupDestination is recorded when two different sources map to
	// the same destination in one invocation
	ErrDupDestination = errors.New("will not overwrite a destination just copied from another source")

	// ErrNotDir is recorded when a directory must be mirrored onto an
	// existing non-directory
	ErrNotDir = errors.New("destination exists and is not a directory")
)

// Error represents the errors returned by Copy and CopyFile
type Error struct {
	Op  string
	Src string
	Dst string
	Err error
}

// Error returns a string representation of Error
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "pcopy: %s", e.Op)
	if len(e.Src) > 0 {
		fmt.Fprintf(&b, " '%s'", e.Src)
	}
	if len(e.Dst) > 0 {
		fmt.Fprintf(&b, " '%s'", e.Dst)
	}
	fmt.Fprintf(&b, ": %s", e.Err.Error())
	return b.String()
}

// Unwrap returns the underlying wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

var _ error = &Error{}

// FailureSet is every failure seen during a single Copy invocation:
// validation and traversal failures in the order they were found, then
// copy failures in submission order, then directory metadata failures.
type FailureSet []error

// Error returns one line per failure
func (f FailureSet) Error() string {
	var b strings.Builder
	for i, e := range f {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap returns the individual failures so that errors.Is and
// errors.As can inspect each of them.
func (f FailureSet) Unwrap() []error {
	return f
}

var _ error = FailureSet{}

// Failures returns the FailureSet held in err, if any. A configuration
// error is returned as a single element set.
func Failures(err error) FailureSet {
	if err == nil {
		return nil
	}

	var fs FailureSet
	if errors.As(err, &fs) {
		return fs
	}
	return FailureSet{err}
}

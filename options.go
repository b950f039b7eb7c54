// options.go - functional options for Copy
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
	"fmt"
	"path"

	"github.com/opencoff/go-logger"
)

// DefaultWorkers is the number of concurrent file copies
// done by Copy() unless overridden by WithWorkers()
const DefaultWorkers = 16

// SymlinkPolicy decides what Copy does with the symlinks it finds
type SymlinkPolicy int

const (
	// FollowSymlinks copies the target of a symlink as if it
	// were the entry itself; dangling links are errors.
	FollowSymlinks SymlinkPolicy = iota

	// CopySymlinks recreates the symlink at the destination
	CopySymlinks
)

func (p SymlinkPolicy) String() string {
	switch p {
	case FollowSymlinks:
		return "follow"
	case CopySymlinks:
		return "copy"
	}
	return fmt.Sprintf("SymlinkPolicy(%d)", int(p))
}

type copyopt struct {
	CopyOpt

	workers  int
	symlinks SymlinkPolicy

	// shell globs matched against the basename of each
	// directory entry
	excludes []string

	log logger.Logger
}

func defaultOpts() copyopt {
	return copyopt{
		workers:  DefaultWorkers,
		symlinks: FollowSymlinks,
	}
}

// Option captures the various options for Copy
type Option func(o *copyopt)

// WithWorkers sets the number of files copied concurrently; it
// must be at least 1.
func WithWorkers(n int) Option {
	return func(o *copyopt) {
		o.workers = n
	}
}

// WithFastCopy enables or disables the sendfile(2) fast path
func WithFastCopy(fast bool) Option {
	return func(o *copyopt) {
		o.FastCopy = fast
	}
}

// WithChunkSize caps the bytes moved by each fast path syscall
func WithChunkSize(n int64) Option {
	return func(o *copyopt) {
		o.ChunkSize = n
	}
}

// WithSymlinks sets the policy for symlinks encountered in the
// sources.
func WithSymlinks(p SymlinkPolicy) Option {
	return func(o *copyopt) {
		o.symlinks = p
	}
}

// WithExcludes skips directory entries whose basename matches any
// of the shell glob patterns in 'pats'. Excluded directories are not
// descended.
func WithExcludes(pats ...string) Option {
	return func(o *copyopt) {
		o.excludes = append(o.excludes, pats...)
	}
}

// WithLogger logs the progress of a copy to 'log'
func WithLogger(log logger.Logger) Option {
	return func(o *copyopt) {
		o.log = log
	}
}

func (o *copyopt) validate(nsrc int) error {
	if nsrc == 0 {
		return &Error{Op: "config", Err: ErrNoSources}
	}

	if o.workers < 1 {
		return &Error{Op: "config", Err: fmt.Errorf("%w: %d", ErrInvalidWorkers, o.workers)}
	}

	switch o.symlinks {
	case FollowSymlinks, CopySymlinks:
	default:
		return &Error{Op: "config", Err: fmt.Errorf("unknown symlink policy %d", o.symlinks)}
	}

	for _, pat := range o.excludes {
		if _, err := path.Match(pat, ""); err != nil {
			return &Error{Op: "config", Err: fmt.Errorf("exclude '%s': %w", pat, err)}
		}
	}
	return nil
}

// return true iff 'nm' matches one of the exclude patterns
func (o *copyopt) exclude(nm string) bool {
	for _, pat := range o.excludes {
		if ok, _ := path.Match(pat, nm); ok {
			return true
		}
	}
	return false
}

package rowkv

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

// File is the subset of *os.File behavior the table's file layer needs:
// random-access reads and writes, truncation, and durability control.
//
// Implementations must be safe for concurrent use; in practice all access
// is already serialized by the table's global file lock, but the
// interface makes no assumption about that.
type File interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}

// FS abstracts the filesystem calls rowkv needs, so tests can substitute a
// fake without touching the real filesystem.
//
// Paths use OS semantics, like the os package.
type FS interface {
	// OpenFile opens a file with the given flags and permissions. See
	// [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// Stat returns file info for path. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Remove deletes path. See [os.Remove].
	Remove(path string) error

	// WriteFileAtomic writes data to path atomically: a temp file in the
	// same directory is written and renamed over path, so a crash
	// mid-write never leaves a partially written file at path.
	WriteFileAtomic(path string, data []byte) error
}

// Real is the production FS implementation, backed by the os package.
type Real struct{}

// NewReal returns a Real filesystem.
func NewReal() Real { return Real{} }

func (Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm)
}

func (Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (Real) Remove(path string) error {
	return os.Remove(path)
}

func (Real) WriteFileAtomic(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Compile-time interface checks.
var (
	_ File = (*os.File)(nil)
	_ FS   = Real{}
)

// fileExists reports whether path exists, treating any other Stat error as
// a propagating failure rather than "does not exist".
func fileExists(fsys FS, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

package rowkv

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileGuard holds an advisory exclusive lock on a sibling ".lock" file,
// taken for the lifetime of an open Table. It exists to catch a second
// accidental Open against the same path within this process, not to
// coordinate with other processes; see the multi-process Non-goal in
// SPEC_FULL.md.
type fileGuard struct {
	f *os.File
}

// acquireFileGuard takes the lock file next to path. It fails immediately,
// without retrying, if the lock is already held.
func acquireFileGuard(path string) (*fileGuard, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: opening lock file %q: %v", ErrIO, lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %q: %v", ErrAlreadyOpen, path, err)
	}
	return &fileGuard{f: f}, nil
}

// release drops the lock and closes the lock file. Safe to call on a nil
// guard or more than once.
func (g *fileGuard) release() error {
	if g == nil || g.f == nil {
		return nil
	}
	_ = unix.Flock(int(g.f.Fd()), unix.LOCK_UN)
	err := g.f.Close()
	g.f = nil
	return err
}

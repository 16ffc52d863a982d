package core

import (
	"fmt"
	"os"
	"syscall"
)

// lockDocument acquires an exclusive advisory lock guarding the backlog
// document for the duration of a read-modify-write cycle. The lock lives on a
// sidecar file (path + ".lock") rather than the document itself, because the
// atomic rename in SaveDocument replaces the document inode mid-run.
// It returns an unlock function that must be called to release the lock.
func lockDocument(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring document lock: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

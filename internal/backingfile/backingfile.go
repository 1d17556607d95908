// Package backingfile wraps the POSIX calls a persistent file object needs:
// open, fstat, pread, pwrite, close. It is used as an opaque backing-store
// capability by the paged I/O engine and is unused entirely in
// non-persistent mode.
package backingfile

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// File is a thin handle over an open POSIX file descriptor.
type File struct {
	fd int
}

// Open translates the host's access-mode booleans into POSIX open(2) flags
// and opens name. The flag translation mirrors the host-flags table:
// read/write selects O_RDWR over O_RDONLY, and truncate/create/exclusive
// each map to their POSIX counterpart.
func Open(name string, readWrite, truncate, create, exclusive bool) (*File, error) {
	flags := unix.O_RDONLY
	if readWrite {
		flags = unix.O_RDWR
	}
	if truncate {
		flags |= unix.O_TRUNC
	}
	if create {
		flags |= unix.O_CREAT
	}
	if exclusive {
		flags |= unix.O_EXCL
	}

	fd, err := unix.Open(name, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("backingfile: open %q: %w", name, err)
	}

	return &File{fd: fd}, nil
}

// Size returns the current size of the backing file via fstat.
func (f *File) Size() (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(f.fd, &st); err != nil {
		return 0, fmt.Errorf("backingfile: fstat: %w", err)
	}
	return st.Size, nil
}

// Pread reads exactly len(buf) bytes at off, except for a short read that
// stops at end-of-file, which is not an error — callers that need to
// distinguish a legitimate short read from a failure compare the returned
// count against the length they expected.
func (f *File) Pread(buf []byte, off int64) (int, error) {
	n, err := unix.Pread(f.fd, buf, off)
	if err != nil {
		return n, fmt.Errorf("backingfile: pread at %d: %w", off, err)
	}
	return n, nil
}

// Pwrite writes exactly len(buf) bytes at off.
func (f *File) Pwrite(buf []byte, off int64) (int, error) {
	n, err := unix.Pwrite(f.fd, buf, off)
	if err != nil {
		return n, fmt.Errorf("backingfile: pwrite at %d: %w", off, err)
	}
	if n != len(buf) {
		return n, fmt.Errorf("backingfile: short pwrite at %d: wrote %d of %d bytes", off, n, len(buf))
	}
	return n, nil
}

// Close closes the backing file descriptor.
func (f *File) Close() error {
	if err := unix.Close(f.fd); err != nil {
		return fmt.Errorf("backingfile: close: %w", err)
	}
	return nil
}

// Fd returns the raw descriptor, for the host's get_handle entry point.
func (f *File) Fd() int {
	return f.fd
}

package pagedvfd

import "errors"

// Sentinel errors for the error kinds named in the error handling design:
// argument errors, an unallocated scratch buffer, backing I/O failures, a
// missing blob with no source of truth to fault from, and buffer-store
// service init failures. Callers use errors.Is to classify a failure
// without string matching.
var (
	ErrInvalidArgument   = errors.New("pagedvfd: invalid argument")
	ErrUninitialized     = errors.New("pagedvfd: scratch buffer not initialized")
	ErrBackingIO         = errors.New("pagedvfd: backing file I/O failed")
	ErrBlobNotRetrieval  = errors.New("pagedvfd: blob not retrievable")
	ErrServiceInit       = errors.New("pagedvfd: buffer-store service initialization failed")
	ErrClosed            = errors.New("pagedvfd: file already closed")
	ErrHandleUnavailable = errors.New("pagedvfd: no POSIX handle available in non-persistent mode")
)

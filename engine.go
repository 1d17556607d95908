package pagedvfd

import (
	"fmt"

	"github.com/hdf5-hermes/pagedvfd/internal/blobname"
)

// pageClass describes which slice of a page a read or write touches.
type pageClass struct {
	offset int64 // offset within the page
	length int64 // number of bytes touched
	whole  bool  // true iff offset==0 && length==pageSize
}

// classify decides, for page k within request [addr, addr+size), which
// bytes of that page the request touches: a partial window at the front of
// the request, a partial window at the tail, or the whole page.
func (f *File) classify(k, addr, size, last int64) pageClass {
	P := f.cfg.PageSize
	pageStart := k * P

	firstPartial := addr > pageStart && addr < pageStart+P
	lastPartial := last >= pageStart && last < pageStart+P-1

	switch {
	case firstPartial:
		off := addr - pageStart
		length := size
		if last > pageStart+P-1 {
			length = pageStart + P - addr
		}
		return pageClass{offset: off, length: length}
	case lastPartial:
		length := last - pageStart + 1
		return pageClass{offset: 0, length: length}
	default:
		return pageClass{offset: 0, length: P, whole: true}
	}
}

// checkRequest validates addr and size against §3: addr must be defined and
// within MaxAddr, size must not make addr+size overflow, and the resulting
// end address must not wrap past addr.
func (f *File) checkRequest(addr, size int64) error {
	if f.closed {
		return ErrClosed
	}
	if f.pageBuf == nil {
		return ErrUninitialized
	}
	if addr < 0 || addr > MaxAddr {
		return fmt.Errorf("%w: addr undefined, addr=%d", ErrInvalidArgument, addr)
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}
	if addr > MaxAddr-size {
		return fmt.Errorf("%w: addr+size overflow, addr=%d size=%d", ErrInvalidArgument, addr, size)
	}
	end := addr + size
	if end < addr {
		return fmt.Errorf("%w: addr+size wrapped, addr=%d size=%d", ErrInvalidArgument, addr, size)
	}
	return nil
}

func (f *File) resetPosOp() {
	f.pos = PosUndef
	f.op = OpUnknown
}

// Read delivers size=len(buf) bytes starting at addr, faulting absent pages
// in from the backing file (persistent mode) or failing (non-persistent
// mode, unreachable for well-formed sequences since addr>=eof already
// short-circuits to zeros and writes always establish presence first).
func (f *File) Read(addr int64, buf []byte) error {
	size := int64(len(buf))

	if err := f.checkRequest(addr, size); err != nil {
		f.resetPosOp()
		return err
	}

	if size == 0 {
		return nil
	}

	if addr >= f.eof {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}

	P := f.cfg.PageSize
	start := addr / P
	last := addr + size - 1
	end := last / P

	var transferred int64
	for k := start; k <= end; k++ {
		class := f.classify(k, addr, size, last)

		var dst []byte
		if class.whole {
			dst = buf[transferred : transferred+class.length]
		} else {
			dst = f.pageBuf
		}

		if err := f.loadPage(k, dst); err != nil {
			f.resetPosOp()
			return err
		}

		if !class.whole {
			copy(buf[transferred:transferred+class.length], f.pageBuf[class.offset:class.offset+class.length])
		}

		transferred += class.length
	}

	if transferred != size {
		f.resetPosOp()
		return fmt.Errorf("pagedvfd: read transferred %d of %d bytes", transferred, size)
	}

	f.pos = addr + size
	f.op = OpRead
	return nil
}

// loadPage ensures page k's P bytes live in dst, either from the buffer
// store (if present) or faulted in from the backing file and promoted into
// the buffer store, in strictly increasing page-index order within a
// single call as required by the concurrency model.
func (f *File) loadPage(k int64, dst []byte) error {
	name := blobname.Name(uint64(k))
	P := f.cfg.PageSize

	if f.present.Contains(uint64(k)) {
		if err := f.bucket.Get(name, int(P), dst); err != nil {
			return fmt.Errorf("pagedvfd: get page %d: %w", k, err)
		}
		return nil
	}

	if !f.cfg.Persistence {
		return fmt.Errorf("%w: page %d", ErrBlobNotRetrieval, k)
	}

	for i := range dst[:P] {
		dst[i] = 0
	}

	pageStart := k * P
	readLen := P
	if pageStart+P > f.eof {
		readLen = f.eof - pageStart
		if readLen < 0 {
			readLen = 0
		}
	}

	if readLen > 0 {
		n, err := f.backing.Pread(dst[:readLen], pageStart)
		if err != nil {
			return fmt.Errorf("%w: fault in page %d: %v", ErrBackingIO, k, err)
		}
		if int64(n) != readLen {
			return fmt.Errorf("%w: short read faulting in page %d: got %d of %d bytes", ErrBackingIO, k, n, readLen)
		}
	}

	if err := f.bucket.Put(name, dst[:P], int(P)); err != nil {
		return fmt.Errorf("pagedvfd: put page %d: %w", k, err)
	}
	f.present.Insert(uint64(k))

	return nil
}

// Write stores size=len(buf) bytes starting at addr. A whole page touched
// by the write is put directly from buf; a partial page is read-modify-
// written through page_buf, loading the current blob first if the page is
// already present and otherwise leaving page_buf's prior contents in the
// untouched portion (see SPEC_FULL.md's page_buf residue resolution) —
// the engine never faults from the backing file on a write, since a write
// establishes its own content and has no earlier state to preserve here.
func (f *File) Write(addr int64, buf []byte) error {
	size := int64(len(buf))

	if err := f.checkRequest(addr, size); err != nil {
		f.resetPosOp()
		return err
	}

	if size == 0 {
		f.pos = addr
		f.op = OpWrite
		if f.pos > f.eof {
			f.eof = f.pos
		}
		return nil
	}

	P := f.cfg.PageSize
	start := addr / P
	last := addr + size - 1
	end := last / P

	var transferred int64
	for k := start; k <= end; k++ {
		class := f.classify(k, addr, size, last)
		name := blobname.Name(uint64(k))

		if class.whole {
			src := buf[transferred : transferred+class.length]
			if err := f.bucket.Put(name, src, int(P)); err != nil {
				f.resetPosOp()
				return fmt.Errorf("pagedvfd: put page %d: %w", k, err)
			}
		} else {
			if f.present.Contains(uint64(k)) {
				if err := f.bucket.Get(name, int(P), f.pageBuf); err != nil {
					f.resetPosOp()
					return fmt.Errorf("pagedvfd: get page %d for read-modify-write: %w", k, err)
				}
			}
			copy(f.pageBuf[class.offset:class.offset+class.length], buf[transferred:transferred+class.length])
			if err := f.bucket.Put(name, f.pageBuf, int(P)); err != nil {
				f.resetPosOp()
				return fmt.Errorf("pagedvfd: put page %d: %w", k, err)
			}
		}

		f.present.Insert(uint64(k))
		transferred += class.length
	}

	if transferred != size {
		f.resetPosOp()
		return fmt.Errorf("pagedvfd: write transferred %d of %d bytes", transferred, size)
	}

	f.pos = addr + size
	f.op = OpWrite
	if f.pos > f.eof {
		f.eof = f.pos
	}
	return nil
}

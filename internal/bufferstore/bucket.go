package bufferstore

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Bucket is a named namespace of fixed-size blobs, one per logical file.
// A bloom filter fronts the blob map so a containment check that turns out
// negative never has to touch the map at all — the same shape the teacher
// repo uses to skip a disk read on a certain miss.
type Bucket struct {
	name string

	mu     sync.RWMutex
	blobs  map[string][]byte
	filter *bloom.BloomFilter
}

func newBucket(name string) *Bucket {
	return &Bucket{
		name:   name,
		blobs:  make(map[string][]byte),
		filter: bloom.NewWithEstimates(4096, 0.01),
	}
}

// Name returns the bucket's textual name.
func (b *Bucket) Name() string {
	return b.name
}

// Contains reports whether a blob with the given name currently exists in
// this bucket.
func (b *Bucket) Contains(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.filter.TestString(name) {
		return false
	}
	_, ok := b.blobs[name]
	return ok
}

// Get reads exactly len bytes of the named blob into out. out must have
// capacity for at least len bytes.
func (b *Bucket) Get(name string, length int, out []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	blob, ok := b.blobs[name]
	if !ok {
		return fmt.Errorf("bufferstore: blob %q not found in bucket %q", name, b.name)
	}
	if len(blob) != length {
		return fmt.Errorf("bufferstore: blob %q has %d bytes, want %d", name, len(blob), length)
	}
	copy(out[:length], blob)
	return nil
}

// Put stores buf[:length] under name, overwriting any previous blob with
// the same name.
func (b *Bucket) Put(name string, buf []byte, length int) error {
	if len(buf) < length {
		return fmt.Errorf("bufferstore: put %q: buffer shorter than length %d", name, length)
	}

	stored := make([]byte, length)
	copy(stored, buf[:length])

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[name] = stored
	b.filter.AddString(name)
	return nil
}

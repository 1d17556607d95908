// Package bufferstore stands in for the external multi-tier buffering
// service ("Hermes") the paged I/O engine treats as an opaque collaborator:
// bucket lifecycle, blob put/get/contains, and process-wide init/finalize.
package bufferstore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Service is the process-wide buffer-store handle. One instance is shared
// by every open file in the process, matching the real service's own
// locking being its concern, not the engine's.
type Service struct {
	mu      sync.Mutex
	buckets map[string]*Bucket

	initGroup   singleflight.Group
	initialized atomic.Bool
	confPath    string
}

var global = &Service{buckets: make(map[string]*Bucket)}

// Global returns the process-wide buffer-store service.
func Global() *Service {
	return global
}

// Init runs the idempotent, process-wide initialization step. It is safe to
// call on every file open: once a call has succeeded, later calls are
// no-ops; concurrent first-time calls collapse into a single attempt via
// singleflight so a burst of opens at process start does not race to
// initialize the service twice, and a failed attempt does not poison later
// retries the way a sync.Once would.
func (s *Service) Init(confPath string) error {
	if s.initialized.Load() {
		return nil
	}

	_, err, _ := s.initGroup.Do("init", func() (any, error) {
		if s.initialized.Load() {
			return nil, nil
		}
		// The reference buffer store has no external process to contact;
		// the configuration path is retained for callers that want to
		// inspect where it would have been read from.
		s.confPath = confPath
		s.initialized.Store(true)
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("bufferstore: service init: %w", err)
	}
	return nil
}

// ConfPath returns the path recorded by the Init call that initialized the
// service; later Init calls do not change it. It is empty before the first
// Init and after Finalize.
func (s *Service) ConfPath() string {
	return s.confPath
}

// BucketCreate obtains or creates a bucket with the given name.
func (s *Service) BucketCreate(name string) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("bufferstore: bucket name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	b := newBucket(name)
	s.buckets[name] = b
	return b, nil
}

// BucketClose releases a reference to the bucket without removing its
// blobs, keeping them available for a potential peer that reopens the same
// name. The reference count behind a bucket is always 1 in this
// implementation (see DESIGN.md), so this only matters if the caller later
// reopens the same name instead of destroying it.
func (s *Service) BucketClose(b *Bucket) error {
	if b == nil {
		return fmt.Errorf("bufferstore: close of nil bucket")
	}
	return nil
}

// BucketDestroy releases the bucket and all of its blobs.
func (s *Service) BucketDestroy(b *Bucket) error {
	if b == nil {
		return fmt.Errorf("bufferstore: destroy of nil bucket")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, b.Name())
	return nil
}

// Finalize shuts down the buffer-store service, dropping every bucket and
// resetting the init latch so a later process-wide restart can initialize
// again.
func (s *Service) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets = make(map[string]*Bucket)
	s.initialized.Store(false)
	s.confPath = ""
	return nil
}

package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"foreverstream/internal/objectstore"
	"foreverstream/internal/transcoder"
)

// FakeBackend is an in-memory transcoder.Backend. Created jobs start pending.
type FakeBackend struct {
	mu        sync.Mutex
	seq       int
	jobs      map[string]transcoder.JobStatus
	requests  []transcoder.JobRequest
	CreateErr error
	GetErr    error
}

// NewFakeBackend returns an empty fake backend.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{jobs: make(map[string]transcoder.JobStatus)}
}

// CreateJob records the request and returns a sequential job name.
func (b *FakeBackend) CreateJob(_ context.Context, req transcoder.JobRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.CreateErr != nil {
		return "", b.CreateErr
	}
	b.seq++
	name := fmt.Sprintf("projects/test-project/locations/us-central1/jobs/job-%d", b.seq)
	b.jobs[name] = transcoder.JobStatus{Name: name, State: transcoder.JobStatePending}
	return name, nil
}

// GetJob returns the stored job status.
func (b *FakeBackend) GetJob(_ context.Context, name string) (transcoder.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.GetErr != nil {
		return transcoder.JobStatus{}, b.GetErr
	}
	status, ok := b.jobs[name]
	if !ok {
		return transcoder.JobStatus{}, fmt.Errorf("job %s not found", name)
	}
	return status, nil
}

// SetState overrides the state of a job, creating it if needed.
func (b *FakeBackend) SetState(name string, state transcoder.JobState, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[name] = transcoder.JobStatus{Name: name, State: state, ErrorMessage: message}
}

// Requests returns a copy of every CreateJob request received.
func (b *FakeBackend) Requests() []transcoder.JobRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transcoder.JobRequest(nil), b.requests...)
}

// MemoryObjectStore is an in-memory objectstore.Store.
type MemoryObjectStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	uploads     map[string]objectstore.UploadOptions
	DownloadErr error
	UploadErr   error
}

// NewMemoryObjectStore returns an empty store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string][]byte),
		uploads: make(map[string]objectstore.UploadOptions),
	}
}

func objectKey(bucket, object string) string {
	return bucket + "/" + object
}

// Put seeds an object.
func (s *MemoryObjectStore) Put(bucket, object string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, object)] = append([]byte(nil), data...)
}

// Object returns the stored bytes and the options of the upload that wrote them.
func (s *MemoryObjectStore) Object(bucket, object string) ([]byte, objectstore.UploadOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey(bucket, object)]
	return data, s.uploads[objectKey(bucket, object)], ok
}

// Download writes the object to destPath.
func (s *MemoryObjectStore) Download(_ context.Context, bucket, object, destPath string) error {
	s.mu.Lock()
	data, ok := s.objects[objectKey(bucket, object)]
	downloadErr := s.DownloadErr
	s.mu.Unlock()
	if downloadErr != nil {
		return downloadErr
	}
	if !ok {
		return fmt.Errorf("%w: %s", objectstore.ErrObjectNotFound, objectstore.URI(bucket, object))
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

// Upload stores the file contents at srcPath.
func (s *MemoryObjectStore) Upload(_ context.Context, bucket, object, srcPath string, opts objectstore.UploadOptions) error {
	s.mu.Lock()
	uploadErr := s.UploadErr
	s.mu.Unlock()
	if uploadErr != nil {
		return uploadErr
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, object)] = data
	s.uploads[objectKey(bucket, object)] = opts
	return nil
}

var (
	_ transcoder.Backend = (*FakeBackend)(nil)
	_ objectstore.Store  = (*MemoryObjectStore)(nil)
)

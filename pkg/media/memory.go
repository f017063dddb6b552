package media

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps blobs in process memory. Used in development and tests.
type MemoryStore struct {
	baseURL string
	maxSize int64

	mu      sync.Mutex
	objects map[string]memoryObject
	uploads int
	// FailOn, when set, is consulted before each upload with the 1-based
	// upload sequence number; a non-nil result fails that upload.
	FailOn func(seq int, f File) error
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemoryStore creates a store issuing URLs under baseURL.
func NewMemoryStore(baseURL string, maxSize int64) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		objects: make(map[string]memoryObject),
	}
}

func (s *MemoryStore) Upload(ctx context.Context, prefix string, f File) (string, error) {
	if err := Check(&f, s.maxSize); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads++
	if s.FailOn != nil {
		if err := s.FailOn(s.uploads, f); err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", f.Name, err)
		}
	}
	key := ObjectKey(prefix, f)
	s.objects[key] = memoryObject{data: f.Data, contentType: f.ContentType, modified: time.Now()}
	return s.baseURL + "/" + key, nil
}

func (s *MemoryStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return ErrForeignURL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects := make([]Object, 0, len(s.objects))
	for key, o := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, Object{
			Key:          key,
			URL:          s.baseURL + "/" + key,
			Size:         int64(len(o.data)),
			LastModified: o.modified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Has reports whether url is currently stored.
func (s *MemoryStore) Has(url string) bool {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.objects[key]
	return exists
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Age shifts an object's modification time into the past.
func (s *MemoryStore) Age(url string, by time.Duration) {
	key, _ := strings.CutPrefix(url, s.baseURL+"/")
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[key]; ok {
		o.modified = o.modified.Add(-by)
		s.objects[key] = o
	}
}

// Object returns the stored blob under key.
func (s *MemoryStore) Object(key string) (data []byte, contentType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return o.data, o.contentType, true
}

package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxSize is the per-file upload cap.
const DefaultMaxSize int64 = 10 << 20

var (
	// ErrTooLarge is returned before any network I/O when a file exceeds the cap.
	ErrTooLarge = errors.New("file exceeds upload size limit")
	// ErrEmpty is returned for zero-byte files.
	ErrEmpty = errors.New("file is empty")
	// ErrForeignURL is returned by Delete for URLs the store did not issue.
	ErrForeignURL = errors.New("url does not belong to this store")
)

// File is an in-memory upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Object describes a stored blob.
type Object struct {
	Key          string
	URL          string
	Size         int64
	LastModified time.Time
}

// Store persists binary data and returns durable public URLs.
type Store interface {
	Upload(ctx context.Context, prefix string, f File) (string, error)
	Delete(ctx context.Context, url string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Check validates f against maxSize and fills in a sniffed content type when
// the client declared none.
func Check(f *File, maxSize int64) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%s: %w", f.Name, ErrEmpty)
	}
	if maxSize > 0 && int64(len(f.Data)) > maxSize {
		return fmt.Errorf("%s (%d bytes): %w", f.Name, len(f.Data), ErrTooLarge)
	}
	if f.ContentType == "" || f.ContentType == "application/octet-stream" {
		f.ContentType = mimetype.Detect(f.Data).String()
	}
	return nil
}

// ObjectKey builds "<prefix>/<uuid><ext>", keeping the original extension or
// deriving one from the content type.
func ObjectKey(prefix string, f File) string {
	ext := strings.ToLower(path.Ext(f.Name))
	if ext == "" && f.ContentType != "" {
		if mt := mimetype.Lookup(f.ContentType); mt != nil {
			ext = mt.Extension()
		}
	}
	name := uuid.New().String() + ext
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

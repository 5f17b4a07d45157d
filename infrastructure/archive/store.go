// Package archive provides snapshot archive backends on the local
// filesystem, Amazon S3, Google Cloud Storage and Azure Blob Storage.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/legisflow/legisflow/domain/archive"
)

// ErrObjectNotFound is returned by a Client when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored object as reported by a Client.
type Object struct {
	Key      string
	Size     int64
	Modified time.Time
}

// Client is the object storage a Store writes to. A client is bound to one
// bucket or directory.
type Client interface {
	// Upload writes content under key.
	Upload(ctx context.Context, key string, content io.Reader, size int64) error

	// Download opens the object under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error

	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Store implements archive.Store on top of a Client.
type Store struct {
	client Client
	prefix string
}

// NewStore creates an archive store. Prefix is prepended to every key.
func NewStore(client Client, prefix string) (*Store, error) {
	if client == nil {
		return nil, errors.New("archive client is required")
	}
	return &Store{client: client, prefix: strings.Trim(prefix, "/")}, nil
}

// Put stores content under key and reports its size and checksum.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (archive.Ref, error) {
	if err := archive.ValidateKey(key); err != nil {
		return archive.Ref{}, err
	}

	var buf bytes.Buffer
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(&buf, hasher), content)
	if err != nil {
		return archive.Ref{}, fmt.Errorf("failed to read content: %w", err)
	}

	if err := s.client.Upload(ctx, s.objectKey(key), bytes.NewReader(buf.Bytes()), size); err != nil {
		return archive.Ref{}, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return archive.Ref{
		Key:       key,
		Size:      size,
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt: time.Now(),
	}, nil
}

// Get opens the object stored under key.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := archive.ValidateKey(key); err != nil {
		return nil, err
	}

	r, err := s.client.Download(ctx, s.objectKey(key))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, archive.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return r, nil
}

// List returns the objects whose key starts with prefix, ordered by key.
func (s *Store) List(ctx context.Context, prefix string) ([]archive.Ref, error) {
	objects, err := s.client.List(ctx, s.objectKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}

	refs := make([]archive.Ref, 0, len(objects))
	for _, o := range objects {
		refs = append(refs, archive.Ref{
			Key:       s.relativeKey(o.Key),
			Size:      o.Size,
			CreatedAt: o.Modified,
		})
	}
	archive.SortRefs(refs)
	return refs, nil
}

// Delete removes the object stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := archive.ValidateKey(key); err != nil {
		return err
	}

	err := s.client.Delete(ctx, s.objectKey(key))
	if errors.Is(err, ErrObjectNotFound) {
		return archive.ErrNotFound
	}
	return err
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *Store) relativeKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

var _ archive.Store = (*Store)(nil)

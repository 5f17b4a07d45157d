// Package archive provides the snapshot archive of the stage engine.
package archive

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates no archived object exists under the key.
	ErrNotFound = errors.New("archive object not found")

	// ErrInvalidKey indicates an empty or malformed key.
	ErrInvalidKey = errors.New("invalid archive key")

	// ErrEmpty indicates the archive holds no snapshots.
	ErrEmpty = errors.New("archive is empty")
)

// SnapshotPrefix is the key prefix of exported snapshots.
const SnapshotPrefix = "snapshots/"

// Ref describes an archived object.
type Ref struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Store keeps exported snapshots. Keys use forward slashes regardless of
// backend.
type Store interface {
	// Put stores content under key, replacing any previous object.
	Put(ctx context.Context, key string, content io.Reader) (Ref, error)

	// Get opens the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the objects whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Ref, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// SnapshotKey returns the key a snapshot taken at t is archived under.
// Keys sort chronologically.
func SnapshotKey(t time.Time) string {
	return SnapshotPrefix + t.UTC().Format("20060102T150405.000000000Z") + ".json"
}

// ValidateKey checks a key is relative and free of parent references.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}

// SortRefs orders refs by key.
func SortRefs(refs []Ref) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
}

// Latest returns the most recent snapshot in the store.
func Latest(ctx context.Context, s Store) (Ref, error) {
	refs, err := s.List(ctx, SnapshotPrefix)
	if err != nil {
		return Ref{}, err
	}
	if len(refs) == 0 {
		return Ref{}, ErrEmpty
	}
	SortRefs(refs)
	return refs[len(refs)-1], nil
}

package archive_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	domain "github.com/legisflow/legisflow/domain/archive"
	"github.com/legisflow/legisflow/infrastructure/archive"
)

func newFileStore(t *testing.T, prefix string) *archive.Store {
	t.Helper()

	client, err := archive.NewFileClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileClient() error = %v", err)
	}
	store, err := archive.NewStore(client, prefix)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(data)
}

func TestNewStore_RequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := archive.NewStore(nil, ""); err == nil {
		t.Error("NewStore(nil) should fail")
	}
}

func TestStore_FileRoundTrip(t *testing.T) {
	t.Parallel()

	for _, prefix := range []string{"", "chamber"} {
		t.Run("prefix="+prefix, func(t *testing.T) {
			t.Parallel()

			store := newFileStore(t, prefix)
			ctx := context.Background()
			body := `{"version":1}`

			ref, err := store.Put(ctx, "snapshots/a.json", strings.NewReader(body))
			if err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			sum := sha256.Sum256([]byte(body))
			if ref.Size != int64(len(body)) || ref.Checksum != hex.EncodeToString(sum[:]) {
				t.Errorf("Put() ref = %+v", ref)
			}

			r, err := store.Get(ctx, "snapshots/a.json")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got := readAll(t, r); got != body {
				t.Errorf("Get() = %q, want %q", got, body)
			}

			refs, err := store.List(ctx, domain.SnapshotPrefix)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(refs) != 1 || refs[0].Key != "snapshots/a.json" {
				t.Errorf("List() = %+v", refs)
			}

			if err := store.Delete(ctx, "snapshots/a.json"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, "snapshots/a.json"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, "snapshots/a.json"); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Delete(deleted) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := newFileStore(t, "")
	ctx := context.Background()

	if _, err := store.Put(ctx, "../escape.json", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("Put(../) error = %v", err)
	}
	if _, err := store.Get(ctx, ""); !errors.Is(err, domain.ErrInvalidKey) {
		t.Errorf("Get(\"\") error = %v", err)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	store := newFileStore(t, "")
	ctx := context.Background()

	if _, err := domain.Latest(ctx, store); !errors.Is(err, domain.ErrEmpty) {
		t.Fatalf("Latest(empty) error = %v, want ErrEmpty", err)
	}

	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base.Add(time.Hour), base, base.Add(2 * time.Hour)} {
		if _, err := store.Put(ctx, domain.SnapshotKey(at), strings.NewReader("s")); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}
	if _, err := store.Put(ctx, "other/z.json", strings.NewReader("o")); err != nil {
		t.Fatalf("Put(other) error = %v", err)
	}

	ref, err := domain.Latest(ctx, store)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if want := domain.SnapshotKey(base.Add(2 * time.Hour)); ref.Key != want {
		t.Errorf("Latest() = %s, want %s", ref.Key, want)
	}
}

func TestStore_PropagatesClientErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("bucket unavailable")
	store, _ := archive.NewStore(failingClient{err: boom}, "")
	ctx := context.Background()

	if _, err := store.Put(ctx, "a.json", bytes.NewReader(nil)); !errors.Is(err, boom) {
		t.Errorf("Put() error = %v", err)
	}
	if _, err := store.Get(ctx, "a.json"); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v", err)
	}
	if _, err := store.List(ctx, ""); !errors.Is(err, boom) {
		t.Errorf("List() error = %v", err)
	}
}

type failingClient struct {
	err error
}

func (c failingClient) Upload(context.Context, string, io.Reader, int64) error { return c.err }
func (c failingClient) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, c.err
}
func (c failingClient) Delete(context.Context, string) error { return c.err }
func (c failingClient) List(context.Context, string) ([]archive.Object, error) {
	return nil, c.err
}

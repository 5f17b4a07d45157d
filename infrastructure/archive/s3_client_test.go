package archive_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	domain "github.com/legisflow/legisflow/domain/archive"
	"github.com/legisflow/legisflow/infrastructure/archive"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket := aws.ToString(in.Bucket) + "/"
	var keys []string
	for k := range f.objects {
		key := strings.TrimPrefix(k, bucket)
		if strings.HasPrefix(k, bucket) && strings.HasPrefix(key, aws.ToString(in.Prefix)) && key > aws.ToString(in.ContinuationToken) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	if len(keys) > 2 {
		keys = keys[:2]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[1])
	}
	now := time.Now()
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[bucket+k]))),
			LastModified: &now,
		})
	}
	return out, nil
}

func TestS3Client_ThroughStore(t *testing.T) {
	t.Parallel()

	client := archive.NewS3ClientFromAPI(newFakeS3(), "snapshots-bucket")
	store, err := archive.NewStore(client, "chamber")
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"snapshots/1.json", "snapshots/2.json", "snapshots/3.json", "other/x.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader(key)); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	refs, err := store.List(ctx, domain.SnapshotPrefix)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(refs) != 3 || refs[2].Key != "snapshots/3.json" {
		t.Fatalf("List() = %+v, want three snapshots across pages", refs)
	}

	r, err := store.Get(ctx, "snapshots/2.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := readAll(t, r); got != "snapshots/2.json" {
		t.Errorf("Get() = %q", got)
	}

	if _, err := store.Get(ctx, "snapshots/9.json"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

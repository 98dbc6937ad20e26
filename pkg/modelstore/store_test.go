package modelstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

// fakeS3 is an in-memory double for s3API, good enough to exercise the
// store's path scoping, multipart assembly and glob matching without a
// network call.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	parts   map[string]map[int32][]byte

	failUploadPart int32 // part number that fails, 0 = never
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: map[string][]byte{},
		parts:   map[string]map[int32][]byte{},
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &notFoundErr{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &notFoundErr{}
	}
	size := int64(len(data))
	return &s3.HeadObjectOutput{ContentLength: &size}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, k := range keys {
		key := k
		size := int64(len(f.objects[k]))
		out.Contents = append(out.Contents, types.Object{Key: &key, Size: &size})
		if in.MaxKeys != nil && int32(len(out.Contents)) >= *in.MaxKeys {
			break
		}
	}
	return out, nil
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("upload-%d", len(f.parts)+1)
	f.parts[id] = map[int32][]byte{}
	return &s3.CreateMultipartUploadOutput{UploadId: &id}, nil
}

func (f *fakeS3) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	if f.failUploadPart != 0 && *in.PartNumber == f.failUploadPart {
		return nil, fmt.Errorf("simulated part failure")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts[aws.ToString(in.UploadId)][*in.PartNumber] = data
	etag := fmt.Sprintf("etag-%d", *in.PartNumber)
	return &s3.UploadPartOutput{ETag: &etag}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	partsByNum := f.parts[aws.ToString(in.UploadId)]
	nums := make([]int32, 0, len(in.MultipartUpload.Parts))
	for _, p := range in.MultipartUpload.Parts {
		nums = append(nums, *p.PartNumber)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	var buf bytes.Buffer
	for _, n := range nums {
		buf.Write(partsByNum[n])
	}
	f.objects[aws.ToString(in.Key)] = buf.Bytes()
	delete(f.parts, aws.ToString(in.UploadId))
	return &s3.CompleteMultipartUploadOutput{}, nil
}

func (f *fakeS3) AbortMultipartUpload(_ context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.parts, aws.ToString(in.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

type notFoundErr struct{}

func (e *notFoundErr) Error() string { return "NotFound: key does not exist" }

func newTestStore() (*Store, *fakeS3) {
	fake := newFakeS3()
	return newFromClient(fake, "test-bucket", nil), fake
}

func TestSaveAndFileExists(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	ok, err := store.FileExists(ctx, "llama-7b/manifest.yml", false)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "llama-7b/manifest.yml", []byte("staged: true")))

	ok, err = store.FileExists(ctx, "llama-7b/manifest.yml", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileExistsPrefixMatch(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	ok, err := store.FileExists(ctx, "llama-7b/", true)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "llama-7b/weights.gguf", []byte("x")))

	ok, err = store.FileExists(ctx, "llama-7b/", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveStreamVerifiesDigest(t *testing.T) {
	store, fake := newTestStore()
	ctx := context.Background()

	payload := bytes.Repeat([]byte("a"), chunkSize+1024)
	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	var progressCalls int
	err := store.SaveStream(ctx, "llama-7b/weights.gguf", bytes.NewReader(payload), int64(len(payload)), digest, func(written, total int64) {
		progressCalls++
	})
	require.NoError(t, err)
	assert.Greater(t, progressCalls, 0)

	got := fake.objects[key("llama-7b/weights.gguf")]
	assert.Equal(t, payload, got)
}

func TestSaveStreamAbortsOnDigestMismatch(t *testing.T) {
	store, fake := newTestStore()
	ctx := context.Background()

	payload := []byte("some model bytes")
	err := store.SaveStream(ctx, "llama-7b/weights.gguf", bytes.NewReader(payload), int64(len(payload)), "0000deadbeef", nil)
	require.Error(t, err)
	assert.True(t, fleeterr.IsKind(err, fleeterr.DigestMismatch))

	_, exists := fake.objects[key("llama-7b/weights.gguf")]
	assert.False(t, exists)
}

func TestSaveStreamAbortsOnPartFailure(t *testing.T) {
	store, fake := newTestStore()
	fake.failUploadPart = 2
	ctx := context.Background()

	payload := bytes.Repeat([]byte("b"), chunkSize*2+10)
	err := store.SaveStream(ctx, "llama-7b/weights.gguf", bytes.NewReader(payload), int64(len(payload)), "", nil)
	require.Error(t, err)
	assert.True(t, fleeterr.IsKind(err, fleeterr.StoreUnavailable))
}

func TestDeleteMissingIsSuccess(t *testing.T) {
	store, _ := newTestStore()
	err := store.Delete(context.Background(), "llama-7b/does-not-exist")
	require.NoError(t, err)
}

func TestGlobMatchesBasenamePattern(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "llama-7b/weights.gguf", []byte("1")))
	require.NoError(t, store.Save(ctx, "llama-7b/config.json", []byte("2")))
	require.NoError(t, store.Save(ctx, "llama-7b/shard.0.gguf", []byte("3")))

	matches, err := store.Glob(ctx, "llama-7b", "*.gguf")
	require.NoError(t, err)
	sort.Strings(matches)
	assert.Equal(t, []string{"llama-7b/shard.0.gguf", "llama-7b/weights.gguf"}, matches)
}

func TestGlobScopedToDirectory(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "llama-7b/weights.gguf", []byte("1")))
	require.NoError(t, store.Save(ctx, "other-group/weights.gguf", []byte("2")))

	matches, err := store.Glob(ctx, "llama-7b", "*.gguf")
	require.NoError(t, err)
	assert.Equal(t, []string{"llama-7b/weights.gguf"}, matches)
}

// Package modelstore implements the blob layer that backs every staged
// model artifact. It exposes a narrow path-addressed contract over S3 —
// save, saveStream, fileExists, delete, glob — and scopes every call
// under a fixed "models/" prefix so callers never construct bucket keys
// themselves.
package modelstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
	"github.com/modelfleet/fleetctl/pkg/logging"
)

// rootPrefix is the fixed namespace every path is scoped under. Callers
// never see or construct bucket keys; they pass paths relative to this.
const rootPrefix = "models/"

// chunkSize is the multipart part size. Fixed at 8 MiB per part.
const chunkSize = 8 * 1024 * 1024

// maxConcurrentParts bounds how many UploadPart calls are in flight for
// a single saveStream at once.
const maxConcurrentParts = 20

// Config configures the S3-backed store.
type Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	ForcePathStyle bool
	AccessKeyID    string
	SecretKey      string
}

// s3API is the subset of the S3 client the store depends on. Declaring
// it lets tests substitute an in-memory double without hitting AWS.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// ProgressFunc is invoked during SaveStream each time a part is read and
// handed off for upload, and once more after the upload completes, with
// the cumulative bytes read so far and the total (0 if unknown).
type ProgressFunc func(written, total int64)

// Store is the content blob layer over S3. All paths are relative to
// rootPrefix; callers never see the bucket key directly.
type Store struct {
	client s3API
	bucket string
	logger logging.Interface
}

// New builds a Store from cfg, loading AWS credentials the way the rest
// of the cluster's workloads do: static keys if supplied, default chain
// otherwise.
func New(ctx context.Context, cfg Config, logger logging.Interface) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fleeterr.New(fleeterr.ConfigInvalid, "modelstore.New", fmt.Errorf("bucket is required")).WithField("bucket")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fleeterr.New(fleeterr.StoreUnavailable, "modelstore.New", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func newFromClient(client s3API, bucket string, logger logging.Interface) *Store {
	return &Store{client: client, bucket: bucket, logger: logger}
}

func key(p string) string {
	return rootPrefix + strings.TrimPrefix(p, "/")
}

// Save writes the full contents of data to path in one shot. Intended
// for small objects (manifests, config snapshots); large artifacts
// should use SaveStream.
func (s *Store) Save(ctx context.Context, p string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(p)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fleeterr.New(fleeterr.StoreUnavailable, "modelstore.Save", err)
	}
	return nil
}

// SaveStream copies src to path using chunked multipart upload, folding
// a streaming sha256 across every chunk as it is read. If expectedSha256
// is non-empty and the computed digest disagrees, the multipart upload
// is aborted, the partial object is removed, and a DigestMismatch error
// is returned — the store never leaves a half-written or corrupt blob
// behind for a caller to trip over later.
func (s *Store) SaveStream(ctx context.Context, p string, src io.Reader, totalSize int64, expectedSha256 string, progress func(written, total int64)) error {
	k := key(p)

	// correlationID ties every log line for this upload attempt together
	// (CreateMultipartUpload, each part, abort-on-failure) independent of
	// S3's own upload ID, which isn't known until CreateMultipartUpload
	// returns.
	correlationID := uuid.NewString()
	log := s.logger
	if log != nil {
		log = log.WithField("correlationID", correlationID).WithField("path", p)
	}

	create, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return fleeterr.New(fleeterr.StoreUnavailable, "modelstore.SaveStream", err)
	}
	uploadID := aws.ToString(create.UploadId)
	if log != nil {
		log.WithField("uploadID", uploadID).Debug("multipart upload started")
	}

	hasher := sha256.New()
	tee := io.TeeReader(src, hasher)

	parts, written, uploadErr := s.uploadParts(ctx, k, uploadID, tee, totalSize, progress)
	if uploadErr != nil {
		s.abort(ctx, log, k, uploadID)
		return fleeterr.New(fleeterr.StoreUnavailable, "modelstore.SaveStream", uploadErr)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	if expectedSha256 != "" && !strings.EqualFold(digest, expectedSha256) {
		s.abort(ctx, log, k, uploadID)
		return fleeterr.New(fleeterr.DigestMismatch, "modelstore.SaveStream",
			fmt.Errorf("computed sha256 %s does not match expected %s", digest, expectedSha256)).WithField(p)
	}

	if _, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(k),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	}); err != nil {
		s.abort(ctx, log, k, uploadID)
		return fleeterr.New(fleeterr.StoreUnavailable, "modelstore.SaveStream", err)
	}

	if log != nil {
		log.WithField("bytes", written).Debug("multipart upload completed")
	}
	if progress != nil {
		progress(written, totalSize)
	}
	return nil
}

// uploadParts reads src in chunkSize chunks and uploads them as parts,
// up to maxConcurrentParts in flight at once. It returns parts in
// ascending PartNumber order regardless of completion order.
func (s *Store) uploadParts(ctx context.Context, k, uploadID string, src io.Reader, totalSize int64, progress ProgressFunc) ([]types.CompletedPart, int64, error) {
	type result struct {
		part types.CompletedPart
		err  error
	}

	sem := make(chan struct{}, maxConcurrentParts)
	var inFlight []chan result
	var written int64
	partNumber := int32(0)

	for {
		buf := make([]byte, chunkSize)
		n, readErr := io.ReadFull(src, buf)
		if n == 0 {
			if readErr == io.EOF {
				break
			}
			if readErr != nil && readErr != io.ErrUnexpectedEOF {
				return nil, written, readErr
			}
			break
		}
		buf = buf[:n]
		partNumber++
		pn := partNumber
		written += int64(n)

		sem <- struct{}{}
		ch := make(chan result, 1)
		inFlight = append(inFlight, ch)
		go func(body []byte, num int32) {
			defer func() { <-sem }()
			resp, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:     aws.String(s.bucket),
				Key:        aws.String(k),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(num),
				Body:       bytes.NewReader(body),
			})
			if err != nil {
				ch <- result{err: err}
				return
			}
			ch <- result{part: types.CompletedPart{PartNumber: aws.Int32(num), ETag: resp.ETag}}
		}(buf, pn)

		if progress != nil {
			progress(written, totalSize)
		}

		if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, written, readErr
		}
	}

	parts := make([]types.CompletedPart, len(inFlight))
	for i, ch := range inFlight {
		r := <-ch
		if r.err != nil {
			return nil, written, r.err
		}
		parts[i] = r.part
	}
	return parts, written, nil
}

func (s *Store) abort(ctx context.Context, log logging.Interface, k, uploadID string) {
	if _, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(k),
		UploadId: aws.String(uploadID),
	}); err != nil && log != nil {
		log.WithError(err).Warn("abort multipart upload failed")
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	}); err != nil && log != nil {
		log.WithError(err).Warn("cleanup of partial object failed")
	}
}

// FileExists reports whether path exists. If prefixMatch is true, p is
// treated as a prefix and the check succeeds if any object under it
// exists. (The Stager's own "already staged" check uses Glob, not this.)
func (s *Store) FileExists(ctx context.Context, p string, prefixMatch bool) (bool, error) {
	if prefixMatch {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.bucket),
			Prefix:  aws.String(key(p)),
			MaxKeys: aws.Int32(1),
		})
		if err != nil {
			return false, fleeterr.New(fleeterr.StoreUnavailable, "modelstore.FileExists", err)
		}
		return len(out.Contents) > 0, nil
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(p)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fleeterr.New(fleeterr.StoreUnavailable, "modelstore.FileExists", err)
	}
	return true, nil
}

// Delete removes path. Deleting a path that does not exist is success,
// matching S3's own DeleteObject semantics.
func (s *Store) Delete(ctx context.Context, p string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(p)),
	})
	if err != nil {
		return fleeterr.New(fleeterr.StoreUnavailable, "modelstore.Delete", err)
	}
	return nil
}

// Glob lists every stored path whose basename matches pattern (a
// filepath.Match-style glob) under the given directory prefix. The
// prefix narrows the S3 listing; the glob match itself happens
// client-side against the basename, matching the runtime planner's need
// to find "*.gguf" within a group directory.
func (s *Store) Glob(ctx context.Context, dir, pattern string) ([]string, error) {
	prefix := key(strings.TrimSuffix(dir, "/") + "/")

	var matches []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fleeterr.New(fleeterr.StoreUnavailable, "modelstore.Glob", err)
		}
		for _, obj := range out.Contents {
			full := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(full, rootPrefix)
			base := path.Base(rel)
			ok, err := path.Match(pattern, base)
			if err != nil {
				return nil, fleeterr.New(fleeterr.ConfigInvalid, "modelstore.Glob", err).WithField("pattern")
			}
			if ok {
				matches = append(matches, rel)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return matches, nil
}

func isNotFound(err error) bool {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode() == 404
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}

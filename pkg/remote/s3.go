package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client the store calls. Uploads go through
// the multipart upload manager, which needs the calls of
// manager.UploadAPIClient.
type S3API interface {
	manager.UploadAPIClient
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

var _ S3API = (*s3.Client)(nil)

// maxDeleteBatch is the S3 limit on keys per DeleteObjects call
const maxDeleteBatch = 1000

const (
	// uploadPartSize bounds the memory one upload holds per part in flight
	uploadPartSize    = manager.MinUploadPartSize
	uploadConcurrency = 2
)

// S3Config configures an S3-compatible bucket
type S3Config struct {
	Bucket string
	// Prefix scopes the store to a key prefix inside the bucket
	Prefix   string
	Region   string
	Endpoint string
	// PathStyle is required by most self-hosted S3 implementations
	PathStyle bool
}

// S3Store maps the folder hierarchy onto keys. Folder IDs end in "/" and
// exist as zero-byte marker objects; file IDs are full keys.
type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	root     string
}

// NewS3Store builds a client from the default AWS credential chain
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client S3API, bucket, prefix string) *S3Store {
	root := strings.Trim(prefix, "/")
	if root != "" {
		root += "/"
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})
	return &S3Store{client: client, uploader: uploader, bucket: bucket, root: root}
}

// RootID returns the key prefix acting as the top folder
func (s *S3Store) RootID() string {
	return s.root
}

func isFolderKey(key string) bool {
	return key == "" || strings.HasSuffix(key, "/")
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// List returns the direct children of a folder prefix
func (s *S3Store) List(ctx context.Context, parentID string, q Query) ([]Object, error) {
	if !isFolderKey(parentID) {
		return nil, fmt.Errorf("list %s: not a folder", parentID)
	}

	var out []Object
	var token *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(parentID),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", parentID, err)
		}

		for _, cp := range resp.CommonPrefixes {
			id := aws.ToString(cp.Prefix)
			name := strings.TrimSuffix(strings.TrimPrefix(id, parentID), "/")
			if q.Name != "" && name != q.Name {
				continue
			}
			out = append(out, Object{ID: id, Name: name, MimeType: FolderMimeType, Parents: []string{parentID}})
		}
		if !q.FoldersOnly {
			for _, obj := range resp.Contents {
				key := aws.ToString(obj.Key)
				// The parent's own marker is listed under its prefix.
				if key == parentID || isFolderKey(key) {
					continue
				}
				name := strings.TrimPrefix(key, parentID)
				if q.Name != "" && name != q.Name {
					continue
				}
				out = append(out, Object{ID: key, Name: name, Parents: []string{parentID}, Size: aws.ToInt64(obj.Size)})
			}
		}

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

// Get streams an object's content
func (s *S3Store) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	if isFolderKey(id) {
		return nil, fmt.Errorf("get %s: %w", id, ErrIsFolder)
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return resp.Body, nil
}

// Put streams content to parentID/name. Bodies up to one part go out as a
// single PutObject, larger ones as a multipart upload, so at most a few
// parts are held in memory whatever the file size.
func (s *S3Store) Put(ctx context.Context, parentID, name string, r io.Reader, size int64) (Object, error) {
	key := parentID + name

	mtype, body, err := sniff(r)
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", key, err)
	}
	counted := &countingReader{r: body}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        counted,
		ContentType: aws.String(mtype),
	})
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", key, err)
	}
	return Object{ID: key, Name: name, MimeType: mtype, Parents: []string{parentID}, Size: counted.n}, nil
}

// Delete removes a key, or every key under a folder prefix
func (s *S3Store) Delete(ctx context.Context, id string) error {
	if id == s.root {
		return errors.New("refusing to delete the remote root")
	}
	if !isFolderKey(id) {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(id),
		})
		if err != nil && !isNoSuchKey(err) {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		return nil
	}

	keys, err := s.keysUnder(ctx, id)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
		resp, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		if len(resp.Errors) > 0 {
			e := resp.Errors[0]
			return fmt.Errorf("delete %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}
	return nil
}

func (s *S3Store) keysUnder(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range resp.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(resp.IsTruncated) {
			return keys, nil
		}
		token = resp.NextContinuationToken
	}
}

// CreateFolder writes a folder marker object
func (s *S3Store) CreateFolder(ctx context.Context, parentID, name string) (Object, error) {
	key := parentID + name + "/"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return Object{}, fmt.Errorf("create folder %s: %w", key, err)
	}
	return Object{ID: key, Name: name, MimeType: FolderMimeType, Parents: []string{parentID}}, nil
}

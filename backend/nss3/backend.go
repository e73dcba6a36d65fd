// Package nss3 provides a keyfs.Backend over a real S3-compatible object
// store using aws-sdk-go-v2. Entries are stored as zero-byte marker
// objects whose user metadata carries the entry state; bucket metadata
// maps onto bucket tagging. The delimiter conventions line up with S3's
// own, so directory-shaped keys are ordinary trailing-slash objects.
package nss3

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/keyfs/keyfs"
)

// sizeMetaKey carries the logical entry size, which is not the marker
// object's content length (always zero).
const sizeMetaKey = "keyfs-size"

type Backend struct {
	client *s3.Client
}

var _ keyfs.Backend = &Backend{}

func New(client *s3.Client) *Backend {
	return &Backend{client: client}
}

// NewFromConfig loads the ambient AWS configuration (environment,
// shared config files, instance roles) and returns a Backend over it.
func NewFromConfig(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (*Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	return New(s3.NewFromConfig(cfg)), nil
}

// WithStaticCredentials is a load option for NewFromConfig that pins
// fixed credentials, which is what most S3-compatible stores outside AWS
// expect.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) func(*awsconfig.LoadOptions) error {
	return awsconfig.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken))
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNotFound(err error) bool {
	switch apiErrorCode(err) {
	case "NotFound", "NoSuchKey":
		return true
	}
	return false
}

func isNoSuchBucket(err error) bool {
	return apiErrorCode(err) == "NoSuchBucket"
}

func (db *Backend) CreateBucket(ctx context.Context, name string) error {
	_, err := db.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(name),
	})
	switch apiErrorCode(err) {
	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return keyfs.ResourceError(keyfs.ErrBucketAlreadyExists, name)
	}
	return err
}

func (db *Backend) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := db.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if isNotFound(err) || isNoSuchBucket(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (db *Backend) DeleteBucket(ctx context.Context, name string) error {
	_, err := db.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(name),
	})
	switch apiErrorCode(err) {
	case "BucketNotEmpty":
		return keyfs.ResourceError(keyfs.ErrBucketNotEmpty, name)
	case "NoSuchBucket":
		return keyfs.ErrNoSuchBucket
	}
	return err
}

func (db *Backend) ListBuckets(ctx context.Context) ([]keyfs.BucketInfo, error) {
	out, err := db.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}
	var buckets []keyfs.BucketInfo
	for _, b := range out.Buckets {
		info := keyfs.BucketInfo{Name: aws.ToString(b.Name)}
		if b.CreationDate != nil {
			info.CreationDate = *b.CreationDate
		}
		buckets = append(buckets, info)
	}
	return buckets, nil
}

func (db *Backend) BucketMetadata(ctx context.Context, name string) (map[string]string, error) {
	out, err := db.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{
		Bucket: aws.String(name),
	})
	if apiErrorCode(err) == "NoSuchTagSet" {
		return map[string]string{}, nil
	} else if isNoSuchBucket(err) {
		return nil, keyfs.BucketNotFound(name)
	} else if err != nil {
		return nil, err
	}

	md := make(map[string]string, len(out.TagSet))
	for _, tag := range out.TagSet {
		md[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return md, nil
}

func (db *Backend) SetBucketMetadata(ctx context.Context, name string, md map[string]string) error {
	tags := make([]types.Tag, 0, len(md))
	for k, v := range md {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	_, err := db.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(name),
		Tagging: &types.Tagging{TagSet: tags},
	})
	if isNoSuchBucket(err) {
		return keyfs.BucketNotFound(name)
	}
	return err
}

func (db *Backend) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(db.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if isNoSuchBucket(err) {
			return nil, keyfs.BucketNotFound(bucket)
		} else if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (db *Backend) GetEntry(ctx context.Context, bucket, key string) (*keyfs.Entry, error) {
	out, err := db.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, keyfs.EntryNotFound(key)
	} else if isNoSuchBucket(err) {
		return nil, keyfs.BucketNotFound(bucket)
	} else if err != nil {
		return nil, err
	}

	entry := &keyfs.Entry{Key: key}
	if out.LastModified != nil {
		entry.LastModified = *out.LastModified
	}
	entry.Size = aws.ToInt64(out.ContentLength)

	if len(out.Metadata) > 0 {
		entry.Metadata = make(map[string]string, len(out.Metadata))
		for k, v := range out.Metadata {
			if k == sizeMetaKey {
				if size, err := strconv.ParseInt(v, 10, 64); err == nil {
					entry.Size = size
				}
				continue
			}
			entry.Metadata[k] = v
		}
		if len(entry.Metadata) == 0 {
			entry.Metadata = nil
		}
	}
	return entry, nil
}

func (db *Backend) PutEntry(ctx context.Context, bucket string, entry *keyfs.Entry) error {
	md := make(map[string]string, len(entry.Metadata)+1)
	for k, v := range entry.Metadata {
		md[k] = v
	}
	md[sizeMetaKey] = strconv.FormatInt(entry.Size, 10)

	_, err := db.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(entry.Key),
		Body:     bytes.NewReader(nil),
		Metadata: md,
	})
	if isNoSuchBucket(err) {
		return keyfs.BucketNotFound(bucket)
	}
	return err
}

func (db *Backend) DeleteEntry(ctx context.Context, bucket, key string) error {
	_, err := db.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if isNoSuchBucket(err) {
		return keyfs.BucketNotFound(bucket)
	}
	return err
}

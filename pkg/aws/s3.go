package aws

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3PutAPI is the subset of the S3 client used for uploads.
type S3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client creates a new S3 client from AWS config. Path style addressing is
// forced when a custom endpoint is in use so LocalStack buckets resolve.
func NewS3Client(cfg sdkaws.Config, usePathStyle bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
}

// S3Uploader stores public images and returns the URL clients should use to fetch them.
type S3Uploader struct {
	client    S3PutAPI
	bucket    string
	prefix    string
	endpoint  string
	cdnDomain string
}

func NewS3Uploader(client S3PutAPI, bucket, prefix, endpoint, cdnDomain string) *S3Uploader {
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		endpoint:  endpoint,
		cdnDomain: cdnDomain,
	}
}

// Upload writes body under a unique key derived from filename and returns the public URL.
func (u *S3Uploader) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error) {
	if u.bucket == "" {
		return "", fmt.Errorf("s3 bucket not configured")
	}

	key := u.prefix + PublicID(filename) + strings.ToLower(filepath.Ext(filename))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        sdkaws.String(u.bucket),
		Key:           sdkaws.String(key),
		Body:          body,
		ContentType:   sdkaws.String(contentType),
		ContentLength: sdkaws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return u.PublicURL(key), nil
}

// PublicURL resolves key against the CDN domain, the custom endpoint, or the bucket's S3 host.
func (u *S3Uploader) PublicURL(key string) string {
	switch {
	case u.cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(u.cdnDomain, "/"), key)
	case u.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.endpoint, "/"), u.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
	}
}

// PublicID builds a unique, URL safe object name from an uploaded file name:
// "Spider Man-01.PNG" becomes "spider_man_01_<32 hex chars>".
func PublicID(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if name == "" || name == "." {
		return id
	}
	return name + "_" + id
}

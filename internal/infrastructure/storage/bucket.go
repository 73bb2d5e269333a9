// Package storage keeps product pictures in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	catalogapp "github.com/grocery/backend/internal/application/catalog"
	infraconfig "github.com/grocery/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultEndpoint    = "http://localhost:9000"
	defaultRegion      = "us-east-1"
	defaultUploadLimit = 15 * time.Minute
)

var (
	errNoKey = errors.New("storage key is required")

	_ catalogapp.PictureStorage = (*PictureBucket)(nil)
)

// PictureBucket serves AWS S3, MinIO and RustFS alike. Clients upload
// straight to the bucket through presigned PUT URLs, the API never sees
// the bytes.
type PictureBucket struct {
	client    *s3.Client
	presign   *s3.PresignClient
	name      string
	endpoint  string
	publicURL string
	uploadTTL time.Duration
	log       *zap.Logger
}

// NewPictureBucket checks cfg and builds the S3 client. It does not
// contact the bucket, see Ensure.
func NewPictureBucket(ctx context.Context, cfg infraconfig.StorageConfig, log *zap.Logger) (*PictureBucket, error) {
	var missing []error
	for _, f := range []struct{ name, value string }{
		{"bucket", cfg.Bucket},
		{"access key", cfg.AccessKeyID},
		{"secret key", cfg.SecretAccessKey},
	} {
		if f.value == "" {
			missing = append(missing, fmt.Errorf("storage %s is required", f.name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	})

	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.UploadURLExpiry
	if ttl <= 0 {
		ttl = defaultUploadLimit
	}
	return &PictureBucket{
		client:    client,
		presign:   s3.NewPresignClient(client),
		name:      cfg.Bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		uploadTTL: ttl,
		log:       log,
	}, nil
}

// normalizeEndpoint defaults to a local MinIO and assumes https when the
// scheme is left out.
func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimRight(raw, "/")
	switch {
	case endpoint == "":
		return defaultEndpoint, nil
	case !strings.Contains(endpoint, "://"):
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid storage endpoint %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("storage endpoint %q must use http or https", raw)
	}
	return endpoint, nil
}

func (b *PictureBucket) Name() string {
	return b.name
}

// Ensure creates the bucket unless it already exists.
func (b *PictureBucket) Ensure(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.name)})
	if err == nil {
		return nil
	}
	if !isMissing(err) {
		return fmt.Errorf("check bucket %s: %w", b.name, err)
	}

	b.log.Info("Creating picture bucket", zap.String("bucket", b.name))
	_, err = b.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(b.name)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("create bucket %s: %w", b.name, err)
	}
	return nil
}

// GenerateUploadURL presigns a PUT of storageKey. A non-positive expiresIn
// uses the configured upload window.
func (b *PictureBucket) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errNoKey
	}
	if expiresIn <= 0 {
		expiresIn = b.uploadTTL
	}

	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(storageKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign upload of %s: %w", storageKey, err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// PublicURL prefers the configured public base, such as a CDN, over the
// bucket's own address.
func (b *PictureBucket) PublicURL(storageKey string) string {
	return b.bases()[0] + "/" + storageKey
}

func (b *PictureBucket) KeyFromURL(link string) (string, bool) {
	for _, base := range b.bases() {
		if key, ok := strings.CutPrefix(link, base+"/"); ok && key != "" {
			return key, true
		}
	}
	return "", false
}

func (b *PictureBucket) bases() []string {
	direct := b.endpoint + "/" + b.name
	if b.publicURL == "" {
		return []string{direct}
	}
	return []string{b.publicURL, direct}
}

func (b *PictureBucket) DeleteObject(ctx context.Context, storageKey string) error {
	if storageKey == "" {
		return errNoKey
	}
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", storageKey, err)
	}
	return nil
}

// ObjectExists reports whether a client has finished uploading storageKey.
func (b *PictureBucket) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errNoKey
	}
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(storageKey),
	})
	switch {
	case err == nil:
		return true, nil
	case isMissing(err):
		return false, nil
	default:
		return false, fmt.Errorf("look up %s: %w", storageKey, err)
	}
}

// isMissing recognises a 404 however the server words it. HEAD responses
// have no body, so MinIO and RustFS answers often carry no typed error.
func isMissing(err error) bool {
	var resp *awshttp.ResponseError
	if errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}

package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken = ""
	listPageSize         = 1000
)

// S3Config holds the media host credentials and addressing.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Endpoint targets an S3 compatible host instead of AWS.
	Endpoint string
	// PublicURL is the base of returned URLs; defaults to the bucket URL.
	PublicURL string
	MaxSize   int64
}

// S3Store uploads to an S3 bucket with public-read objects.
type S3Store struct {
	svc       *s3.S3
	bucket    string
	publicURL string
	maxSize   int64
}

// NewS3Store creates an S3 session from static credentials.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Store{
		svc:       s3.New(sess),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxSize:   cfg.MaxSize,
	}, nil
}

// Upload stores f under prefix and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, prefix string, f File) (string, error) {
	if err := Check(&f, s.maxSize); err != nil {
		return "", err
	}
	key := ObjectKey(prefix, f)
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(f.ContentType),
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", f.Name, err)
	}
	return s.publicURL + "/" + key, nil
}

// Delete removes the object behind a URL issued by Upload.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || key == "" {
		return ErrForeignURL
	}
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List returns every object under prefix, following continuation tokens.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(listPageSize),
	}
	err := s.svc.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			objects = append(objects, Object{
				Key:          key,
				URL:          s.publicURL + "/" + key,
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

// Package storage resolves a resource's delivery target into the URL
// handed to the buyer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

const scheme = "s3://"

var ErrNoObjectStore = errors.New("s3 target but no object store configured")

type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// Locator presigns s3:// targets and passes every other target through.
type Locator struct {
	presign       *s3.PresignClient
	defaultBucket string
	ttl           time.Duration
}

var _ core.Locator = (*Locator)(nil)

// NewLocator builds a Locator. With an empty Region no object store is
// configured and only direct targets resolve.
func NewLocator(ctx context.Context, opts S3Options) (*Locator, error) {
	l := &Locator{defaultBucket: opts.Bucket, ttl: opts.PresignTTL}
	if opts.Region == "" {
		return l, nil
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	l.presign = s3.NewPresignClient(client)
	if l.ttl <= 0 {
		l.ttl = 5 * time.Minute
	}
	return l, nil
}

func (l *Locator) Locate(ctx context.Context, r core.ResourceRecord) (string, error) {
	if !strings.HasPrefix(r.DeliveryTarget, scheme) {
		return r.DeliveryTarget, nil
	}
	if l.presign == nil {
		return "", ErrNoObjectStore
	}
	bucket, key, err := l.split(r.DeliveryTarget)
	if err != nil {
		return "", err
	}
	req, err := l.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(l.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", r.ResourceID, err)
	}
	return req.URL, nil
}

// split accepts s3://bucket/key and, when a default bucket is set,
// s3:///key.
func (l *Locator) split(target string) (string, string, error) {
	rest := strings.TrimPrefix(target, scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if bucket == "" {
		bucket = l.defaultBucket
	}
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 target %q", target)
	}
	return bucket, key, nil
}

// Package blobs issues presigned S3 URLs so clients stream files to the
// object store directly.
package blobs

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Config addresses an S3-compatible bucket.
type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	Expiry       time.Duration
}

// S3Presigner presigns PUT and GET requests for object keys in one bucket.
type S3Presigner struct {
	cfg Config

	mu     sync.Mutex
	client *s3.PresignClient
}

func NewS3Presigner(cfg Config) *S3Presigner {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 15 * time.Minute
	}
	return &S3Presigner{cfg: cfg}
}

func (p *S3Presigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.cfg.AccessKey,
			p.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if p.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	p.client = newS3PresignClient(client)
	return p.client, nil
}

// ValidateKey rejects empty, absolute and parent-relative object keys.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("%w: bad object key %q", common.ErrInvalidInput, key)
	}
	return nil
}

// PresignPut returns a PUT request for key. The returned headers were signed
// into the URL and must be sent unchanged.
func (p *S3Presigner) PresignPut(ctx context.Context, key string, metadata map[string]string) (*syncpb.PresignResponse, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	pc, err := p.presignClient(ctx)
	if err != nil {
		return nil, err
	}

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:   aws.String(p.cfg.Bucket),
		Key:      aws.String(key),
		Metadata: metadata,
	}, s3.WithPresignExpires(p.cfg.Expiry))
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for k, vs := range req.SignedHeader {
		if strings.EqualFold(k, "Host") || len(vs) == 0 {
			continue
		}
		headers[http.CanonicalHeaderKey(k)] = vs[0]
	}
	return &syncpb.PresignResponse{URL: req.URL, Method: req.Method, Headers: headers}, nil
}

// PresignGet returns a retrieval URL for key.
func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	pc, err := p.presignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.cfg.Expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

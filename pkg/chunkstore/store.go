package chunkstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config configures the S3-compatible bucket the manifest and pre-chunked
// artifacts live in (DigitalOcean Spaces, exactly as the teacher's own
// client targets it).
type Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string
	Region    string
	Bucket    string
}

// ManifestEntry describes one pre-chunked document listed in a manifest.
type ManifestEntry struct {
	DocID      string `json:"docId"`
	Key        string `json:"key"`
	ChunkCount int    `json:"chunkCount"`
}

// Store fetches chunk manifests and chunk payloads from object storage.
type Store struct {
	client *s3.Client
	bucket string
}

// New builds a Store against a DigitalOcean-Spaces-compatible endpoint.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("chunkstore: bucket is required")
	}
	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	httpClient := &http.Client{Timeout: 15 * time.Second}
	awsCfg, err := awsconfig.LoadDefaultConfig(loadCtx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: cfg.Endpoint, SigningRegion: cfg.Region, HostnameImmutable: true}, nil
			})),
		awsconfig.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// LoadManifest fetches and decodes the manifest at key.
func (s *Store) LoadManifest(ctx context.Context, key string) ([]ManifestEntry, error) {
	raw, err := s.getObject(ctx, key)
	if err != nil {
		return nil, err
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("chunkstore: decode manifest %s: %w", key, err)
	}
	return entries, nil
}

// LoadChunks fetches and decodes the pre-chunked artifact at key.
func (s *Store) LoadChunks(ctx context.Context, key string) ([]Chunk, error) {
	raw, err := s.getObject(ctx, key)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("chunkstore: decode chunks %s: %w", key, err)
	}
	return chunks, nil
}

func (s *Store) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("chunkstore: get object %s: %w", key, err)
	}
	defer out.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("chunkstore: read object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// ListManifestKeys lists every object under prefix, for discovering new
// manifests dropped by the offline indexing collaborator.
func (s *Store) ListManifestKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("chunkstore: list %s: %w", prefix, err)
	}
	for _, obj := range out.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

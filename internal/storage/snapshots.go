package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotStore keeps exported configs in an S3-compatible bucket so
// snapshots survive the machine the tool ran on. Object keys are
// "<guild_id>/<uuid>.json".
type SnapshotStore struct {
	client *minio.Client
	bucket string
}

// NewSnapshotStore creates a store and ensures the bucket exists.
func NewSnapshotStore(endpoint, accessKey, secretKey, bucket string) (*SnapshotStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &SnapshotStore{client: client, bucket: bucket}, nil
}

// Put uploads a snapshot for the guild and returns its object key.
func (s *SnapshotStore) Put(ctx context.Context, guildID int64, data []byte) (string, error) {
	key := fmt.Sprintf("%d/%s.json", guildID, uuid.New())
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

// Get downloads a snapshot by object key.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("minio read %s: %w", key, err)
	}
	return data, nil
}

// List returns the guild's snapshot keys, most recent last.
func (s *SnapshotStore) List(ctx context.Context, guildID int64) ([]string, error) {
	prefix := fmt.Sprintf("%d/", guildID)
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio list %s: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

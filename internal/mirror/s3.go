package mirror

import (
	"context"
	"errors"

	"github.com/kuitang/wordfeed/internal/s3client"
)

// S3Blob stores the snapshot as one object.
type S3Blob struct {
	client *s3client.Client
}

// NewS3 returns a Mirror stored at <prefix>words.json in the client's bucket.
func NewS3(client *s3client.Client) *Store {
	return New(&S3Blob{client: client})
}

func (s *S3Blob) name() string { return Key + ".json" }

func (s *S3Blob) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.GetObject(ctx, s.name())
	if errors.Is(err, s3client.ErrObjectNotFound) {
		return nil, ErrNoSnapshot
	}
	return data, err
}

func (s *S3Blob) Put(ctx context.Context, data []byte) error {
	return s.client.PutObject(ctx, s.name(), data, "application/json")
}

func (s *S3Blob) Close() error { return nil }
func (s *S3Blob) String() string {
	return "s3://" + s.client.BucketName() + "/" + s.client.Key(s.name())
}

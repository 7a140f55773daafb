package mirror

import (
	"context"
	"fmt"

	"github.com/kuitang/wordfeed/internal/config"
	"github.com/kuitang/wordfeed/internal/crypto"
	"github.com/kuitang/wordfeed/internal/s3client"
)

// Open builds the Mirror selected by cfg.Backend.
func Open(ctx context.Context, cfg config.MirrorConfig) (*Store, error) {
	switch cfg.Backend {
	case config.MirrorFile:
		return NewFile(cfg.Path)
	case config.MirrorSQLite:
		key, err := crypto.KeyFromConfig(cfg.Secret, crypto.ScopeMirror)
		if err != nil {
			return nil, fmt.Errorf("failed to derive mirror key: %w", err)
		}
		return NewSQLite(cfg.Path, key)
	case config.MirrorBolt:
		return NewBolt(cfg.Path)
	case config.MirrorRedis:
		return NewRedis(ctx, cfg.RedisURL, "wordfeed")
	case config.MirrorS3:
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			BucketName:      cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return NewS3(client), nil
	case config.MirrorMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown mirror backend %q", cfg.Backend)
	}
}

package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("mirror")

// BoltBlob stores the snapshot in a bbolt bucket.
type BoltBlob struct {
	db *bolt.DB
}

// NewBolt opens (or creates) a bbolt mirror at path.
func NewBolt(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	bdb, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt mirror %s: %w", path, err)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("failed to create mirror bucket: %w", err)
	}
	return New(&BoltBlob{db: bdb}), nil
}

func (b *BoltBlob) Get(context.Context) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(Key))
		if v == nil {
			return ErrNoSnapshot
		}
		// Values are only valid for the life of the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

func (b *BoltBlob) Put(_ context.Context, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(Key), data)
	})
}

func (b *BoltBlob) Close() error   { return b.db.Close() }
func (b *BoltBlob) String() string { return "bolt:" + b.db.Path() }

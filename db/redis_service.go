package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// DefaultDataKey is the single key holding the persisted document.
const DefaultDataKey = "quan_ly_hoc_them_data"

// RedisBlobStore keeps the document as one string value under a fixed key.
type RedisBlobStore struct {
	Client *redis.Client
	Key    string
}

var _ BlobStore = (*RedisBlobStore)(nil)

// NewRedisBlobStore creates a RedisBlobStore, defaulting the key when empty.
func NewRedisBlobStore(client *redis.Client, key string) *RedisBlobStore {
	if key == "" {
		key = DefaultDataKey
	}
	return &RedisBlobStore{Client: client, Key: key}
}

// Load returns the stored blob, or ErrNoBlob when the key does not exist.
func (s *RedisBlobStore) Load(ctx context.Context) ([]byte, error) {
	b, err := s.Client.Get(ctx, s.Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoBlob
		}
		log.Printf("Error getting document %s: %v", s.Key, err)
		return nil, fmt.Errorf("failed to get document from Redis: %w", err)
	}
	return b, nil
}

// Save overwrites the blob.
func (s *RedisBlobStore) Save(ctx context.Context, blob []byte) error {
	if err := s.Client.Set(ctx, s.Key, blob, 0).Err(); err != nil {
		log.Printf("Error saving document %s: %v", s.Key, err)
		return fmt.Errorf("failed to save document to Redis: %w", err)
	}
	return nil
}

// RedisOptions configures InitializeRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// InitializeRedisClient creates and tests a Redis client connection.
func InitializeRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", opts.Addr, err)
	}

	log.Printf("Successfully connected to Redis %s DB %d", opts.Addr, opts.DB)
	return rdb, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "session:nonce:"

// NonceRepository stores single-use wallet sign-in challenges in Redis.
type NonceRepository struct {
	client *redis.Client
}

// NewNonceRepository constructs the repository.
func NewNonceRepository(client *redis.Client) *NonceRepository {
	return &NonceRepository{client: client}
}

// Put stores the challenge message for address, replacing any previous one.
func (r *NonceRepository) Put(ctx context.Context, address, message string, ttl time.Duration) error {
	if err := r.client.Set(ctx, nonceKey(address), message, ttl).Err(); err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	return nil
}

// Consume returns and deletes the pending challenge of address. ok is false when none is pending.
func (r *NonceRepository) Consume(ctx context.Context, address string) (string, bool, error) {
	message, err := r.client.GetDel(ctx, nonceKey(address)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume nonce: %w", err)
	}
	return message, true, nil
}

func nonceKey(address string) string {
	return noncePrefix + strings.ToLower(address)
}

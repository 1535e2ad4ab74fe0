package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CartRepository is the cart collaborator: one JSON blob per user in Redis
// with a TTL. Checkout reads it and clears it wholesale; it never edits
// individual lines.
type CartRepository interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	DeleteCart(ctx context.Context, userID uuid.UUID) error
}

// RedisCartRepository implements CartRepository on a Redis client.
type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartRepository creates a new RedisCartRepository.
func NewRedisCartRepository(client *redis.Client, ttl time.Duration) CartRepository {
	return &RedisCartRepository{client: client, ttl: ttl}
}

func (r *RedisCartRepository) key(userID uuid.UUID) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// GetCart returns nil, nil when the user has no cart.
func (r *RedisCartRepository) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *RedisCartRepository) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(cart.UserID), data, r.ttl).Err()
}

func (r *RedisCartRepository) DeleteCart(ctx context.Context, userID uuid.UUID) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/grocery/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const revocationPrefix = "grocery:revoked:"

func jtiKey(jti string) string     { return revocationPrefix + "jti:" + jti }
func userKey(userID string) string { return revocationPrefix + "user:" + userID }

// NewRedisClient connects to the configured Redis and pings it.
// The client is shared by the token blacklist and the product lookup cache.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// RedisTokenBlacklist shares revocations between API instances.
// Keys expire with the tokens they reject.
type RedisTokenBlacklist struct {
	client *redis.Client
}

// NewRedisTokenBlacklist stores revocations through client
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

// RevokeToken implements TokenBlacklist
func (b *RedisTokenBlacklist) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, jtiKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked implements TokenBlacklist
func (b *RedisTokenBlacklist) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// RevokeUserTokens implements TokenBlacklist
func (b *RedisTokenBlacklist) RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error {
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := b.client.Set(ctx, userKey(userID), now, ttl).Err(); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// IsUserTokenRevoked implements TokenBlacklist
func (b *RedisTokenBlacklist) IsUserTokenRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	revokedAt, err := b.client.Get(ctx, userKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user revocation: %w", err)
	}
	return revokedBefore(issuedAt, revokedAt), nil
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

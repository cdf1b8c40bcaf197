package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * SetRefreshToken перезаписывает единственный слот refresh токена пользователя.
// Предыдущий токен после этого перестает проходить сверку.
func (r *RedisRepo) SetRefreshToken(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	const op = "storage.redis.SetRefreshToken"

	key := refreshKey(userID)

	if err := r.client.Set(ctx, key, token, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * RefreshToken возвращает текущий refresh токен пользователя.
func (r *RedisRepo) RefreshToken(ctx context.Context, userID int64) (string, error) {
	const op = "storage.redis.RefreshToken"

	token, err := r.client.Get(ctx, refreshKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrRefreshTokenNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func refreshKey(userID int64) string {
	return fmt.Sprintf("refresh:%d", userID)
}

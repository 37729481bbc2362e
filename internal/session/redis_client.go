package session

import (
	"context"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"
)

// RedisOptions describes how to reach the redis session backend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// DialRedis builds a pooled redis client and verifies the connection.
func DialRedis(ctx context.Context, opts RedisOptions) (*red.Client, error) {
	client := red.NewClient(&red.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

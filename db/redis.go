package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"hackernews/config"
)

// NewRedis 创建客户端并做一次连接测试
func NewRedis(ctx context.Context, redisConfig config.RedisConf) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port)
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: redisConfig.PassWord,
		DB:       redisConfig.DB,
		PoolSize: redisConfig.PoolSize,
	})

	// 连接测试以确保与 Redis 服务器的通信正常。
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, errors.Wrapf(err, "connect to redis %s", addr)
	}
	return cli, nil
}

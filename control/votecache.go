package control

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	voteCountKey     = "hackernews:link:votes:%d"
	voteCountLockKey = "hackernews:link:votes:lock:%d"
	fillLockTTL      = 50 * time.Millisecond
	fillRetries      = 3
)

// VoteCounter 链接票数读取，投票或删除后调用 Invalidate
type VoteCounter interface {
	VoteCount(ctx context.Context, linkID uint) (int, error)
	Invalidate(ctx context.Context, linkID uint) error
}

// StoreVoteCounter 不使用缓存，直接计数
type StoreVoteCounter struct {
	store LinkStore
}

func NewStoreVoteCounter(store LinkStore) *StoreVoteCounter {
	return &StoreVoteCounter{store: store}
}

func (c *StoreVoteCounter) VoteCount(ctx context.Context, linkID uint) (int, error) {
	return c.store.CountVotes(ctx, linkID)
}

func (c *StoreVoteCounter) Invalidate(context.Context, uint) error { return nil }

// RedisVoteCounter 票数缓存：未命中时只有拿到 SetNX 锁的请求回源，其余请求稍后重读缓存
type RedisVoteCounter struct {
	cli   *redis.Client
	store LinkStore
	ttl   time.Duration
}

func NewRedisVoteCounter(cli *redis.Client, store LinkStore, ttl time.Duration) *RedisVoteCounter {
	return &RedisVoteCounter{cli: cli, store: store, ttl: ttl}
}

func (c *RedisVoteCounter) VoteCount(ctx context.Context, linkID uint) (int, error) {
	key := fmt.Sprintf(voteCountKey, linkID)
	votes, err := c.get(ctx, key)
	if err == nil {
		return votes, nil
	}
	if err != redis.Nil {
		// 缓存不可用时直接回源
		log.WithError(err).Warnf("read vote count cache for link %d", linkID)
		return c.store.CountVotes(ctx, linkID)
	}

	lockKey := fmt.Sprintf(voteCountLockKey, linkID)
	for i := 0; i < fillRetries; i++ {
		locked, err := c.cli.SetNX(ctx, lockKey, "1", fillLockTTL).Result()
		if err != nil {
			return c.store.CountVotes(ctx, linkID)
		}
		if locked {
			defer c.cli.Del(ctx, lockKey) // 确保释放锁
			return c.fill(ctx, key, linkID)
		}
		// 没有获取到锁，等待持有者回填
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
		if votes, err := c.get(ctx, key); err == nil {
			return votes, nil
		}
	}
	return c.store.CountVotes(ctx, linkID)
}

func (c *RedisVoteCounter) get(ctx context.Context, key string) (int, error) {
	s, err := c.cli.Get(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func (c *RedisVoteCounter) fill(ctx context.Context, key string, linkID uint) (int, error) {
	votes, err := c.store.CountVotes(ctx, linkID)
	if err != nil {
		return 0, err
	}
	if err := c.cli.Set(ctx, key, votes, c.ttl).Err(); err != nil {
		log.WithError(err).Warnf("write vote count cache for link %d", linkID)
	}
	return votes, nil
}

// Invalidate 立即删除缓存，并在 fillLockTTL 后再删一次，
// 清掉删除前已开始计数、删除后才写入的旧值
func (c *RedisVoteCounter) Invalidate(ctx context.Context, linkID uint) error {
	key := fmt.Sprintf(voteCountKey, linkID)
	if err := c.cli.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "invalidate vote count of link %d", linkID)
	}
	time.AfterFunc(fillLockTTL, func() {
		if err := c.cli.Del(context.Background(), key).Err(); err != nil {
			log.WithError(err).Warnf("second invalidate of link %d", linkID)
		}
	})
	return nil
}

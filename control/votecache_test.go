package control

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore 记录回源次数
type countingStore struct {
	Store
	mu    sync.Mutex
	calls int
}

func (c *countingStore) CountVotes(ctx context.Context, linkID uint) (int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Store.CountVotes(ctx, linkID)
}

func (c *countingStore) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newRedisCounter(t *testing.T) (*RedisVoteCounter, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	store := &countingStore{Store: NewMemoryStore()}
	return NewRedisVoteCounter(cli, store, time.Minute), store, mr
}

func TestRedisVoteCountCacheAside(t *testing.T) {
	counter, store, mr := newRedisCounter(t)
	ctx := context.Background()
	alice := mustUser(t, store, "alice@example.com")
	l := mustLink(t, store, "d", "u", alice)
	require.NoError(t, store.AddVote(ctx, l.ID, alice.ID))

	for i := 0; i < 10; i++ {
		votes, err := counter.VoteCount(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, votes)
	}
	assert.Equal(t, 1, store.Calls(), "only the first read hits the store")

	cached, err := mr.Get(fmt.Sprintf(voteCountKey, l.ID))
	require.NoError(t, err)
	assert.Equal(t, "1", cached)
	assert.Equal(t, time.Minute, mr.TTL(fmt.Sprintf(voteCountKey, l.ID)))

	bob := mustUser(t, store, "bob@example.com")
	require.NoError(t, store.AddVote(ctx, l.ID, bob.ID))
	require.NoError(t, counter.Invalidate(ctx, l.ID))

	votes, err := counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, votes)
	assert.Equal(t, 2, store.Calls())
}

func TestRedisVoteCountInvalidateDropsLateFill(t *testing.T) {
	counter, store, mr := newRedisCounter(t)
	ctx := context.Background()
	alice := mustUser(t, store, "alice@example.com")
	l := mustLink(t, store, "d", "u", alice)
	key := fmt.Sprintf(voteCountKey, l.ID)

	require.NoError(t, store.AddVote(ctx, l.ID, alice.ID))
	require.NoError(t, counter.Invalidate(ctx, l.ID))
	// 投票前开始计数的回填在第一次删除之后才写入
	require.NoError(t, mr.Set(key, "0"))

	require.Eventually(t, func() bool { return !mr.Exists(key) }, time.Second, 5*time.Millisecond)
	votes, err := counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)
}

func TestRedisVoteCountExpires(t *testing.T) {
	counter, store, mr := newRedisCounter(t)
	ctx := context.Background()
	l := mustLink(t, store, "d", "u", nil)

	_, err := counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls())
}

func TestRedisVoteCountFallsBackWhenRedisDown(t *testing.T) {
	counter, store, mr := newRedisCounter(t)
	ctx := context.Background()
	alice := mustUser(t, store, "alice@example.com")
	l := mustLink(t, store, "d", "u", alice)
	require.NoError(t, store.AddVote(ctx, l.ID, alice.ID))

	mr.Close()
	votes, err := counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)
}

func TestRedisVoteCountWaitsForFill(t *testing.T) {
	counter, store, mr := newRedisCounter(t)
	ctx := context.Background()
	l := mustLink(t, store, "d", "u", nil)

	// 其它实例持有回填锁并写入了缓存
	require.NoError(t, mr.Set(fmt.Sprintf(voteCountLockKey, l.ID), "1"))
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = mr.Set(fmt.Sprintf(voteCountKey, l.ID), "7")
	}()

	votes, err := counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, votes)
	assert.Zero(t, store.Calls())
}

func TestStoreVoteCounter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	alice := mustUser(t, store, "alice@example.com")
	l := mustLink(t, store, "d", "u", alice)
	require.NoError(t, store.AddVote(ctx, l.ID, alice.ID))

	counter := NewStoreVoteCounter(store)
	votes, err := counter.VoteCount(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)
	assert.NoError(t, counter.Invalidate(ctx, l.ID))
}

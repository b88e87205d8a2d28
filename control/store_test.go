package control

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hackernews/model"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "hn.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(&model.User{}, &model.Link{}))
	return NewGormStore(gdb)
}

// 两种实现运行同一组行为测试
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, s Store, email string) *model.User {
	t.Helper()
	u := &model.User{Name: email, Email: email, Password: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

func mustLink(t *testing.T, s Store, description, url string, poster *model.User) *model.Link {
	t.Helper()
	l := &model.Link{Description: description, URL: url}
	if poster != nil {
		l.PostedByID = &poster.ID
	}
	require.NoError(t, s.CreateLink(context.Background(), l))
	require.NotZero(t, l.ID)
	return l
}

func TestCreateAndGetLink(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustUser(t, s, "alice@example.com")
		created := mustLink(t, s, "GraphQL official website", "graphql.org", alice)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.GetLink(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "GraphQL official website", got.Description)
		assert.Equal(t, "graphql.org", got.URL)
		require.NotNil(t, got.PostedByID)
		assert.Equal(t, alice.ID, *got.PostedByID)

		second := mustLink(t, s, "Go", "go.dev", nil)
		assert.Greater(t, second.ID, created.ID)
		assert.Nil(t, second.PostedByID)

		_, err = s.GetLink(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFeedFilter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustLink(t, s, "GraphQL official website", "https://graphql.org", nil)
		b := mustLink(t, s, "Go language", "https://go.dev", nil)
		c := mustLink(t, s, "Tutorial", "https://www.howtographql.com", nil)
		d := mustLink(t, s, "100% coverage_guide", "https://example.com/a_b", nil)

		all, err := s.FeedLinks(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, b.ID, c.ID, d.ID}, ids(all))

		got, err := s.FeedLinks(ctx, "graphql")
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, c.ID}, ids(got), "matches description or url")

		got, err = s.FeedLinks(ctx, "GRAPHQL")
		require.NoError(t, err)
		assert.Equal(t, []uint{a.ID, c.ID}, ids(got), "case-insensitive")

		got, err = s.FeedLinks(ctx, "%")
		require.NoError(t, err)
		assert.Equal(t, []uint{d.ID}, ids(got), "percent is literal")

		got, err = s.FeedLinks(ctx, "a_b")
		require.NoError(t, err)
		assert.Equal(t, []uint{d.ID}, ids(got), "underscore is literal")

		got, err = s.FeedLinks(ctx, "nothing-like-this")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)

		// 只忽略 ASCII 大小写
		e := mustLink(t, s, "ÉCOLE guide", "https://example.fr", nil)
		got, err = s.FeedLinks(ctx, "ÉCOLE GUIDE")
		require.NoError(t, err)
		assert.Equal(t, []uint{e.ID}, ids(got))

		got, err = s.FeedLinks(ctx, "École")
		require.NoError(t, err)
		assert.Equal(t, []uint{e.ID}, ids(got))

		got, err = s.FeedLinks(ctx, "école")
		require.NoError(t, err)
		assert.Empty(t, got, "non-ASCII letters are compared as-is")
	})
}

func ids(links []model.Link) []uint {
	out := make([]uint, 0, len(links))
	for _, l := range links {
		out = append(out, l.ID)
	}
	return out
}

func TestUpdateLinkPartial(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		l := mustLink(t, s, "old description", "old.url", nil)

		got, err := s.UpdateLink(ctx, l.ID, model.LinkPatch{Description: strPtr("new description")})
		require.NoError(t, err)
		assert.Equal(t, "new description", got.Description)
		assert.Equal(t, "old.url", got.URL)

		// 同一个部分更新执行两次结果不变
		again, err := s.UpdateLink(ctx, l.ID, model.LinkPatch{Description: strPtr("new description")})
		require.NoError(t, err)
		assert.Equal(t, got.Description, again.Description)
		assert.Equal(t, got.URL, again.URL)

		got, err = s.UpdateLink(ctx, l.ID, model.LinkPatch{URL: strPtr("new.url")})
		require.NoError(t, err)
		assert.Equal(t, "new description", got.Description)
		assert.Equal(t, "new.url", got.URL)

		got, err = s.UpdateLink(ctx, l.ID, model.LinkPatch{})
		require.NoError(t, err)
		assert.Equal(t, "new.url", got.URL)

		stored, err := s.GetLink(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, "new description", stored.Description)
		assert.Equal(t, "new.url", stored.URL)

		_, err = s.UpdateLink(ctx, 9999, model.LinkPatch{URL: strPtr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteLink(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustUser(t, s, "alice@example.com")
		l := mustLink(t, s, "to delete", "delete.me", alice)
		require.NoError(t, s.AddVote(ctx, l.ID, alice.ID))

		deleted, err := s.DeleteLink(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, "to delete", deleted.Description)
		assert.Equal(t, "delete.me", deleted.URL)

		_, err = s.GetLink(ctx, l.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		count, err := s.CountVotes(ctx, l.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = s.DeleteLink(ctx, l.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestVotes(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustUser(t, s, "alice@example.com")
		bob := mustUser(t, s, "bob@example.com")
		l := mustLink(t, s, "votable", "vote.me", alice)

		require.NoError(t, s.AddVote(ctx, l.ID, bob.ID))
		require.NoError(t, s.AddVote(ctx, l.ID, alice.ID))
		assert.ErrorIs(t, s.AddVote(ctx, l.ID, bob.ID), ErrAlreadyVoted)
		assert.ErrorIs(t, s.AddVote(ctx, 9999, bob.ID), ErrNotFound)
		assert.ErrorIs(t, s.AddVote(ctx, l.ID, 9999), ErrNotFound)

		voters, err := s.Voters(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, voters, 2)
		assert.Equal(t, alice.ID, voters[0].ID)
		assert.Equal(t, bob.ID, voters[1].ID)

		count, err := s.CountVotes(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestConcurrentDuplicateVote(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustUser(t, s, "alice@example.com")
		l := mustLink(t, s, "votable", "vote.me", alice)

		const n = 8
		results := make(chan error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- s.AddVote(ctx, l.ID, alice.ID)
			}()
		}
		wg.Wait()
		close(results)

		var ok, dup int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrAlreadyVoted):
				dup++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, dup)

		count, err := s.CountVotes(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestUsers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustUser(t, s, "Alice@Example.com")
		assert.Equal(t, "alice@example.com", alice.Email)

		err := s.CreateUser(ctx, &model.User{Name: "dup", Email: "ALICE@example.com", Password: "x"})
		assert.ErrorIs(t, err, ErrDuplicate)

		got, err := s.GetUserByEmail(ctx, " alice@EXAMPLE.com ")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		got, err = s.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)

		_, err = s.GetUser(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		mustLink(t, s, "a", "a.com", alice)
		mustLink(t, s, "b", "b.com", nil)
		mustLink(t, s, "c", "c.com", alice)
		links, err := s.LinksPostedBy(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, links, 2)
	})
}

func TestMemoryStoreConcurrentCreate(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	n := 100
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.CreateLink(context.Background(), &model.Link{Description: "d", URL: "u"}))
		}()
	}
	wg.Wait()

	links, err := s.FeedLinks(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, links, n)
	seen := make(map[uint]bool, n)
	for _, l := range links {
		assert.False(t, seen[l.ID], "duplicate id %d", l.ID)
		seen[l.ID] = true
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	l := &model.Link{Description: "original", URL: "u"}
	require.NoError(t, s.CreateLink(context.Background(), l))
	l.Description = "mutated by caller"

	got, err := s.GetLink(context.Background(), l.ID)
	require.NoError(t, err)
	got.URL = "mutated again"

	stored, err := s.GetLink(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Description)
	assert.Equal(t, "u", stored.URL)
}

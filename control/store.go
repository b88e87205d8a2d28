// Package control 数据访问层：链接、用户与投票的读写。
// SQL 实现基于 gorm，内存实现用于开发与测试，两者行为一致。
package control

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"hackernews/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrAlreadyVoted = errors.New("user already voted for link")
)

// LinkStore 链接与投票
type LinkStore interface {
	// FeedLinks filter 为空返回全部链接，否则返回 description 或 url 包含 filter 的链接，按 id 升序。
	// 只忽略 ASCII 字母的大小写，与 sqlite 的 LOWER() 一致。
	FeedLinks(ctx context.Context, filter string) ([]model.Link, error)
	GetLink(ctx context.Context, id uint) (*model.Link, error)
	CreateLink(ctx context.Context, link *model.Link) error
	UpdateLink(ctx context.Context, id uint, patch model.LinkPatch) (*model.Link, error)
	// DeleteLink 删除链接及其投票，返回删除前的状态
	DeleteLink(ctx context.Context, id uint) (*model.Link, error)
	LinksPostedBy(ctx context.Context, userID uint) ([]model.Link, error)

	AddVote(ctx context.Context, linkID, userID uint) error
	Voters(ctx context.Context, linkID uint) ([]model.User, error)
	CountVotes(ctx context.Context, linkID uint) (int, error)
}

// UserStore 用户
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Store 请求上下文中的数据访问句柄
type Store interface {
	LinkStore
	UserStore
}

// NormalizeEmail 邮箱比较不区分大小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// foldASCII 只把 A-Z 转为小写，非 ASCII 字符保持不变
func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func matchesFilter(link *model.Link, folded string) bool {
	return strings.Contains(foldASCII(link.Description), folded) ||
		strings.Contains(foldASCII(link.URL), folded)
}

// likePattern 转义 LIKE 通配符，配合 ESCAPE '!' 使用
func likePattern(filter string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(foldASCII(filter)) + "%"
}

// Package events 链接与投票的领域事件
package events

import (
	"context"
	"time"
)

const (
	LinkCreated = "link.created"
	LinkUpdated = "link.updated"
	LinkDeleted = "link.deleted"
	VoteCreated = "vote.created"
)

// Event 以 JSON 形式发送，key 为链接 id
type Event struct {
	Type   string    `json:"type"`
	LinkID uint      `json:"linkId"`
	UserID uint      `json:"userId,omitempty"` // 触发事件的用户，未认证的更新为 0
	At     time.Time `json:"at"`
}

// Publisher 发送失败不影响已完成的写操作，调用方只记录日志
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher 未启用 kafka 时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

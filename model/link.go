package model

import "time"

// Link 被分享的链接
type Link struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	Description string `gorm:"not null"`
	URL         string `gorm:"not null"`
	PostedByID  *uint  `gorm:"index"`                         // 可为空：发布者被删除后置空
	PostedBy    *User  `gorm:"constraint:OnDelete:SET NULL;"` // 发布者
	Voters      []User `gorm:"many2many:votes;"`              // 投票用户，连接表 votes(link_id, user_id)
}

// IsPostedBy 判断 userID 是否为该链接的发布者
func (l *Link) IsPostedBy(userID uint) bool {
	return l.PostedByID != nil && *l.PostedByID == userID
}

// LinkPatch 部分更新：只有非 nil 的字段会被写入
type LinkPatch struct {
	Description *string
	URL         *string
}

// Empty 没有任何需要更新的字段
func (p LinkPatch) Empty() bool {
	return p.Description == nil && p.URL == nil
}

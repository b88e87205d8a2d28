package model

import "time"

// User 发布与投票链接的用户
type User struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	Name      string `gorm:"not null"`
	Email     string `gorm:"uniqueIndex;size:191;not null"` // 登录名，唯一
	Password  string `gorm:"not null"`                      // bcrypt 哈希，不保存明文
}

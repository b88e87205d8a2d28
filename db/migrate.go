package db

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"hackernews/model"
)

// Migrate 自动建表：users、links 以及投票连接表 votes
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Link{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

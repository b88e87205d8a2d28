package control

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hackernews/model"
)

// GormStore 基于 gorm 的 Store，支持 mysql 与 sqlite
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) FeedLinks(ctx context.Context, filter string) ([]model.Link, error) {
	links := make([]model.Link, 0)
	tx := s.db.WithContext(ctx).Order("id")
	if filter != "" {
		pattern := likePattern(filter)
		tx = tx.Where("LOWER(description) LIKE ? ESCAPE '!' OR LOWER(url) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if err := tx.Find(&links).Error; err != nil {
		return nil, errors.Wrap(err, "feed links")
	}
	return links, nil
}

func (s *GormStore) GetLink(ctx context.Context, id uint) (*model.Link, error) {
	var link model.Link
	if err := s.db.WithContext(ctx).First(&link, id).Error; err != nil {
		return nil, errors.Wrapf(notFound(err), "get link %d", id)
	}
	return &link, nil
}

func (s *GormStore) CreateLink(ctx context.Context, link *model.Link) error {
	// 只插入链接本身，不级联写入发布者
	if err := s.db.WithContext(ctx).Omit("PostedBy", "Voters").Create(link).Error; err != nil {
		return errors.Wrap(err, "create link")
	}
	return nil
}

func (s *GormStore) UpdateLink(ctx context.Context, id uint, patch model.LinkPatch) (*model.Link, error) {
	link, err := s.GetLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return link, nil
	}
	updates := make(map[string]interface{}, 2)
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.URL != nil {
		updates["url"] = *patch.URL
	}
	res := s.db.WithContext(ctx).Model(&model.Link{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "update link %d", id)
	}
	if res.RowsAffected == 0 {
		// 读取之后被并发删除；mysql 在值未变化时也返回 0，需要再确认一次
		return s.GetLink(ctx, id)
	}
	if patch.Description != nil {
		link.Description = *patch.Description
	}
	if patch.URL != nil {
		link.URL = *patch.URL
	}
	return link, nil
}

func (s *GormStore) DeleteLink(ctx context.Context, id uint) (*model.Link, error) {
	var link model.Link
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&link, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&link).Association("Voters").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&model.Link{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "delete link %d", id)
	}
	return &link, nil
}

func (s *GormStore) LinksPostedBy(ctx context.Context, userID uint) ([]model.Link, error) {
	links := make([]model.Link, 0)
	if err := s.db.WithContext(ctx).Where("posted_by_id = ?", userID).Order("id").Find(&links).Error; err != nil {
		return nil, errors.Wrapf(err, "links posted by %d", userID)
	}
	return links, nil
}

func (s *GormStore) AddVote(ctx context.Context, linkID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link model.Link
		if err := tx.First(&link, linkID).Error; err != nil {
			return notFound(err)
		}
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFound(err)
		}
		// 主键 (link_id, user_id) 冲突时不插入，RowsAffected 为 0 即重复投票
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Table("votes").Create(map[string]interface{}{
			"link_id": linkID,
			"user_id": userID,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyVoted
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "vote link %d by user %d", linkID, userID)
	}
	return nil
}

func (s *GormStore) Voters(ctx context.Context, linkID uint) ([]model.User, error) {
	users := make([]model.User, 0)
	link := model.Link{ID: linkID}
	if err := s.db.WithContext(ctx).Model(&link).Order("users.id").Association("Voters").Find(&users); err != nil {
		return nil, errors.Wrapf(err, "voters of link %d", linkID)
	}
	return users, nil
}

func (s *GormStore) CountVotes(ctx context.Context, linkID uint) (int, error) {
	link := model.Link{ID: linkID}
	assoc := s.db.WithContext(ctx).Model(&link).Association("Voters")
	count := assoc.Count()
	if err := assoc.Error; err != nil {
		return 0, errors.Wrapf(err, "count votes of link %d", linkID)
	}
	return int(count), nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return errors.Wrap(err, "check email")
	}
	if count > 0 {
		return errors.Wrapf(ErrDuplicate, "email %s", user.Email)
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(ErrDuplicate, "email %s", user.Email)
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, errors.Wrapf(notFound(err), "get user %d", id)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, errors.Wrap(notFound(err), "get user by email")
	}
	return &user, nil
}

// isUniqueViolation 并发注册时唯一索引冲突，mysql 与 sqlite 的报错文本不同
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

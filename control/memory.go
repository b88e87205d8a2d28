package control

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"hackernews/model"
)

// MemoryStore 进程内存储，所有读写都经过 mu，返回值均为副本。
// 进程退出后数据丢失。
type MemoryStore struct {
	mu         sync.RWMutex
	links      map[uint]*model.Link
	users      map[uint]*model.User
	votes      map[uint]map[uint]struct{} // linkID -> userIDs
	nextLinkID uint
	nextUserID uint
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[uint]*model.Link),
		users: make(map[uint]*model.User),
		votes: make(map[uint]map[uint]struct{}),
		now:   time.Now,
	}
}

func copyLink(l *model.Link) model.Link {
	c := *l
	if l.PostedByID != nil {
		id := *l.PostedByID
		c.PostedByID = &id
	}
	c.PostedBy = nil
	c.Voters = nil
	return c
}

func (s *MemoryStore) sortedLinks(keep func(*model.Link) bool) []model.Link {
	links := make([]model.Link, 0, len(s.links))
	for _, l := range s.links {
		if keep(l) {
			links = append(links, copyLink(l))
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links
}

func (s *MemoryStore) FeedLinks(_ context.Context, filter string) ([]model.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	folded := foldASCII(filter)
	return s.sortedLinks(func(l *model.Link) bool {
		return filter == "" || matchesFilter(l, folded)
	}), nil
}

func (s *MemoryStore) GetLink(_ context.Context, id uint) (*model.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "get link %d", id)
	}
	c := copyLink(l)
	return &c, nil
}

func (s *MemoryStore) CreateLink(_ context.Context, link *model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if link.PostedByID != nil {
		if _, ok := s.users[*link.PostedByID]; !ok {
			return errors.Errorf("create link: poster %d does not exist", *link.PostedByID)
		}
	}
	s.nextLinkID++
	link.ID = s.nextLinkID
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	}
	stored := copyLink(link)
	s.links[link.ID] = &stored
	return nil
}

func (s *MemoryStore) UpdateLink(_ context.Context, id uint, patch model.LinkPatch) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "update link %d", id)
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if patch.URL != nil {
		l.URL = *patch.URL
	}
	c := copyLink(l)
	return &c, nil
}

func (s *MemoryStore) DeleteLink(_ context.Context, id uint) (*model.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "delete link %d", id)
	}
	delete(s.links, id)
	delete(s.votes, id)
	c := copyLink(l)
	return &c, nil
}

func (s *MemoryStore) LinksPostedBy(_ context.Context, userID uint) ([]model.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLinks(func(l *model.Link) bool { return l.IsPostedBy(userID) }), nil
}

func (s *MemoryStore) AddVote(_ context.Context, linkID, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[linkID]; !ok {
		return errors.Wrapf(ErrNotFound, "vote link %d", linkID)
	}
	if _, ok := s.users[userID]; !ok {
		return errors.Wrapf(ErrNotFound, "vote by user %d", userID)
	}
	voters, ok := s.votes[linkID]
	if !ok {
		voters = make(map[uint]struct{})
		s.votes[linkID] = voters
	}
	if _, voted := voters[userID]; voted {
		return errors.Wrapf(ErrAlreadyVoted, "vote link %d by user %d", linkID, userID)
	}
	voters[userID] = struct{}{}
	return nil
}

func (s *MemoryStore) Voters(_ context.Context, linkID uint) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.votes[linkID]))
	for userID := range s.votes[linkID] {
		if u, ok := s.users[userID]; ok {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStore) CountVotes(_ context.Context, linkID uint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votes[linkID]), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = NormalizeEmail(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return errors.Wrapf(ErrDuplicate, "email %s", user.Email)
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "get user %d", id)
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, errors.Wrap(ErrNotFound, "get user by email")
}

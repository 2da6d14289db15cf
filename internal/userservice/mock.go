package userservice

import (
	"context"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

// NewMemoryModel returns a Model kept in process memory. It doubles as the author source of
// blogservice's memory model.
func NewMemoryModel() *MemoryModel {
	return &MemoryModel{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryModel) insert(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[u.Email]; ok {
		return ErrDuplicateUser
	}

	m.users[u.ID] = copyUser(u)
	m.byEmail[u.Email] = u.ID

	return nil
}

func (m *MemoryModel) getByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	return copyUser(u), nil
}

func (m *MemoryModel) getByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[email]
	m.mu.RUnlock()

	if !ok {
		return nil, common.ErrRecordNotFound
	}

	return m.getByID(ctx, id)
}

func (m *MemoryModel) update(_ context.Context, id string, c profileChanges) (mediaservice.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[id]
	if !ok {
		return mediaservice.Ref{}, common.ErrRecordNotFound
	}

	previous := stored.Avatar
	if c.Name != nil {
		stored.Name = *c.Name
	}
	if c.Interests != nil {
		stored.Interests = append([]string{}, c.Interests...)
	}
	if c.Avatar != nil {
		stored.Avatar = *c.Avatar
	}

	return previous, nil
}

func (m *MemoryModel) follow(_ context.Context, userID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[userID]
	if !ok {
		return common.ErrRecordNotFound
	}

	for _, id := range stored.Following {
		if id == targetID {
			return nil
		}
	}
	stored.Following = append(stored.Following, targetID)

	return nil
}

// Author implements blogservice.AuthorSource.
func (m *MemoryModel) Author(id string) (*blogservice.Author, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, false
	}

	return &blogservice.Author{ID: u.ID, Name: u.Name, Avatar: u.Avatar}, true
}

func copyUser(u *User) *User {
	c := *u
	c.Interests = append([]string{}, u.Interests...)
	c.Following = append([]string{}, u.Following...)
	return &c
}

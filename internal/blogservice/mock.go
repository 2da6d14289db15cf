package blogservice

import (
	"context"
	"sort"

	"github.com/sushihentaime/blogshelf/internal/common"
)

// NewMemoryModel returns a Model kept in process memory. Authors are looked up in authors on
// every read, like a join.
func NewMemoryModel(authors AuthorSource) *MemoryModel {
	return &MemoryModel{
		blogs:   make(map[string]*Blog),
		authors: authors,
	}
}

func (m *MemoryModel) insert(_ context.Context, blog *Blog) error {
	if _, ok := m.authors.Author(blog.UserID); !ok {
		return ErrUserForeignKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b := *blog
	b.Author = nil
	m.blogs[b.ID] = &b

	return nil
}

func (m *MemoryModel) delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blogs[id]; !ok {
		return common.ErrRecordNotFound
	}
	delete(m.blogs, id)

	return nil
}

func (m *MemoryModel) getByID(_ context.Context, id string) (*Blog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blogs[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	blog, ok := m.populate(b)
	if !ok {
		return nil, common.ErrRecordNotFound
	}

	return blog, nil
}

func (m *MemoryModel) getAll(_ context.Context) ([]*Blog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blogs := make([]*Blog, 0, len(m.blogs))
	for _, b := range m.blogs {
		if blog, ok := m.populate(b); ok {
			blogs = append(blogs, blog)
		}
	}

	sort.Slice(blogs, func(i, j int) bool {
		return blogs[i].CreatedAt.After(blogs[j].CreatedAt)
	})

	return blogs, nil
}

func (m *MemoryModel) getByIDs(_ context.Context, ids []string) ([]*Blog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blogs := make([]*Blog, 0, len(ids))
	for _, id := range ids {
		b, ok := m.blogs[id]
		if !ok {
			continue
		}
		if blog, ok := m.populate(b); ok {
			blogs = append(blogs, blog)
		}
	}

	return blogs, nil
}

// populate copies b so callers can mutate the result without touching the stored blog.
func (m *MemoryModel) populate(b *Blog) (*Blog, bool) {
	author, ok := m.authors.Author(b.UserID)
	if !ok {
		return nil, false
	}

	blog := *b
	a := *author
	blog.Author = &a

	return &blog, true
}

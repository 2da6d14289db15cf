package blogservice

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

// Author is the part of a user embedded in every blog it wrote.
type Author struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Avatar mediaservice.Ref `json:"avatar"`
}

type Blog struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Brief       string           `json:"brief"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Estimated   int              `json:"estimated"` // minutes
	Image       mediaservice.Ref `json:"image"`
	UserID      string           `json:"userId"`
	Author      *Author          `json:"author,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func (b *Blog) MediaRefs() []*mediaservice.Ref {
	if b == nil {
		return nil
	}

	refs := []*mediaservice.Ref{&b.Image}
	if b.Author != nil {
		refs = append(refs, &b.Author.Avatar)
	}
	return refs
}

// Model stores blogs. Every read returns blogs with Author populated and never shares an
// Author between two blogs.
type Model interface {
	insert(ctx context.Context, blog *Blog) error
	delete(ctx context.Context, id string) error
	getByID(ctx context.Context, id string) (*Blog, error)
	getAll(ctx context.Context) ([]*Blog, error)
	getByIDs(ctx context.Context, ids []string) ([]*Blog, error)
}

type PostgresModel struct {
	db *sql.DB
}

type MongoModel struct {
	blogs *mongo.Collection
	users *mongo.Collection
}

// AuthorSource looks up authors for the in-memory model.
type AuthorSource interface {
	Author(id string) (*Author, bool)
}

type MemoryModel struct {
	mu      sync.RWMutex
	blogs   map[string]*Blog
	authors AuthorSource
}

type BlogService struct {
	m      Model
	lists  *listservice.ListService
	media  *mediaservice.MediaService
	c      common.Cache
	logger *slog.Logger
}

type CreateBlogRequest struct {
	UserID      string
	Title       string
	Brief       string
	Description string
	Category    string
	Estimated   int
	Image       []byte
}

type CreateBlogResult struct {
	Blog        *Blog   `json:"blog"`
	PostedBlogs []*Blog `json:"postedBlogs"`
}

package blogservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

const (
	colBlogs = "blogs"
	colUsers = "users"
)

type blogDocument struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Brief       string    `bson:"brief"`
	Description string    `bson:"description"`
	Category    string    `bson:"category"`
	Estimated   int       `bson:"estimated"`
	Image       string    `bson:"image"`
	UserID      string    `bson:"user_id"`
	CreatedAt   time.Time `bson:"created_at"`
}

// authorDocument reads the fields of a user document that blogs embed.
type authorDocument struct {
	ID     string `bson:"_id"`
	Name   string `bson:"name"`
	Avatar string `bson:"avatar"`
}

func NewMongoModel(db *common.MongoDB) *MongoModel {
	return &MongoModel{
		blogs: db.Collection(colBlogs),
		users: db.Collection(colUsers),
	}
}

func (m *MongoModel) EnsureIndexes(ctx context.Context) error {
	_, err := m.blogs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes for blogs: %w", err)
	}

	return nil
}

func (m *MongoModel) insert(ctx context.Context, blog *Blog) error {
	n, err := m.users.CountDocuments(ctx, bson.M{"_id": blog.UserID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserForeignKey
	}

	_, err = m.blogs.InsertOne(ctx, blogDocument{
		ID:          blog.ID,
		Title:       blog.Title,
		Brief:       blog.Brief,
		Description: blog.Description,
		Category:    blog.Category,
		Estimated:   blog.Estimated,
		Image:       blog.Image.Stored(),
		UserID:      blog.UserID,
		CreatedAt:   blog.CreatedAt,
	})
	return err
}

func (m *MongoModel) delete(ctx context.Context, id string) error {
	res, err := m.blogs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}

func (m *MongoModel) getByID(ctx context.Context, id string) (*Blog, error) {
	var doc blogDocument
	err := m.blogs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	blogs, err := m.populate(ctx, []blogDocument{doc})
	if err != nil {
		return nil, err
	}
	if len(blogs) == 0 {
		return nil, common.ErrRecordNotFound
	}

	return blogs[0], nil
}

func (m *MongoModel) getAll(ctx context.Context) ([]*Blog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return m.find(ctx, bson.M{}, opts)
}

func (m *MongoModel) getByIDs(ctx context.Context, ids []string) ([]*Blog, error) {
	if len(ids) == 0 {
		return []*Blog{}, nil
	}

	return m.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (m *MongoModel) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]*Blog, error) {
	cur, err := m.blogs.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	var docs []blogDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	return m.populate(ctx, docs)
}

// populate joins each blog with its author. Blogs whose author no longer exists are dropped,
// matching the inner join of the postgres model.
func (m *MongoModel) populate(ctx context.Context, docs []blogDocument) ([]*Blog, error) {
	blogs := make([]*Blog, 0, len(docs))
	if len(docs) == 0 {
		return blogs, nil
	}

	seen := make(map[string]struct{}, len(docs))
	userIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.UserID]; !ok {
			seen[doc.UserID] = struct{}{}
			userIDs = append(userIDs, doc.UserID)
		}
	}

	cur, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}},
		options.Find().SetProjection(bson.M{"name": 1, "avatar": 1}))
	if err != nil {
		return nil, err
	}

	var authors []authorDocument
	if err := cur.All(ctx, &authors); err != nil {
		return nil, err
	}

	byID := make(map[string]authorDocument, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}

	for _, doc := range docs {
		a, ok := byID[doc.UserID]
		if !ok {
			continue
		}

		blogs = append(blogs, &Blog{
			ID:          doc.ID,
			Title:       doc.Title,
			Brief:       doc.Brief,
			Description: doc.Description,
			Category:    doc.Category,
			Estimated:   doc.Estimated,
			Image:       mediaservice.ParseRef(doc.Image),
			UserID:      doc.UserID,
			Author: &Author{
				ID:     a.ID,
				Name:   a.Name,
				Avatar: mediaservice.ParseRef(a.Avatar),
			},
			CreatedAt: doc.CreatedAt,
		})
	}

	return blogs, nil
}

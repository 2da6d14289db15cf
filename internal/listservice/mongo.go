package listservice

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sushihentaime/blogshelf/internal/common"
)

const colBlogLists = "blog_lists"

type listDocument struct {
	UserID  string   `bson:"user_id"`
	Kind    string   `bson:"kind"`
	BlogIDs []string `bson:"blog_ids"`
}

func NewMongoModel(db *common.MongoDB) *MongoModel {
	return &MongoModel{col: db.Collection(colBlogLists)}
}

// EnsureIndexes creates the unique (user_id, kind) index the upsert relies on.
func (m *MongoModel) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "kind", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create index for blog lists: %w", err)
	}

	return nil
}

func (m *MongoModel) append(ctx context.Context, kind Kind, userID, blogID string) ([]string, error) {
	filter := bson.M{"user_id": userID, "kind": string(kind)}
	update := bson.M{"$addToSet": bson.M{"blog_ids": blogID}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc listDocument
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	// Two upserts racing on an absent list can both try to insert; the loser hits the unique
	// index and succeeds as a plain update on retry.
	if mongo.IsDuplicateKeyError(err) {
		err = m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return nil, err
	}

	return doc.BlogIDs, nil
}

func (m *MongoModel) get(ctx context.Context, kind Kind, userID string) ([]string, error) {
	var doc listDocument
	err := m.col.FindOne(ctx, bson.M{"user_id": userID, "kind": string(kind)}).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return []string{}, nil
		default:
			return nil, err
		}
	}

	if doc.BlogIDs == nil {
		return []string{}, nil
	}
	return doc.BlogIDs, nil
}

package userservice

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

const colUsers = "users"

type userDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Password  []byte    `bson:"password"`
	Avatar    string    `bson:"avatar"`
	Interests []string  `bson:"interests"`
	Following []string  `bson:"following"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d *userDocument) user() *User {
	u := &User{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Password:  Password{hash: d.Password},
		Avatar:    mediaservice.ParseRef(d.Avatar),
		Interests: d.Interests,
		Following: d.Following,
		CreatedAt: d.CreatedAt,
	}
	if u.Interests == nil {
		u.Interests = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}

	return u
}

func NewMongoModel(db *common.MongoDB) *MongoModel {
	return &MongoModel{col: db.Collection(colUsers)}
}

// EnsureIndexes creates the unique email index.
func (m *MongoModel) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create index for email: %w", err)
	}

	return nil
}

func (m *MongoModel) insert(ctx context.Context, u *User) error {
	_, err := m.col.InsertOne(ctx, userDocument{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password.hash,
		Avatar:    u.Avatar.Stored(),
		Interests: nonNil(u.Interests),
		Following: nonNil(u.Following),
		CreatedAt: u.CreatedAt,
	})
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			return ErrDuplicateUser
		default:
			return err
		}
	}

	return nil
}

func (m *MongoModel) getByID(ctx context.Context, id string) (*User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoModel) getByEmail(ctx context.Context, email string) (*User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *MongoModel) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDocument
	err := m.col.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return doc.user(), nil
}

func (m *MongoModel) update(ctx context.Context, id string, c profileChanges) (mediaservice.Ref, error) {
	set := bson.M{}
	if c.Name != nil {
		set["name"] = *c.Name
	}
	if c.Interests != nil {
		set["interests"] = c.Interests
	}
	if c.Avatar != nil {
		set["avatar"] = c.Avatar.Stored()
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"avatar": 1})

	var before struct {
		Avatar string `bson:"avatar"`
	}
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&before)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return mediaservice.Ref{}, common.ErrRecordNotFound
		default:
			return mediaservice.Ref{}, err
		}
	}

	return mediaservice.ParseRef(before.Avatar), nil
}

func (m *MongoModel) follow(ctx context.Context, userID, targetID string) error {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"following": targetID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.ErrRecordNotFound
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

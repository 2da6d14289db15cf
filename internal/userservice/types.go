package userservice

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

var (
	AnonymousUser = User{}
)

type UserService struct {
	m      Model
	tokens *TokenIssuer
	lists  *listservice.ListService
	blogs  *blogservice.BlogService
	media  *mediaservice.MediaService
	mb     common.MessageProducer
	c      common.Cache
	logger *slog.Logger
}

// Model stores users. Emails are unique; insert reports a clash as ErrDuplicateUser. update
// writes only the fields set in c and returns the avatar the user had before the write.
type Model interface {
	insert(ctx context.Context, u *User) error
	getByID(ctx context.Context, id string) (*User, error)
	getByEmail(ctx context.Context, email string) (*User, error)
	update(ctx context.Context, id string, c profileChanges) (mediaservice.Ref, error)
	follow(ctx context.Context, userID, targetID string) error
}

type PostgresModel struct {
	db *sql.DB
}

type MongoModel struct {
	col *mongo.Collection
}

type MemoryModel struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
}

type User struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Password  Password         `json:"-"`
	Avatar    mediaservice.Ref `json:"avatar"`
	Interests []string         `json:"interests"`
	Following []string         `json:"following"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Details is a user together with the blogs it posted and saved, in list order.
type Details struct {
	*User
	PostedBlogs []*blogservice.Blog `json:"postedBlogs"`
	SavedBlogs  []*blogservice.Blog `json:"savedBlogs"`
}

// profileChanges holds the profile fields to write. Nil fields are left as they are.
type profileChanges struct {
	Name      *string
	Interests []string
	Avatar    *mediaservice.Ref
}

func (c profileChanges) empty() bool {
	return c.Name == nil && c.Interests == nil && c.Avatar == nil
}

// detailsRecord is what GetUserDetails caches under user:<id>.
type detailsRecord struct {
	User      *User    `json:"user"`
	PostedIDs []string `json:"postedIds"`
	SavedIDs  []string `json:"savedIds"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// AuthToken is a signed bearer token.
type AuthToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

type CreateUserRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Avatar          []byte
}

// UpdateProfileRequest changes the fields that are set. A nil Interests leaves them as they
// are; an empty, non-nil one clears them.
type UpdateProfileRequest struct {
	UserID    string
	Name      *string
	Interests []string
	Avatar    []byte
}

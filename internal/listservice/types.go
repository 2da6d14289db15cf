package listservice

import (
	"context"
	"database/sql"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sushihentaime/blogshelf/internal/common"
)

// Kind names one of a user's blog lists.
type Kind string

const (
	Posted Kind = "posted"
	Saved  Kind = "saved"
)

func (k Kind) Valid() bool {
	return common.PermittedValue(k, Posted, Saved)
}

// List is the ordered set of blog ids a user has posted or saved.
type List struct {
	UserID  string   `json:"userId"`
	Kind    Kind     `json:"kind"`
	BlogIDs []string `json:"blogIds"`
}

func (l *List) Contains(blogID string) bool {
	for _, id := range l.BlogIDs {
		if id == blogID {
			return true
		}
	}
	return false
}

// Model is the storage behind the lists. append must create the list when it is absent and add
// blogID at the end unless it is already present, as one atomic operation.
type Model interface {
	append(ctx context.Context, kind Kind, userID, blogID string) ([]string, error)
	get(ctx context.Context, kind Kind, userID string) ([]string, error)
}

type PostgresModel struct {
	db *sql.DB
}

type MongoModel struct {
	col *mongo.Collection
}

type MemoryModel struct {
	mu    sync.Mutex
	lists map[listKey][]string
	fail  error
}

type listKey struct {
	kind   Kind
	userID string
}

type ListService struct {
	m Model
}

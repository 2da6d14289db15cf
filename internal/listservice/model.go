package listservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

func NewPostgresModel(db *sql.DB) *PostgresModel {
	return &PostgresModel{db: db}
}

// append upserts the (user, kind) row. The CASE keeps blog_ids an ordered set without a read
// before the write, so concurrent appends cannot overwrite each other.
func (m *PostgresModel) append(ctx context.Context, kind Kind, userID, blogID string) ([]string, error) {
	query := `
		INSERT INTO blog_lists (user_id, kind, blog_ids)
		VALUES ($1, $2, ARRAY[$3::text])
		ON CONFLICT (user_id, kind) DO UPDATE
		SET blog_ids = CASE
			WHEN $3::text = ANY(blog_lists.blog_ids) THEN blog_lists.blog_ids
			ELSE array_append(blog_lists.blog_ids, $3::text)
		END
		RETURNING blog_ids`

	var ids []string
	err := m.db.QueryRowContext(ctx, query, userID, string(kind), blogID).Scan(pq.Array(&ids))
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (m *PostgresModel) get(ctx context.Context, kind Kind, userID string) ([]string, error) {
	query := `
		SELECT blog_ids
		FROM blog_lists
		WHERE user_id = $1 AND kind = $2`

	var ids []string
	err := m.db.QueryRowContext(ctx, query, userID, string(kind)).Scan(pq.Array(&ids))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return []string{}, nil
		default:
			return nil, err
		}
	}

	return ids, nil
}

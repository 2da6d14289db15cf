package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

var ErrUserForeignKey = errors.New("user_id does not exist")

func NewPostgresModel(db *sql.DB) *PostgresModel {
	return &PostgresModel{db: db}
}

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

const selectBlogs = `
	SELECT b.id, b.title, b.brief, b.description, b.category, b.estimated, b.image, b.user_id, b.created_at, u.name, u.avatar
	FROM blogs b
	JOIN users u ON b.user_id = u.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*Blog, error) {
	var (
		blog          Blog
		image, avatar string
		author        Author
	)

	err := row.Scan(&blog.ID, &blog.Title, &blog.Brief, &blog.Description, &blog.Category, &blog.Estimated, &image, &blog.UserID, &blog.CreatedAt, &author.Name, &avatar)
	if err != nil {
		return nil, err
	}

	blog.Image = mediaservice.ParseRef(image)
	author.ID = blog.UserID
	author.Avatar = mediaservice.ParseRef(avatar)
	blog.Author = &author

	return &blog, nil
}

func (m *PostgresModel) insert(ctx context.Context, blog *Blog) error {
	query := `
		INSERT INTO blogs (id, title, brief, description, category, estimated, image, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := m.db.ExecContext(ctx, query, blog.ID, blog.Title, blog.Brief, blog.Description, blog.Category, blog.Estimated, blog.Image.Stored(), blog.UserID, blog.CreatedAt)
	if err != nil {
		switch {
		case ForeignKeyError(err, "blogs_user_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

func (m *PostgresModel) delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM blogs
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}

func (m *PostgresModel) getByID(ctx context.Context, id string) (*Blog, error) {
	query := selectBlogs + `
		WHERE b.id = $1`

	blog, err := scanBlog(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return blog, nil
}

func (m *PostgresModel) getAll(ctx context.Context) ([]*Blog, error) {
	query := selectBlogs + `
		ORDER BY b.created_at DESC`

	return m.query(ctx, query)
}

func (m *PostgresModel) getByIDs(ctx context.Context, ids []string) ([]*Blog, error) {
	if len(ids) == 0 {
		return []*Blog{}, nil
	}

	query := selectBlogs + `
		WHERE b.id = ANY($1::uuid[])`

	return m.query(ctx, query, pq.Array(ids))
}

func (m *PostgresModel) query(ctx context.Context, query string, args ...any) ([]*Blog, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []*Blog{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, blog)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

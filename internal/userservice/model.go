package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

var (
	ErrDuplicateUser = errors.New("user already exists")
)

func NewPostgresModel(db *sql.DB) *PostgresModel {
	return &PostgresModel{db: db}
}

// UniqueViolation reports whether err is a unique constraint error on constraint name.
func UniqueViolation(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

const selectUsers = `
	SELECT id, name, email, password, avatar, interests, following, created_at
	FROM users`

func scanUser(row *sql.Row) (*User, error) {
	var (
		u      User
		avatar string
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password.hash, &avatar, pq.Array(&u.Interests), pq.Array(&u.Following), &u.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	u.Avatar = mediaservice.ParseRef(avatar)
	if u.Interests == nil {
		u.Interests = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}

	return &u, nil
}

func (m *PostgresModel) insert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, name, email, password, avatar, interests, following, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	args := []any{
		u.ID,
		u.Name,
		u.Email,
		u.Password.hash,
		u.Avatar.Stored(),
		pq.Array(u.Interests),
		pq.Array(u.Following),
		u.CreatedAt,
	}

	_, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case UniqueViolation(err, "users_email_key"):
			return ErrDuplicateUser
		default:
			return err
		}
	}

	return nil
}

func (m *PostgresModel) getByID(ctx context.Context, id string) (*User, error) {
	return scanUser(m.db.QueryRowContext(ctx, selectUsers+`
		WHERE id = $1`, id))
}

func (m *PostgresModel) getByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(m.db.QueryRowContext(ctx, selectUsers+`
		WHERE email = $1`, email))
}

// update locks the row so concurrent writers see each other's avatar as the previous one.
func (m *PostgresModel) update(ctx context.Context, id string, c profileChanges) (mediaservice.Ref, error) {
	query := `
		UPDATE users u
		SET name = COALESCE($2::text, u.name),
			interests = COALESCE($3::text[], u.interests),
			avatar = COALESCE($4::text, u.avatar)
		FROM (SELECT id, avatar FROM users WHERE id = $1 FOR UPDATE) old
		WHERE u.id = old.id
		RETURNING old.avatar`

	var avatar *string
	if c.Avatar != nil {
		stored := c.Avatar.Stored()
		avatar = &stored
	}

	var previous string
	err := m.db.QueryRowContext(ctx, query, id, c.Name, pq.Array(c.Interests), avatar).Scan(&previous)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return mediaservice.Ref{}, common.ErrRecordNotFound
		default:
			return mediaservice.Ref{}, err
		}
	}

	return mediaservice.ParseRef(previous), nil
}

// follow appends targetID to following unless it is already there, in a single statement.
func (m *PostgresModel) follow(ctx context.Context, userID, targetID string) error {
	query := `
		UPDATE users
		SET following = CASE
			WHEN $2::text = ANY(following) THEN following
			ELSE array_append(following, $2::text)
		END
		WHERE id = $1`

	res, err := m.db.ExecContext(ctx, query, userID, targetID)
	if err != nil {
		return err
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
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

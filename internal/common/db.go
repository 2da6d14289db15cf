package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// DBConfig describes a Postgres connection and its pool.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string

	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

// URI returns the connection string understood by both lib/pq and golang-migrate.
func (c DBConfig) URI() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// NewDB opens the pool and waits up to five seconds for the server to answer.
func NewDB(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URI())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not reach postgres: %w", err)
	}

	return db, nil
}

func CloseDB(db *sql.DB) error {
	return db.Close()
}

// MigrateDB applies every pending migration found at source, for example "file://migrations".
func MigrateDB(source string, cfg DBConfig) (err error) {
	m, err := migrate.New(source, cfg.URI())
	if err != nil {
		return fmt.Errorf("could not load migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		err = errors.Join(err, srcErr, dbErr)
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migrations: %w", err)
	}

	return nil
}

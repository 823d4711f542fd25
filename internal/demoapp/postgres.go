package demoapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresStore keeps users and items in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, creates the tables and inserts the seed data
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := s.initDB(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username VARCHAR(255) UNIQUE NOT NULL,
	password VARCHAR(255) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS items (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) UNIQUE NOT NULL
);
`

func (s *PostgresStore) initDB(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	usernames := make([]string, 0, len(SeedUsers))
	for name := range SeedUsers {
		usernames = append(usernames, name)
	}
	sort.Strings(usernames)
	for _, name := range usernames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
			name, SeedUsers[name]); err != nil {
			return fmt.Errorf("seeding user %s: %w", name, err)
		}
	}
	for _, item := range SeedItems {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, item); err != nil {
			return fmt.Errorf("seeding item %s: %w", item, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Int("users", len(usernames)).Int("items", len(SeedItems)).Msg("database seeded")
	return nil
}

func (s *PostgresStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username FROM users WHERE username = $1 AND password = $2`,
		username, password).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM items WHERE name ILIKE '%' || $1 || '%' ORDER BY name`, query)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

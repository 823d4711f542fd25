// Package demoapp is a small web application with a login page and a search
// page. The example test cases written by `tomato-ui init` run against it.
package demoapp

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidCredentials is returned when the username or password does not match
var ErrInvalidCredentials = errors.New("invalid username or password")

type User struct {
	ID       int
	Username string
}

// Store holds the users who can log in and the catalog that can be searched
type Store interface {
	Authenticate(ctx context.Context, username, password string) (User, error)
	Search(ctx context.Context, query string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// SeedUsers maps usernames to passwords. demo_user matches the generated config.
var SeedUsers = map[string]string{
	"demo_user": "demo_password",
	"admin":     "admin",
}

var SeedItems = []string{
	"Basil",
	"Cherry tomato",
	"Mozzarella",
	"Olive oil",
	"Roma tomato",
	"Tomato sauce",
	"Tomato soup",
}

// MemoryStore keeps the seed data in memory
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]string
	items []string
}

func NewMemoryStore() *MemoryStore {
	users := make(map[string]string, len(SeedUsers))
	for k, v := range SeedUsers {
		users[k] = v
	}
	items := append([]string(nil), SeedItems...)
	sort.Strings(items)
	return &MemoryStore{users: users, items: items}
}

// AddUser adds or replaces a user
func (s *MemoryStore) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

func (s *MemoryStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want, ok := s.users[username]
	if !ok || want != password {
		return User{}, ErrInvalidCredentials
	}

	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return User{ID: sort.SearchStrings(names, username) + 1, Username: username}, nil
}

// Search matches items case-insensitively on a substring. An empty query matches nothing.
func (s *MemoryStore) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item), query) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

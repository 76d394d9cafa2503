// Package users defines the authorization collaborator interface consumed
// by the dispatch core, plus an in-memory implementation. Real deployments
// back Store with their own persistence layer.
package users

import (
	"context"
	"sync"
)

// User is an authenticated end user of the bot.
type User struct {
	ID         int64
	TelegramID int64
	Name       string
	IsAdmin    bool
}

// Store resolves users and answers authorization queries. A user is
// authorized for an action when a permission links the action to the user
// directly or through a role the user holds; admins are always authorized.
type Store interface {
	// UserByTelegramID returns the user with the given Telegram id, or nil
	// when no such user exists.
	UserByTelegramID(ctx context.Context, telegramID int64) (*User, error)

	// Users returns all known users.
	Users(ctx context.Context) ([]*User, error)

	// IsAuthorized reports whether the user may run the named action.
	IsAuthorized(ctx context.Context, user *User, actionName string) (bool, error)
}

// Permission links an action to users and roles.
type Permission struct {
	Action string
	Users  []int64 // user ids
	Roles  []string
}

// MemoryStore is an in-process Store implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]*User     // keyed by user id
	byTelegram  map[int64]*User     // keyed by telegram id
	roles       map[string][]int64  // role name -> user ids
	permissions map[string][]Permission
	nextID      int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]*User),
		byTelegram:  make(map[int64]*User),
		roles:       make(map[string][]int64),
		permissions: make(map[string][]Permission),
		nextID:      1,
	}
}

// AddUser registers a user and returns it with its assigned id.
func (s *MemoryStore) AddUser(telegramID int64, name string, isAdmin bool) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &User{
		ID:         s.nextID,
		TelegramID: telegramID,
		Name:       name,
		IsAdmin:    isAdmin,
	}
	s.nextID++
	s.users[u.ID] = u
	s.byTelegram[u.TelegramID] = u
	return u
}

// AssignRole adds a user to a role.
func (s *MemoryStore) AssignRole(userID int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role] = append(s.roles[role], userID)
}

// Grant adds a permission for an action.
func (s *MemoryStore) Grant(p Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[p.Action] = append(s.permissions[p.Action], p)
}

// UserByTelegramID returns the user with the given Telegram id, or nil.
func (s *MemoryStore) UserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byTelegram[telegramID], nil
}

// Users returns all known users.
func (s *MemoryStore) Users(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

// IsAuthorized reports whether the user may run the named action.
func (s *MemoryStore) IsAuthorized(ctx context.Context, user *User, actionName string) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsAdmin {
		return true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.permissions[actionName] {
		for _, id := range p.Users {
			if id == user.ID {
				return true, nil
			}
		}
		for _, role := range p.Roles {
			for _, id := range s.roles[role] {
				if id == user.ID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/storage"
)

// UserRepository stores accounts in the users collection.
type UserRepository struct {
	store storage.RecordStore
}

// NewUserRepository creates a repository over store.
func NewUserRepository(store storage.RecordStore) *UserRepository {
	return &UserRepository{store: store}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	data, err := encode(u)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, storage.Users, &storage.Record{ID: u.ID, CreatedAt: u.CreatedAt, Data: data}); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	rec, err := r.store.Get(ctx, storage.Users, id)
	if err != nil {
		return nil, notFound("user", id, err)
	}
	u := &models.User{}
	if err := decode(rec, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByUsername finds a user by username, ignoring case.
// Returns ErrNotFound when nobody has that username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	users, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

// GetUsersByIDs returns a map of user ID to User. Unknown IDs are omitted.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if _, ok := users[id]; ok {
			continue
		}
		u, err := r.GetUserByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		users[id] = u
	}
	return users, nil
}

func (r *UserRepository) list(ctx context.Context) ([]*models.User, error) {
	recs, err := r.store.List(ctx, storage.Users, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*models.User, 0, len(recs))
	for _, rec := range recs {
		u := &models.User{}
		if err := decode(rec, u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

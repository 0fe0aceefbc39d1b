package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/storage"
)

// GroupRepository stores groups in the groups collection.
type GroupRepository struct {
	store storage.RecordStore
}

// NewGroupRepository creates a repository over store.
func NewGroupRepository(store storage.RecordStore) *GroupRepository {
	return &GroupRepository{store: store}
}

// Create persists a new group, assigning ID, CreatedAt and StorageType when unset.
func (r *GroupRepository) Create(ctx context.Context, g *models.Group) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().UnixMilli()
	}
	if g.StorageType == "" {
		g.StorageType = models.StorageLocal
	}
	return r.put(ctx, g)
}

// Get retrieves a group by ID. Records written before invites existed get
// empty pending lists and fall back to their first member as creator.
func (r *GroupRepository) Get(ctx context.Context, id string) (*models.Group, error) {
	rec, err := r.store.Get(ctx, storage.Groups, id)
	if err != nil {
		return nil, notFound("group", id, err)
	}
	g := &models.Group{}
	if err := decode(rec, g); err != nil {
		return nil, err
	}
	normalizeGroup(g)
	return g, nil
}

// Update fully replaces an existing group.
func (r *GroupRepository) Update(ctx context.Context, g *models.Group) error {
	if _, err := r.store.Get(ctx, storage.Groups, g.ID); err != nil {
		return notFound("group", g.ID, err)
	}
	return r.put(ctx, g)
}

// Delete removes a group. Its expenses are left to the caller.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, storage.Groups, id)
}

// List returns every group, newest first.
func (r *GroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	recs, err := r.store.List(ctx, storage.Groups, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	groups := make([]*models.Group, 0, len(recs))
	for _, rec := range recs {
		g := &models.Group{}
		if err := decode(rec, g); err != nil {
			return nil, err
		}
		normalizeGroup(g)
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *GroupRepository) put(ctx context.Context, g *models.Group) error {
	data, err := encode(g)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, storage.Groups, &storage.Record{
		ID:        g.ID,
		CreatedAt: g.CreatedAt,
		Data:      data,
	})
}

func normalizeGroup(g *models.Group) {
	if g.Members == nil {
		g.Members = []string{}
	}
	if g.PendingMembers == nil {
		g.PendingMembers = []string{}
	}
	if g.JoinRequests == nil {
		g.JoinRequests = []string{}
	}
	if g.CreatedBy == "" && len(g.Members) > 0 {
		g.CreatedBy = g.Members[0]
	}
	if g.StorageType == "" {
		g.StorageType = models.StorageLocal
	}
}

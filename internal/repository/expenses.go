package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/storage"
)

// ExpenseRepository stores expenses in the expenses collection.
type ExpenseRepository struct {
	store storage.RecordStore
}

// NewExpenseRepository creates a repository over store.
func NewExpenseRepository(store storage.RecordStore) *ExpenseRepository {
	return &ExpenseRepository{store: store}
}

// Create persists a new expense, assigning ID and CreatedAt when unset.
func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	return r.put(ctx, e)
}

// Get retrieves an expense by ID.
func (r *ExpenseRepository) Get(ctx context.Context, id string) (*models.Expense, error) {
	rec, err := r.store.Get(ctx, storage.Expenses, id)
	if err != nil {
		return nil, notFound("expense", id, err)
	}
	e := &models.Expense{}
	if err := decode(rec, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Update fully replaces an existing expense.
// Returns ErrNotFound if no expense has e.ID.
func (r *ExpenseRepository) Update(ctx context.Context, e *models.Expense) error {
	if _, err := r.store.Get(ctx, storage.Expenses, e.ID); err != nil {
		return notFound("expense", e.ID, err)
	}
	return r.put(ctx, e)
}

// Delete removes an expense. Deleting a missing expense is a no-op.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, storage.Expenses, id)
}

// ListByGroup returns a group's expenses, newest first.
func (r *ExpenseRepository) ListByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	recs, err := r.store.List(ctx, storage.Expenses, storage.Filter{GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for group %s: %w", groupID, err)
	}

	expenses := make([]*models.Expense, 0, len(recs))
	for _, rec := range recs {
		e := &models.Expense{}
		if err := decode(rec, e); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// DeleteAllByGroup removes every expense of a group.
func (r *ExpenseRepository) DeleteAllByGroup(ctx context.Context, groupID string) error {
	if groupID == "" {
		return errors.New("group ID is required")
	}
	return r.store.DeleteWhere(ctx, storage.Expenses, storage.Filter{GroupID: groupID})
}

func (r *ExpenseRepository) put(ctx context.Context, e *models.Expense) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, storage.Expenses, &storage.Record{
		ID:        e.ID,
		GroupID:   e.GroupID,
		CreatedAt: e.CreatedAt,
		Data:      data,
	})
}

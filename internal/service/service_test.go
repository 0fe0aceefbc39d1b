package service

import (
	"context"
	"sync"
	"testing"

	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/repository"
	"github.com/mmynk/splitplus/internal/storage/memory"
)

// recordingHook collects commit events for assertions.
type recordingHook struct {
	mu     sync.Mutex
	events []CommitEvent
	err    error
}

func (h *recordingHook) AfterCommit(_ context.Context, ev CommitEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.err
}

func (h *recordingHook) Events() []CommitEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]CommitEvent(nil), h.events...)
}

type testEnv struct {
	expenses *repository.ExpenseRepository
	groups   *repository.GroupRepository
	hook     *recordingHook
	svc      *ExpenseService
	groupSvc *GroupService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	env := &testEnv{
		expenses: repository.NewExpenseRepository(store),
		groups:   repository.NewGroupRepository(store),
		hook:     &recordingHook{},
	}
	env.svc = NewExpenseService(env.expenses, env.groups, WithCommitHooks(env.hook))
	env.groupSvc = NewGroupService(env.groups, env.expenses, WithCommitHooks(env.hook))
	return env
}

// createGroup stores a group whose members are all active.
func (env *testEnv) createGroup(t *testing.T, members ...string) *models.Group {
	t.Helper()
	g := &models.Group{Name: "Roommates", Members: members, CreatedBy: members[0]}
	if err := env.groups.Create(context.Background(), g); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return g
}

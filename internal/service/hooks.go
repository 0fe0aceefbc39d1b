package service

import (
	"context"
	"log/slog"
	"sync"
)

// Op names the mutation that produced a CommitEvent.
type Op string

const (
	OpExpenseCreated Op = "expense_created"
	OpExpenseUpdated Op = "expense_updated"
	OpExpenseDeleted Op = "expense_deleted"
	OpGroupChanged   Op = "group_changed"
)

// CommitEvent describes a mutation that has been durably written.
type CommitEvent struct {
	GroupID   string
	ExpenseID string // empty for group-level changes
	Op        Op
}

// CommitHook is notified after a successful local write. Hooks run on their
// own goroutine; an error is logged and never reaches the caller of the
// mutation.
type CommitHook interface {
	AfterCommit(ctx context.Context, ev CommitEvent) error
}

// CommitHookFunc adapts a function to CommitHook.
type CommitHookFunc func(ctx context.Context, ev CommitEvent) error

func (f CommitHookFunc) AfterCommit(ctx context.Context, ev CommitEvent) error {
	return f(ctx, ev)
}

type hookRunner struct {
	hooks []CommitHook
	wg    sync.WaitGroup
}

// fire runs every hook asynchronously. The context keeps request values but
// is detached from the request's cancellation.
func (r *hookRunner) fire(ctx context.Context, ev CommitEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range r.hooks {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer func() {
				if p := recover(); p != nil {
					slog.Error("Commit hook panicked", "op", ev.Op, "group_id", ev.GroupID, "panic", p)
				}
			}()
			if err := h.AfterCommit(ctx, ev); err != nil {
				slog.Warn("Commit hook failed",
					"op", ev.Op,
					"group_id", ev.GroupID,
					"expense_id", ev.ExpenseID,
					"error", err,
				)
			}
		}()
	}
}

// wait blocks until every fired hook has returned.
func (r *hookRunner) wait() {
	r.wg.Wait()
}

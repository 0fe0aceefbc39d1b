package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/splitplus/internal/metrics"
	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/service"
)

// ErrNotMirrored is returned by Pull for groups kept only locally.
var ErrNotMirrored = errors.New("group is not mirrored")

// GroupStore is the group persistence the syncer needs.
type GroupStore interface {
	Get(ctx context.Context, id string) (*models.Group, error)
	Update(ctx context.Context, g *models.Group) error
}

// ExpenseStore is the expense persistence the syncer needs.
type ExpenseStore interface {
	Create(ctx context.Context, e *models.Expense) error
	ListByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	DeleteAllByGroup(ctx context.Context, groupID string) error
}

// UserLookup resolves member IDs to users for the members sheet.
type UserLookup interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// Syncer keeps SHEET groups in step with their mirror. It is registered as a
// commit hook so every local write is followed by a push.
//
// At most one push per group is in flight. Commits that land while a push is
// running mark the group dirty, and the running push goes around once more so
// the last snapshot sent is never older than the last commit.
type Syncer struct {
	client   *Client
	groups   GroupStore
	expenses ExpenseStore
	users    UserLookup
	metrics  *metrics.Metrics

	mu       sync.Mutex
	inflight map[string]bool // group ID -> dirty
}

// NewSyncer creates a Syncer. m may be nil.
func NewSyncer(client *Client, groups GroupStore, expenses ExpenseStore, users UserLookup, m *metrics.Metrics) *Syncer {
	return &Syncer{
		client:   client,
		groups:   groups,
		expenses: expenses,
		users:    users,
		metrics:  m,
		inflight: make(map[string]bool),
	}
}

var _ service.CommitHook = (*Syncer)(nil)

// AfterCommit pushes the group touched by ev. If a push for the group is
// already running it is asked to repeat, and AfterCommit returns at once.
func (s *Syncer) AfterCommit(ctx context.Context, ev service.CommitEvent) error {
	if !s.claim(ev.GroupID) {
		return nil
	}
	for {
		err := s.Push(ctx, ev.GroupID)
		if !s.repeat(ev.GroupID) {
			return err
		}
		if err != nil {
			slog.Warn("Mirror push failed, retrying with newer state", "group_id", ev.GroupID, "error", err)
		}
	}
}

// claim marks a push for groupID as running. It returns false when one
// already is, after flagging the group dirty.
func (s *Syncer) claim(groupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inflight[groupID]; running {
		s.inflight[groupID] = true
		return false
	}
	s.inflight[groupID] = false
	return true
}

// repeat reports whether the group changed during the last push. When it did
// not, the group is released.
func (s *Syncer) repeat(groupID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[groupID] {
		s.inflight[groupID] = false
		return true
	}
	delete(s.inflight, groupID)
	return false
}

// Push uploads the group's full snapshot. Groups stored only locally are
// skipped without error.
func (s *Syncer) Push(ctx context.Context, groupID string) error {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to load group %s: %w", groupID, err)
	}
	if !g.Mirrored() {
		return nil
	}

	expenses, err := s.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to list expenses for group %s: %w", groupID, err)
	}
	usernames, err := s.usernames(ctx, g)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.client.SyncGroup(ctx, g.ConnectionString, EncodeGroup(g, usernames, expenses))
	s.metrics.MirrorSynced(ActionSyncGroup, err, time.Since(start).Seconds())
	if err != nil {
		slog.Warn("Mirror push failed", "group_id", groupID, "error", err)
		return err
	}

	slog.Info("Mirror push succeeded", "group_id", groupID, "expenses_count", len(expenses))
	return nil
}

// PullResult summarizes a completed pull.
type PullResult struct {
	Group    *models.Group
	Expenses int
}

// Pull replaces the group's local expenses and member lists with the remote
// snapshot. Remote data wins wholesale; nothing is merged. If any write fails
// the group's previous expenses are restored and the group record is left
// as it was.
func (s *Syncer) Pull(ctx context.Context, groupID string) (*PullResult, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", groupID, err)
	}
	if !g.Mirrored() {
		return nil, ErrNotMirrored
	}

	start := time.Now()
	snapshot, err := s.client.GetAll(ctx, g.ConnectionString)
	s.metrics.MirrorSynced(ActionGetAll, err, time.Since(start).Seconds())
	if err != nil {
		slog.Warn("Mirror pull failed", "group_id", groupID, "error", err)
		return nil, err
	}

	expenses := DecodeExpenses(groupID, snapshot.Expenses)
	previous, err := s.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for group %s: %w", groupID, err)
	}

	ApplyMembers(g, snapshot.Members)
	if snapshot.Meta.Name != "" {
		g.Name = snapshot.Meta.Name
	}

	err = s.replaceExpenses(ctx, groupID, expenses)
	if err == nil {
		if err = s.groups.Update(ctx, g); err != nil {
			err = fmt.Errorf("failed to update group %s: %w", groupID, err)
		}
	}
	if err != nil {
		if rerr := s.replaceExpenses(ctx, groupID, previous); rerr != nil {
			slog.Error("Mirror pull rollback failed", "group_id", groupID, "error", rerr)
		}
		slog.Warn("Mirror pull not applied", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Mirror pull applied",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"members_count", len(g.Members),
	)
	return &PullResult{Group: g, Expenses: len(expenses)}, nil
}

// replaceExpenses swaps the group's stored expenses for expenses.
func (s *Syncer) replaceExpenses(ctx context.Context, groupID string, expenses []*models.Expense) error {
	if err := s.expenses.DeleteAllByGroup(ctx, groupID); err != nil {
		return fmt.Errorf("failed to clear expenses for group %s: %w", groupID, err)
	}
	for _, e := range expenses {
		if err := s.expenses.Create(ctx, e); err != nil {
			return fmt.Errorf("failed to store pulled expense %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *Syncer) usernames(ctx context.Context, g *models.Group) (map[string]string, error) {
	ids := make([]string, 0, len(g.Members)+len(g.PendingMembers)+len(g.JoinRequests))
	ids = append(ids, g.Members...)
	ids = append(ids, g.PendingMembers...)
	ids = append(ids, g.JoinRequests...)

	if s.users == nil {
		return map[string]string{}, nil
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member names: %w", err)
	}
	names := make(map[string]string, len(users))
	for id, u := range users {
		names[id] = u.Username
	}
	return names, nil
}

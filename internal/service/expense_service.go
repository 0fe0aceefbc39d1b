// Package service orchestrates expense and group mutations on top of the
// repositories: inputs are validated and splits derived before anything is
// written, and commit hooks fire after a successful write.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/splitplus/internal/calculator"
	"github.com/mmynk/splitplus/internal/metrics"
	"github.com/mmynk/splitplus/internal/models"
)

// ExpenseStore is the persistence the expense service needs.
type ExpenseStore interface {
	Create(ctx context.Context, e *models.Expense) error
	Get(ctx context.Context, id string) (*models.Expense, error)
	Update(ctx context.Context, e *models.Expense) error
	Delete(ctx context.Context, id string) error
	ListByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	DeleteAllByGroup(ctx context.Context, groupID string) error
}

// GroupStore is the persistence the group service needs.
type GroupStore interface {
	Create(ctx context.Context, g *models.Group) error
	Get(ctx context.Context, id string) (*models.Group, error)
	Update(ctx context.Context, g *models.Group) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Group, error)
}

// ExpenseInput is the caller-supplied part of an expense. Inputs is read for
// EXACT (amounts) and PERCENTAGE (percentages) splits and ignored for EQUAL.
type ExpenseInput struct {
	Description string
	Amount      float64
	PaidBy      string
	SplitType   models.SplitType
	Inputs      calculator.RawInputs
}

// GroupBalances is the derived ledger of a group.
type GroupBalances struct {
	GroupID  string
	Balances calculator.Balances
	Members  []calculator.MemberBalance
	Debts    []calculator.DebtEdge
}

// Option configures an ExpenseService or GroupService.
type Option func(*options)

type options struct {
	hooks   []CommitHook
	metrics *metrics.Metrics
}

// WithCommitHooks registers hooks to run after every successful write.
func WithCommitHooks(hooks ...CommitHook) Option {
	return func(o *options) { o.hooks = append(o.hooks, hooks...) }
}

// WithMetrics records mutations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ExpenseService creates, updates and deletes expenses. Splits are always
// derived from the policy and the group's current members, so every persisted
// expense satisfies sum(splits) == amount.
type ExpenseService struct {
	expenses ExpenseStore
	groups   GroupStore
	metrics  *metrics.Metrics
	hooks    hookRunner
}

// NewExpenseService creates a new ExpenseService with the given storage backends.
func NewExpenseService(expenses ExpenseStore, groups GroupStore, opts ...Option) *ExpenseService {
	o := buildOptions(opts)
	return &ExpenseService{
		expenses: expenses,
		groups:   groups,
		metrics:  o.metrics,
		hooks:    hookRunner{hooks: o.hooks},
	}
}

// PreviewSplit runs the split calculation without writing anything.
func (s *ExpenseService) PreviewSplit(ctx context.Context, groupID string, in ExpenseInput) ([]models.Split, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.validate(group, in)
}

// CreateExpense validates in, derives its splits and persists a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, groupID string, in ExpenseInput) (*models.Expense, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	splits, err := s.validate(group, in)
	if err != nil {
		slog.Warn("CreateExpense rejected", "group_id", groupID, "error", err)
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PaidBy:      in.PaidBy,
		SplitType:   splitTypeOrDefault(in.SplitType),
		Splits:      splits,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "group_id", groupID, "error", err)
		s.metrics.ExpenseRejected("persistence")
		return nil, &PersistenceError{Op: "create expense", Err: err}
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount", expense.Amount,
		"split_type", expense.SplitType,
	)
	s.metrics.ExpenseCommitted("create")
	s.hooks.fire(ctx, CommitEvent{GroupID: expense.GroupID, ExpenseID: expense.ID, Op: OpExpenseCreated})
	return expense, nil
}

// UpdateExpense replaces the description, amount, payer and splits of an
// existing expense. ID, group and creation time never change.
func (s *ExpenseService) UpdateExpense(ctx context.Context, expenseID string, in ExpenseInput) (*models.Expense, error) {
	existing, err := s.expenses.Get(ctx, expenseID)
	if err != nil {
		return nil, storeErr("get expense", err)
	}

	group, err := s.loadGroup(ctx, existing.GroupID)
	if err != nil {
		return nil, err
	}

	splits, err := s.validate(group, in)
	if err != nil {
		slog.Warn("UpdateExpense rejected", "expense_id", expenseID, "error", err)
		return nil, err
	}

	updated := &models.Expense{
		ID:          existing.ID,
		GroupID:     existing.GroupID,
		CreatedAt:   existing.CreatedAt,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PaidBy:      in.PaidBy,
		SplitType:   splitTypeOrDefault(in.SplitType),
		Splits:      splits,
	}
	if err := s.expenses.Update(ctx, updated); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expenseID, "error", err)
		s.metrics.ExpenseRejected("persistence")
		return nil, storeErr("update expense", err)
	}

	slog.Info("Expense updated", "expense_id", updated.ID, "group_id", updated.GroupID)
	s.metrics.ExpenseCommitted("update")
	s.hooks.fire(ctx, CommitEvent{GroupID: updated.GroupID, ExpenseID: updated.ID, Op: OpExpenseUpdated})
	return updated, nil
}

// DeleteExpense removes an expense. Returns ErrNotFound if it does not exist.
func (s *ExpenseService) DeleteExpense(ctx context.Context, expenseID string) error {
	existing, err := s.expenses.Get(ctx, expenseID)
	if err != nil {
		return storeErr("get expense", err)
	}

	if err := s.expenses.Delete(ctx, expenseID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expenseID, "error", err)
		return &PersistenceError{Op: "delete expense", Err: err}
	}

	slog.Info("Expense deleted", "expense_id", expenseID, "group_id", existing.GroupID)
	s.metrics.ExpenseCommitted("delete")
	s.hooks.fire(ctx, CommitEvent{GroupID: existing.GroupID, ExpenseID: expenseID, Op: OpExpenseDeleted})
	return nil
}

// GetExpense retrieves a single expense.
func (s *ExpenseService) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	e, err := s.expenses.Get(ctx, expenseID)
	if err != nil {
		return nil, storeErr("get expense", err)
	}
	return e, nil
}

// ListExpenses returns a group's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storeErr("list expenses", err)
	}
	return expenses, nil
}

// GroupBalances recomputes the group's balances from its stored expenses.
func (s *ExpenseService) GroupBalances(ctx context.Context, groupID string) (*GroupBalances, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, storeErr("list expenses", err)
	}

	balances := calculator.Compute(expenses, group.Members)
	result := &GroupBalances{
		GroupID:  group.ID,
		Balances: balances,
		Members:  calculator.Summarize(expenses, group.Members),
		Debts:    calculator.SimplifyDebts(balances),
	}

	slog.Debug("Group balances computed",
		"group_id", groupID,
		"expenses_count", len(expenses),
		"members_count", len(result.Members),
		"debts_count", len(result.Debts),
	)
	return result, nil
}

// Wait blocks until every commit hook fired so far has finished.
func (s *ExpenseService) Wait() {
	s.hooks.wait()
}

func (s *ExpenseService) loadGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, ErrGroupRequired
	}
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, storeErr("get group", err)
	}
	return group, nil
}

// validate checks the caller input against the group and derives the splits.
func (s *ExpenseService) validate(group *models.Group, in ExpenseInput) ([]models.Split, error) {
	err := func() error {
		if strings.TrimSpace(in.Description) == "" {
			return ErrEmptyDescription
		}
		if !group.IsMember(in.PaidBy) {
			return &NotMemberError{GroupID: group.ID, UserID: in.PaidBy}
		}
		return nil
	}()
	if err != nil {
		s.metrics.ExpenseRejected(rejectionReason(err))
		return nil, err
	}

	splits, err := calculator.Calculate(splitTypeOrDefault(in.SplitType), in.Amount, group.Members, in.Inputs)
	if err != nil {
		s.metrics.ExpenseRejected(rejectionReason(err))
		return nil, err
	}
	return splits, nil
}

func splitTypeOrDefault(t models.SplitType) models.SplitType {
	if t == "" {
		return models.SplitTypeEqual
	}
	return t
}

func rejectionReason(err error) string {
	var amountErr *calculator.InvalidAmountError
	var mismatchErr *calculator.SplitMismatchError
	var notMember *NotMemberError
	switch {
	case errors.As(err, &amountErr):
		return "invalid_amount"
	case errors.As(err, &mismatchErr):
		return "split_mismatch"
	case errors.Is(err, calculator.ErrEmptyMemberSet):
		return "empty_member_set"
	case errors.Is(err, calculator.ErrUnknownSplitType):
		return "unknown_split_type"
	case errors.As(err, &notMember):
		return "payer_not_member"
	case errors.Is(err, ErrEmptyDescription):
		return "empty_description"
	default:
		return "other"
	}
}

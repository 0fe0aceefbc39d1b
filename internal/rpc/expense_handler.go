package rpc

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitplus/internal/auth"
	"github.com/mmynk/splitplus/internal/calculator"
	"github.com/mmynk/splitplus/internal/middleware"
	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/service"
)

// ExpenseHandler implements splitplus.v1.ExpenseService. Every call requires
// the caller to be an active member of the expense's group.
type ExpenseHandler struct {
	expenses *service.ExpenseService
	groups   *service.GroupService
	users    UserDirectory
}

// NewExpenseHandler creates a new expense handler.
func NewExpenseHandler(expenses *service.ExpenseService, groups *service.GroupService, users UserDirectory) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, groups: groups, users: users}
}

// CreateExpense records a new expense in a group.
func (h *ExpenseHandler) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	slog.Info("CreateExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"split_type", req.Msg.SplitType,
	)
	callerID, err := h.authorize(ctx, req.Msg, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	expense, err := h.expenses.CreateExpense(ctx, req.Msg.GroupID, toInput(req.Msg.ExpenseFields, callerID))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpenseView(expense)}), nil
}

// UpdateExpense replaces an expense's editable fields and recomputes its splits.
func (h *ExpenseHandler) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	slog.Info("UpdateExpense request received", "expense_id", req.Msg.ExpenseID)
	callerID, err := h.authorizeExpense(ctx, req.Msg, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}

	expense, err := h.expenses.UpdateExpense(ctx, req.Msg.ExpenseID, toInput(req.Msg.ExpenseFields, callerID))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpenseView(expense)}), nil
}

// DeleteExpense removes an expense.
func (h *ExpenseHandler) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)
	if _, err := h.authorizeExpense(ctx, req.Msg, req.Msg.ExpenseID); err != nil {
		return nil, err
	}

	if err := h.expenses.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// ListExpenses returns a group's expenses, newest first.
func (h *ExpenseHandler) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	if _, err := h.authorize(ctx, req.Msg, req.Msg.GroupID); err != nil {
		return nil, err
	}

	expenses, err := h.expenses.ListExpenses(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	views := make([]ExpenseView, len(expenses))
	for i, e := range expenses {
		views[i] = toExpenseView(e)
	}
	slog.Debug("ListExpenses successful", "group_id", req.Msg.GroupID, "count", len(views))
	return connect.NewResponse(&ListExpensesResponse{Expenses: views}), nil
}

// GetGroupBalances recomputes the group's balances and suggested transfers.
func (h *ExpenseHandler) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GroupBalancesResponse], error) {
	if _, err := h.authorize(ctx, req.Msg, req.Msg.GroupID); err != nil {
		return nil, err
	}

	balances, err := h.expenses.GroupBalances(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	ids := make([]string, len(balances.Members))
	for i, m := range balances.Members {
		ids[i] = m.UserID
	}
	users, err := h.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toBalancesResponse(balances, users)), nil
}

// PreviewSplit computes the splits an expense would get without saving it.
func (h *ExpenseHandler) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	callerID, err := h.authorize(ctx, req.Msg, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	splits, err := h.expenses.PreviewSplit(ctx, req.Msg.GroupID, toInput(req.Msg.ExpenseFields, callerID))
	if err != nil {
		return nil, toConnectError(err)
	}

	var total float64
	for _, s := range splits {
		total += s.Amount
	}
	return connect.NewResponse(&PreviewSplitResponse{
		Splits:       toSplitViews(splits),
		Total:        total,
		TotalDisplay: display(total),
	}), nil
}

// authorize validates msg and checks the caller belongs to groupID.
func (h *ExpenseHandler) authorize(ctx context.Context, msg any, groupID string) (string, error) {
	callerID, err := caller(ctx)
	if err != nil {
		return "", err
	}
	if err := validateRequest(msg); err != nil {
		return "", err
	}
	group, err := h.groups.GetGroup(ctx, groupID)
	if err != nil {
		return "", toConnectError(err)
	}
	if !group.IsMember(callerID) {
		return "", toConnectError(errNotGroupMember)
	}
	return callerID, nil
}

// authorizeExpense is authorize for the group owning expenseID.
func (h *ExpenseHandler) authorizeExpense(ctx context.Context, msg any, expenseID string) (string, error) {
	if err := validateRequest(msg); err != nil {
		return "", err
	}
	existing, err := h.expenses.GetExpense(ctx, expenseID)
	if err != nil {
		return "", toConnectError(err)
	}
	return h.authorize(ctx, msg, existing.GroupID)
}

func toInput(f ExpenseFields, callerID string) service.ExpenseInput {
	paidBy := f.PaidBy
	if paidBy == "" {
		paidBy = callerID
	}
	return service.ExpenseInput{
		Description: f.Description,
		Amount:      f.Amount,
		PaidBy:      paidBy,
		SplitType:   models.SplitType(f.SplitType),
		Inputs:      calculator.RawInputs(f.Inputs),
	}
}

// caller returns the authenticated user ID.
func caller(ctx context.Context) (string, error) {
	id := middleware.GetUserID(ctx)
	if id == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return id, nil
}

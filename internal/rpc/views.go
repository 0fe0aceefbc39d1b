package rpc

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitplus/internal/calculator"
	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/service"
)

// UserDirectory resolves users for requests and views.
type UserDirectory interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// display rounds x to cents for presentation. Stored values keep full precision.
// Values that are not finite show as 0.00.
func display(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		x = 0
	}
	return decimal.NewFromFloat(x).StringFixed(2)
}

func toUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

func toSplitViews(splits []models.Split) []SplitView {
	views := make([]SplitView, len(splits))
	for i, s := range splits {
		views[i] = SplitView{UserID: s.UserID, Amount: s.Amount, Display: display(s.Amount)}
	}
	return views
}

func toExpenseView(e *models.Expense) ExpenseView {
	splitType := e.SplitType
	if splitType == "" {
		splitType = models.SplitTypeEqual
	}
	return ExpenseView{
		ID:            e.ID,
		GroupID:       e.GroupID,
		Description:   e.Description,
		Amount:        e.Amount,
		AmountDisplay: display(e.Amount),
		PaidBy:        e.PaidBy,
		SplitType:     string(splitType),
		Splits:        toSplitViews(e.Splits),
		Inputs:        calculator.RepopulateInputs(e),
		CreatedAt:     e.CreatedAt,
	}
}

func toBalancesResponse(b *service.GroupBalances, users map[string]*models.User) *GroupBalancesResponse {
	resp := &GroupBalancesResponse{
		GroupID: b.GroupID,
		Members: make([]MemberBalanceView, len(b.Members)),
		Debts:   make([]DebtView, len(b.Debts)),
	}
	for i, m := range b.Members {
		resp.Members[i] = MemberBalanceView{
			UserID:     m.UserID,
			Username:   username(users, m.UserID),
			Net:        m.Net,
			NetDisplay: display(m.Net),
			Paid:       m.Paid,
			Owed:       m.Owed,
		}
	}
	for i, d := range b.Debts {
		resp.Debts[i] = DebtView{From: d.From, To: d.To, Amount: d.Amount, Display: display(d.Amount)}
	}
	return resp
}

// toGroupView lists members by status. The mirror URL is shown only to
// active members.
func toGroupView(g *models.Group, users map[string]*models.User, callerID string) GroupView {
	view := GroupView{
		ID:          g.ID,
		Name:        g.Name,
		Members:     make([]MemberView, 0, len(g.Members)+len(g.PendingMembers)+len(g.JoinRequests)),
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
		StorageType: string(g.StorageType),
	}
	if g.IsMember(callerID) {
		view.ConnectionString = g.ConnectionString
	}
	add := func(ids []string, status models.MemberStatus) {
		for _, id := range ids {
			view.Members = append(view.Members, MemberView{ID: id, Username: username(users, id), Status: string(status)})
		}
	}
	add(g.Members, models.MemberActive)
	add(g.PendingMembers, models.MemberPending)
	add(g.JoinRequests, models.MemberRequested)
	return view
}

func groupUserIDs(groups ...*models.Group) []string {
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.Members...)
		ids = append(ids, g.PendingMembers...)
		ids = append(ids, g.JoinRequests...)
	}
	return ids
}

func username(users map[string]*models.User, id string) string {
	if u, ok := users[id]; ok {
		return u.Username
	}
	return ""
}

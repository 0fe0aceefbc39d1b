package rpc

// UserView is the public part of a user.
type UserView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt int64  `json:"createdAt"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// ExpenseFields are the caller-editable fields of an expense. Inputs holds
// the raw per-member amounts (EXACT) or percentages (PERCENTAGE). PaidBy
// defaults to the caller.
type ExpenseFields struct {
	Description string            `json:"description" validate:"required,max=200"`
	Amount      float64           `json:"amount"`
	PaidBy      string            `json:"paidBy,omitempty"`
	SplitType   string            `json:"splitType,omitempty" validate:"omitempty,oneof=EQUAL EXACT PERCENTAGE"`
	Inputs      map[string]string `json:"inputs,omitempty"`
}

type CreateExpenseRequest struct {
	GroupID string `json:"groupId" validate:"required"`
	ExpenseFields
}

type UpdateExpenseRequest struct {
	ExpenseID string `json:"expenseId" validate:"required"`
	ExpenseFields
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId" validate:"required"`
}

type DeleteExpenseResponse struct{}

type ListExpensesRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type ListExpensesResponse struct {
	Expenses []ExpenseView `json:"expenses"`
}

type ExpenseResponse struct {
	Expense ExpenseView `json:"expense"`
}

type PreviewSplitRequest = CreateExpenseRequest

type PreviewSplitResponse struct {
	Splits       []SplitView `json:"splits"`
	Total        float64     `json:"total"`
	TotalDisplay string      `json:"totalDisplay"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type GroupBalancesResponse struct {
	GroupID string              `json:"groupId"`
	Members []MemberBalanceView `json:"members"`
	Debts   []DebtView          `json:"debts"`
}

// ExpenseView is an expense as shown to clients. Inputs repopulates the edit
// form for the expense's split type.
type ExpenseView struct {
	ID            string            `json:"id"`
	GroupID       string            `json:"groupId"`
	Description   string            `json:"description"`
	Amount        float64           `json:"amount"`
	AmountDisplay string            `json:"amountDisplay"`
	PaidBy        string            `json:"paidBy"`
	SplitType     string            `json:"splitType"`
	Splits        []SplitView       `json:"splits"`
	Inputs        map[string]string `json:"inputs"`
	CreatedAt     int64             `json:"createdAt"`
}

type SplitView struct {
	UserID  string  `json:"userId"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

// MemberBalanceView is positive when the member is owed money.
type MemberBalanceView struct {
	UserID     string  `json:"userId"`
	Username   string  `json:"username"`
	Net        float64 `json:"net"`
	NetDisplay string  `json:"netDisplay"`
	Paid       float64 `json:"paid"`
	Owed       float64 `json:"owed"`
}

type DebtView struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

type MemberView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type GroupView struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Members          []MemberView `json:"members"`
	CreatedBy        string       `json:"createdBy"`
	CreatedAt        int64        `json:"createdAt"`
	StorageType      string       `json:"storageType"`
	ConnectionString string       `json:"connectionString,omitempty"`
}

type CreateGroupRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Invitees []string `json:"invitees,omitempty" validate:"dive,required"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

type GroupResponse struct {
	Group GroupView `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups  []GroupView `json:"groups"`
	Invites []GroupView `json:"invites"`
}

type InviteMemberRequest struct {
	GroupID  string `json:"groupId" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// GroupActionRequest names a group the caller acts on for themselves.
type GroupActionRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

// MemberActionRequest names another user the caller acts on.
type MemberActionRequest struct {
	GroupID string `json:"groupId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

type DeleteGroupResponse struct{}

type ConfigureMirrorRequest struct {
	GroupID string `json:"groupId" validate:"required"`
	URL     string `json:"url" validate:"omitempty,url"`
}

type PullMirrorResponse struct {
	Group    GroupView `json:"group"`
	Expenses int       `json:"expenses"`
}

package models

// SplitType is the policy used to derive an expense's splits from its amount.
type SplitType string

const (
	SplitTypeEqual      SplitType = "EQUAL"
	SplitTypeExact      SplitType = "EXACT"
	SplitTypePercentage SplitType = "PERCENTAGE"
)

// Valid reports whether t is one of the known split policies.
func (t SplitType) Valid() bool {
	switch t {
	case SplitTypeEqual, SplitTypeExact, SplitTypePercentage:
		return true
	}
	return false
}

// Expense is a single cost fronted by one member and shared by several.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format). Immutable.
	ID string `json:"id"`

	// GroupID is the owning group. Immutable.
	GroupID string `json:"groupId"`

	// Description is free text, never empty.
	Description string `json:"description"`

	// Amount is the total cost. Always strictly positive.
	Amount float64 `json:"amount"`

	// PaidBy is the user ID of the member who fronted the money.
	PaidBy string `json:"paidBy"`

	// SplitType is the policy the splits were derived with. It is kept so the
	// edit form can be repopulated; the balance computation ignores it.
	SplitType SplitType `json:"splitType"`

	// Splits is the authoritative per-member share. The amounts sum to Amount
	// (within 0.01) at the moment the expense is written.
	Splits []Split `json:"splits"`

	// LegacySplitAmong is read from records written before explicit splits
	// existed. New code never sets it.
	LegacySplitAmong []string `json:"splitAmong,omitempty"`

	// CreatedAt is the Unix timestamp in milliseconds. Immutable.
	CreatedAt int64 `json:"createdAt"`
}

// Split is one member's share of an expense.
type Split struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// Participants returns the user IDs in the expense's splits, in order.
func (e *Expense) Participants() []string {
	ids := make([]string, len(e.Splits))
	for i, s := range e.Splits {
		ids[i] = s.UserID
	}
	return ids
}

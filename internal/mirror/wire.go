// Package mirror pushes groups to, and pulls them from, a spreadsheet-backed
// web app. The mirror is best-effort: the local store stays the source of
// truth and a failed sync never undoes a local write.
package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitplus/internal/models"
)

const (
	ActionSyncGroup = "SYNC_GROUP"
	ActionGetAll    = "GET_ALL"

	StatusSuccess = "success"
)

// Meta is the group header row.
type Meta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
}

// Member is one row of the members sheet.
type Member struct {
	ID       string              `json:"id"`
	Username string              `json:"username"`
	Status   models.MemberStatus `json:"status"`
}

// WireExpense is one row of the expenses sheet. Splits travel as a JSON
// encoded string because the sheet is tabular.
type WireExpense struct {
	ID          string      `json:"id"`
	GroupID     string      `json:"groupId"`
	Description string      `json:"description"`
	Amount      Number      `json:"amount"`
	PaidBy      string      `json:"paidBy"`
	Splits      SplitsField `json:"splits"`
	SplitType   string      `json:"splitType"`
	CreatedAt   Number      `json:"createdAt"`
}

// Payload is the full snapshot of one group.
type Payload struct {
	Meta     Meta          `json:"meta"`
	Members  []Member      `json:"members"`
	Expenses []WireExpense `json:"expenses"`
}

// SyncGroupRequest is the POST body that overwrites the remote sheet.
type SyncGroupRequest struct {
	Action  string  `json:"action"`
	Payload Payload `json:"payload"`
}

// Ack is the remote response to a write.
type Ack struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// GetAllResponse is the remote response to a GET_ALL read.
type GetAllResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Data    Payload `json:"data"`
}

// Number decodes a JSON number or a numeric string. Sheet cells come back
// as either depending on how they were typed in.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		f := d.InexactFloat64()
		if math.IsInf(f, 0) {
			return fmt.Errorf("number %q is out of range", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// SplitsField holds an expense's splits. It is written as a JSON string and
// read from either a JSON string or an array; anything malformed reads as no
// splits.
type SplitsField []models.Split

func (s SplitsField) MarshalJSON() ([]byte, error) {
	splits := []models.Split(s)
	if splits == nil {
		splits = []models.Split{}
	}
	inner, err := json.Marshal(splits)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

func (s *SplitsField) UnmarshalJSON(b []byte) error {
	*s = nil
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return nil
		}
		b = []byte(inner)
	}
	var splits []models.Split
	if err := json.Unmarshal(b, &splits); err != nil {
		return nil
	}
	*s = splits
	return nil
}

// EncodeGroup builds the snapshot pushed for g. usernames maps user IDs to
// display names; unknown IDs are sent with an empty username.
func EncodeGroup(g *models.Group, usernames map[string]string, expenses []*models.Expense) Payload {
	p := Payload{
		Meta:     Meta{ID: g.ID, Name: g.Name, CreatedBy: g.CreatedBy},
		Members:  make([]Member, 0, len(g.Members)+len(g.PendingMembers)+len(g.JoinRequests)),
		Expenses: make([]WireExpense, 0, len(expenses)),
	}

	add := func(ids []string, status models.MemberStatus) {
		for _, id := range ids {
			p.Members = append(p.Members, Member{ID: id, Username: usernames[id], Status: status})
		}
	}
	add(g.Members, models.MemberActive)
	add(g.PendingMembers, models.MemberPending)
	add(g.JoinRequests, models.MemberRequested)

	for _, e := range expenses {
		p.Expenses = append(p.Expenses, WireExpense{
			ID:          e.ID,
			GroupID:     e.GroupID,
			Description: e.Description,
			Amount:      Number(e.Amount),
			PaidBy:      e.PaidBy,
			Splits:      SplitsField(e.Splits),
			SplitType:   string(e.SplitType),
			CreatedAt:   Number(e.CreatedAt),
		})
	}
	return p
}

// DecodeExpenses converts remote rows into expenses of groupID. Rows without
// an ID, and rows whose amounts are not positive finite numbers, are skipped.
func DecodeExpenses(groupID string, rows []WireExpense) []*models.Expense {
	expenses := make([]*models.Expense, 0, len(rows))
	for _, w := range rows {
		if w.ID == "" {
			continue
		}
		if !usableAmounts(w) {
			slog.Warn("Skipping mirror row with unusable amount", "expense_id", w.ID, "amount", float64(w.Amount))
			continue
		}
		splitType := models.SplitType(strings.ToUpper(strings.TrimSpace(w.SplitType)))
		if !splitType.Valid() {
			splitType = models.SplitTypeEqual
		}
		expenses = append(expenses, &models.Expense{
			ID:          w.ID,
			GroupID:     groupID,
			Description: w.Description,
			Amount:      float64(w.Amount),
			PaidBy:      w.PaidBy,
			SplitType:   splitType,
			Splits:      []models.Split(w.Splits),
			CreatedAt:   int64(w.CreatedAt),
		})
	}
	return expenses
}

// ApplyMembers replaces g's member lists with the statuses in members. An
// empty list leaves g untouched. Unknown statuses count as active.
func ApplyMembers(g *models.Group, members []Member) {
	if len(members) == 0 {
		return
	}
	g.Members = []string{}
	g.PendingMembers = []string{}
	g.JoinRequests = []string{}
	for _, m := range members {
		if m.ID == "" {
			continue
		}
		switch m.Status {
		case models.MemberPending:
			g.PendingMembers = append(g.PendingMembers, m.ID)
		case models.MemberRequested:
			g.JoinRequests = append(g.JoinRequests, m.ID)
		default:
			g.Members = append(g.Members, m.ID)
		}
	}
}

func usableAmounts(w WireExpense) bool {
	amount := float64(w.Amount)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return false
	}
	for _, sp := range w.Splits {
		if math.IsNaN(sp.Amount) || math.IsInf(sp.Amount, 0) {
			return false
		}
	}
	return true
}

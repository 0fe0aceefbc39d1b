package mirror

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/mmynk/splitplus/internal/models"
)

func TestEncodeGroup(t *testing.T) {
	g := &models.Group{
		ID:             "g1",
		Name:           "Trip",
		CreatedBy:      "u1",
		Members:        []string{"u1", "u2"},
		PendingMembers: []string{"u3"},
		JoinRequests:   []string{"u4"},
	}
	expenses := []*models.Expense{{
		ID:          "e1",
		GroupID:     "g1",
		Description: "Fuel",
		Amount:      40,
		PaidBy:      "u1",
		SplitType:   models.SplitTypeEqual,
		Splits:      []models.Split{{UserID: "u1", Amount: 20}, {UserID: "u2", Amount: 20}},
		CreatedAt:   1700000000000,
	}}

	p := EncodeGroup(g, map[string]string{"u1": "alice", "u2": "bob"}, expenses)

	wantMembers := []Member{
		{ID: "u1", Username: "alice", Status: models.MemberActive},
		{ID: "u2", Username: "bob", Status: models.MemberActive},
		{ID: "u3", Status: models.MemberPending},
		{ID: "u4", Status: models.MemberRequested},
	}
	if len(p.Members) != len(wantMembers) {
		t.Fatalf("got %d members, want %d", len(p.Members), len(wantMembers))
	}
	for i, m := range wantMembers {
		if p.Members[i] != m {
			t.Errorf("member[%d] = %+v, want %+v", i, p.Members[i], m)
		}
	}

	body, err := json.Marshal(SyncGroupRequest{Action: ActionSyncGroup, Payload: p})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw struct {
		Action  string `json:"action"`
		Payload struct {
			Meta     map[string]string `json:"meta"`
			Expenses []map[string]any  `json:"expenses"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if raw.Action != "SYNC_GROUP" {
		t.Errorf("action = %q", raw.Action)
	}
	if raw.Payload.Meta["id"] != "g1" || raw.Payload.Meta["createdBy"] != "u1" {
		t.Errorf("meta = %v", raw.Payload.Meta)
	}

	splits, ok := raw.Payload.Expenses[0]["splits"].(string)
	if !ok {
		t.Fatalf("splits should be a JSON string, got %T", raw.Payload.Expenses[0]["splits"])
	}
	if !strings.Contains(splits, `"userId":"u2"`) {
		t.Errorf("splits = %s", splits)
	}
	if raw.Payload.Expenses[0]["createdAt"].(float64) != 1700000000000 {
		t.Errorf("createdAt = %v", raw.Payload.Expenses[0]["createdAt"])
	}
}

func TestDecodeExpenses(t *testing.T) {
	body := `[
		{"id":"e1","groupId":"g1","description":"Fuel","amount":40,"paidBy":"u1",
		 "splits":"[{\"userId\":\"u1\",\"amount\":20},{\"userId\":\"u2\",\"amount\":20}]",
		 "splitType":"EQUAL","createdAt":1700000000000},
		{"id":"e2","groupId":"other","description":"Food","amount":"12.50","paidBy":"u2",
		 "splits":[{"userId":"u1","amount":12.5}],"splitType":"exact","createdAt":"1700000000001"},
		{"id":"e3","description":"Broken","amount":5,"paidBy":"u1","splits":"not json","splitType":"???"},
		{"id":"","description":"no id","amount":1}
	]`

	var rows []WireExpense
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	expenses := DecodeExpenses("g1", rows)
	if len(expenses) != 3 {
		t.Fatalf("got %d expenses, want 3", len(expenses))
	}

	tests := []struct {
		idx        int
		amount     float64
		splitType  models.SplitType
		splitCount int
		createdAt  int64
	}{
		{idx: 0, amount: 40, splitType: models.SplitTypeEqual, splitCount: 2, createdAt: 1700000000000},
		{idx: 1, amount: 12.5, splitType: models.SplitTypeExact, splitCount: 1, createdAt: 1700000000001},
		{idx: 2, amount: 5, splitType: models.SplitTypeEqual, splitCount: 0},
	}
	for _, tt := range tests {
		e := expenses[tt.idx]
		if e.GroupID != "g1" {
			t.Errorf("%s: GroupID = %q, want g1", e.ID, e.GroupID)
		}
		if e.Amount != tt.amount {
			t.Errorf("%s: Amount = %v, want %v", e.ID, e.Amount, tt.amount)
		}
		if e.SplitType != tt.splitType {
			t.Errorf("%s: SplitType = %q, want %q", e.ID, e.SplitType, tt.splitType)
		}
		if len(e.Splits) != tt.splitCount {
			t.Errorf("%s: got %d splits, want %d", e.ID, len(e.Splits), tt.splitCount)
		}
		if e.CreatedAt != tt.createdAt {
			t.Errorf("%s: CreatedAt = %d, want %d", e.ID, e.CreatedAt, tt.createdAt)
		}
	}
}

func TestNumber_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    float64
		wantErr bool
	}{
		{name: "number", body: `12.5`, want: 12.5},
		{name: "numeric string", body: `"7.25"`, want: 7.25},
		{name: "blank string", body: `"  "`, want: 0},
		{name: "null", body: `null`, want: 0},
		{name: "string overflow", body: `"1e400"`, wantErr: true},
		{name: "negative string overflow", body: `"-1e400"`, wantErr: true},
		{name: "number overflow", body: `1e400`, wantErr: true},
		{name: "not a number", body: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.body), &n)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", float64(n))
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if float64(n) != tt.want {
				t.Errorf("got %v, want %v", float64(n), tt.want)
			}
		})
	}
}

func TestDecodeExpenses_SkipsUnusableAmounts(t *testing.T) {
	rows := []WireExpense{
		{ID: "ok", Amount: 10, SplitType: "EQUAL"},
		{ID: "zero", Amount: 0},
		{ID: "negative", Amount: -4},
		{ID: "nan", Amount: Number(math.NaN())},
		{ID: "inf", Amount: Number(math.Inf(1))},
		{ID: "bad-split", Amount: 10, Splits: SplitsField{{UserID: "a", Amount: math.Inf(-1)}}},
		{ID: "tiny", Amount: 1e-310, SplitType: "PERCENTAGE", Splits: SplitsField{{UserID: "a", Amount: 1}}},
	}

	expenses := DecodeExpenses("g1", rows)
	var ids []string
	for _, e := range expenses {
		ids = append(ids, e.ID)
	}
	if strings.Join(ids, ",") != "ok,tiny" {
		t.Errorf("kept %v, want [ok tiny]", ids)
	}
}

func TestApplyMembers(t *testing.T) {
	g := &models.Group{Members: []string{"old"}}

	ApplyMembers(g, nil)
	if len(g.Members) != 1 {
		t.Fatalf("empty remote list must leave members untouched, got %v", g.Members)
	}

	ApplyMembers(g, []Member{
		{ID: "a", Status: models.MemberActive},
		{ID: "b", Status: models.MemberPending},
		{ID: "c", Status: models.MemberRequested},
		{ID: "d"},
		{ID: ""},
	})
	if len(g.Members) != 2 || g.Members[0] != "a" || g.Members[1] != "d" {
		t.Errorf("Members = %v, want [a d]", g.Members)
	}
	if len(g.PendingMembers) != 1 || g.PendingMembers[0] != "b" {
		t.Errorf("PendingMembers = %v", g.PendingMembers)
	}
	if len(g.JoinRequests) != 1 || g.JoinRequests[0] != "c" {
		t.Errorf("JoinRequests = %v", g.JoinRequests)
	}
}

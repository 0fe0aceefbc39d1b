package calculator

import (
	"math"
	"sort"

	"github.com/mmynk/splitplus/internal/models"
)

// settleEpsilon is the smallest debt worth suggesting a payment for.
const settleEpsilon = 0.01

// Balances maps a user ID to their net position in a group.
// Positive = owed money, Negative = owes money.
type Balances map[string]float64

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	UserID string
	Net    float64 // Positive = owed money, Negative = owes money
	Paid   float64 // Total fronted across all expenses
	Owed   float64 // Total of this member's shares
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount float64
}

// Compute folds a group's expenses into net balances.
//
// Algorithm:
//   - every member starts at 0
//   - the payer of each expense is credited the full amount
//   - every split participant is debited their share
//
// Users who appear as payer or participant but are no longer members still get
// an entry. An expense without splits only credits its payer, unless it is a
// legacy record carrying a splitAmong list, which is debited equally.
func Compute(expenses []*models.Expense, members []string) Balances {
	bal := make(Balances, len(members))
	for _, m := range members {
		bal[m] = 0
	}

	for _, e := range expenses {
		if e == nil {
			continue
		}
		amount := finite(e.Amount)
		bal[e.PaidBy] += amount

		switch {
		case len(e.Splits) > 0:
			for _, s := range e.Splits {
				bal[s.UserID] -= finite(s.Amount)
			}
		case len(e.LegacySplitAmong) > 0:
			share := amount / float64(len(e.LegacySplitAmong))
			for _, uid := range e.LegacySplitAmong {
				bal[uid] -= share
			}
		}
	}

	return bal
}

// Summarize computes per-member totals alongside the net balance, sorted by
// user ID.
func Summarize(expenses []*models.Expense, members []string) []MemberBalance {
	net := Compute(expenses, members)
	paid := make(map[string]float64, len(net))
	owed := make(map[string]float64, len(net))

	for _, e := range expenses {
		if e == nil {
			continue
		}
		amount := finite(e.Amount)
		paid[e.PaidBy] += amount
		if len(e.Splits) > 0 {
			for _, s := range e.Splits {
				owed[s.UserID] += finite(s.Amount)
			}
		} else if len(e.LegacySplitAmong) > 0 {
			share := amount / float64(len(e.LegacySplitAmong))
			for _, uid := range e.LegacySplitAmong {
				owed[uid] += share
			}
		}
	}

	summary := make([]MemberBalance, 0, len(net))
	for id, n := range net {
		summary = append(summary, MemberBalance{
			UserID: id,
			Net:    n,
			Paid:   paid[id],
			Owed:   owed[id],
		})
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].UserID < summary[j].UserID })
	return summary
}

// SimplifyDebts suggests who should pay whom to bring every balance to zero.
// Largest debtors are matched with largest creditors; residues below one cent
// are dropped as floating point noise.
func SimplifyDebts(bal Balances) []DebtEdge {
	type entry struct {
		id     string
		amount float64
	}
	var creditors, debtors []entry
	for id, n := range bal {
		if n > settleEpsilon {
			creditors = append(creditors, entry{id, n})
		} else if n < -settleEpsilon {
			debtors = append(debtors, entry{id, -n})
		}
	}
	byAmount := func(s []entry) {
		sort.Slice(s, func(i, j int) bool {
			if s[i].amount != s[j].amount {
				return s[i].amount > s[j].amount
			}
			return s[i].id < s[j].id
		})
	}
	byAmount(creditors)
	byAmount(debtors)

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := math.Min(debtors[i].amount, creditors[j].amount)
		if amount > settleEpsilon {
			edges = append(edges, DebtEdge{
				From:   debtors[i].id,
				To:     creditors[j].id,
				Amount: amount,
			})
		}

		debtors[i].amount -= amount
		creditors[j].amount -= amount

		if debtors[i].amount < settleEpsilon {
			i++
		}
		if creditors[j].amount < settleEpsilon {
			j++
		}
	}
	return edges
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

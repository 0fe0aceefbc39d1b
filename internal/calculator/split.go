// Package calculator turns an expense total and a split policy into per-member
// shares, and folds a group's expenses into net balances.
package calculator

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitplus/internal/models"
)

const (
	// ExactTolerance is how far EXACT inputs may drift from the total.
	ExactTolerance = 0.01
	// PercentageTolerance is how far PERCENTAGE inputs may drift from 100.
	PercentageTolerance = 0.1
)

// Calculate derives the splits for an expense of total under the given policy.
// EQUAL ignores inputs. EXACT and PERCENTAGE read one input per member; members
// without an input get 0, and inputs for non-members are ignored.
func Calculate(splitType models.SplitType, total float64, members []string, inputs RawInputs) ([]models.Split, error) {
	switch splitType {
	case models.SplitTypeEqual:
		return Equal(total, members)
	case models.SplitTypeExact:
		return Exact(total, members, inputs)
	case models.SplitTypePercentage:
		return Percentage(total, members, inputs)
	default:
		return nil, ErrUnknownSplitType
	}
}

// Equal gives every member total / len(members). The division is not
// corrected for rounding, so the shares may miss the total by a few ulps.
func Equal(total float64, members []string) ([]models.Split, error) {
	members, err := checkInputs(total, members)
	if err != nil {
		return nil, err
	}

	share := total / float64(len(members))
	splits := make([]models.Split, len(members))
	for i, m := range members {
		splits[i] = models.Split{UserID: m, Amount: share}
	}
	return splits, nil
}

// Exact uses the amount typed for each member. The amounts must add up to
// total within ExactTolerance.
func Exact(total float64, members []string, inputs RawInputs) ([]models.Split, error) {
	members, err := checkInputs(total, members)
	if err != nil {
		return nil, err
	}

	var sum float64
	splits := make([]models.Split, len(members))
	for i, m := range members {
		v := inputs.Value(m)
		sum += v
		splits[i] = models.Split{UserID: m, Amount: v}
	}

	if math.Abs(sum-total) > ExactTolerance {
		return nil, &SplitMismatchError{SplitType: models.SplitTypeExact, Sum: sum, Expected: total}
	}
	return splits, nil
}

// Percentage gives each member their typed percentage of total. The
// percentages must add up to 100 within PercentageTolerance.
func Percentage(total float64, members []string, inputs RawInputs) ([]models.Split, error) {
	members, err := checkInputs(total, members)
	if err != nil {
		return nil, err
	}

	var sum float64
	splits := make([]models.Split, len(members))
	for i, m := range members {
		pct := inputs.Value(m)
		sum += pct
		splits[i] = models.Split{UserID: m, Amount: (pct / 100) * total}
	}

	if math.Abs(sum-100) > PercentageTolerance {
		return nil, &SplitMismatchError{SplitType: models.SplitTypePercentage, Sum: sum, Expected: 100}
	}
	return splits, nil
}

// RepopulateInputs rebuilds the raw inputs an expense was created from, so an
// edit form can show them again. EQUAL expenses have no inputs.
func RepopulateInputs(e *models.Expense) RawInputs {
	inputs := make(RawInputs, len(e.Splits))
	switch e.SplitType {
	case models.SplitTypeExact:
		for _, s := range e.Splits {
			inputs[s.UserID] = strconv.FormatFloat(s.Amount, 'f', -1, 64)
		}
	case models.SplitTypePercentage:
		if e.Amount == 0 {
			return inputs
		}
		for _, s := range e.Splits {
			pct := decimal.NewFromFloat(finite(s.Amount / e.Amount * 100))
			inputs[s.UserID] = pct.StringFixed(2)
		}
	}
	return inputs
}

// checkInputs validates the total and returns members with duplicates removed.
func checkInputs(total float64, members []string) ([]string, error) {
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return nil, &InvalidAmountError{Amount: total}
	}
	members = uniqueMembers(members)
	if len(members) == 0 {
		return nil, ErrEmptyMemberSet
	}
	return members, nil
}

func uniqueMembers(members []string) []string {
	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

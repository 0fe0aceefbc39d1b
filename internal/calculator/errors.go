package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitplus/internal/models"
)

var (
	// ErrEmptyMemberSet is returned when there is nobody to split an expense among.
	ErrEmptyMemberSet = errors.New("at least one member is required to split an expense")

	// ErrUnknownSplitType is returned for a policy other than EQUAL, EXACT or PERCENTAGE.
	ErrUnknownSplitType = errors.New("unknown split type")
)

// InvalidAmountError reports a total that is not a positive finite number.
type InvalidAmountError struct {
	Amount float64
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %v: must be a positive number", e.Amount)
}

// SplitMismatchError reports split inputs that do not add up. For EXACT splits
// Sum and Expected are currency amounts; for PERCENTAGE splits Sum is the sum
// of the percentages and Expected is 100.
type SplitMismatchError struct {
	SplitType models.SplitType
	Sum       float64
	Expected  float64
}

func (e *SplitMismatchError) Error() string {
	if e.SplitType == models.SplitTypePercentage {
		return fmt.Sprintf("percentages (%v%%) do not sum to %v%%", e.Sum, e.Expected)
	}
	return fmt.Sprintf("split amounts (%v) do not match total (%v)", e.Sum, e.Expected)
}

// IsValidationError reports whether err is a caller-correctable split error.
func IsValidationError(err error) bool {
	var amountErr *InvalidAmountError
	var mismatchErr *SplitMismatchError
	return errors.As(err, &amountErr) ||
		errors.As(err, &mismatchErr) ||
		errors.Is(err, ErrEmptyMemberSet) ||
		errors.Is(err, ErrUnknownSplitType)
}

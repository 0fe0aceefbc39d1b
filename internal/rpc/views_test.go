package rpc

import (
	"math"
	"testing"

	"github.com/mmynk/splitplus/internal/models"
)

func TestDisplay(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 12.345, want: "12.35"},
		{in: 1.0 / 3, want: "0.33"},
		{in: -4.5, want: "-4.50"},
		{in: math.Inf(1), want: "0.00"},
		{in: math.Inf(-1), want: "0.00"},
		{in: math.NaN(), want: "0.00"},
	}
	for _, tt := range tests {
		if got := display(tt.in); got != tt.want {
			t.Errorf("display(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToExpenseView_TinyPercentageAmount(t *testing.T) {
	e := &models.Expense{
		ID:        "e1",
		GroupID:   "g1",
		Amount:    1e-310,
		PaidBy:    "a",
		SplitType: models.SplitTypePercentage,
		Splits:    []models.Split{{UserID: "a", Amount: 1}},
	}

	view := toExpenseView(e)
	if view.AmountDisplay != "0.00" {
		t.Errorf("AmountDisplay = %q, want 0.00", view.AmountDisplay)
	}
	if view.Inputs["a"] != "0.00" {
		t.Errorf("Inputs = %v, want a=0.00", view.Inputs)
	}
}

package types

import (
	"testing"
	"time"
)

func TestPow10(t *testing.T) {
	tests := []struct {
		decimals uint32
		expected string
	}{
		{0, "1"},
		{2, "100"},
		{8, "100000000"},
		{18, "1000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Pow10(tt.decimals).String(); got != tt.expected {
				t.Errorf("Pow10(%d): got %s, want %s", tt.decimals, got, tt.expected)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		amount   Amount
		decimals uint32
		expected string
	}{
		{Units(4900), 2, "49.00"},
		{Units(1), 2, "0.01"},
		{Units(0), 2, "0.00"},
		{Units(-4900), 2, "-49.00"},
		{Units(-1), 2, "-0.01"},
		{Units(12345), 0, "12345"},
		{MustParseAmount("1500000000000000000"), 18, "1.500000000000000000"},
		{Amount{}, 2, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatUnits(tt.amount, tt.decimals); got != tt.expected {
				t.Errorf("FormatUnits: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"42", "42", false},
		{" -7 ", "-7", false},
		{"", "0", false},
		{"1e18", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestWholeAndPositive(t *testing.T) {
	if got := Whole(3, 2).String(); got != "300" {
		t.Errorf("Whole(3, 2): got %s", got)
	}
	if got := Positive(Units(-5)); !got.IsZero() {
		t.Errorf("Positive(-5): got %s", got)
	}
	if got := Positive(Units(5)); !got.Equal(Units(5)) {
		t.Errorf("Positive(5): got %s", got)
	}
	if got := OrZero(Amount{}); !got.IsZero() {
		t.Errorf("OrZero(nil): got %s", got)
	}
}

func TestEntityTouch(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEntity(start)

	e.Touch(start.Add(-time.Hour))
	if !e.UpdatedAt.Equal(start) {
		t.Errorf("Touch moved UpdatedAt backwards to %v", e.UpdatedAt)
	}

	e.Touch(start.Add(time.Hour))
	if !e.UpdatedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("Touch did not advance UpdatedAt: %v", e.UpdatedAt)
	}
	if !e.CreatedAt.Equal(start) {
		t.Errorf("CreatedAt changed: %v", e.CreatedAt)
	}
}

package custody

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/streamfee/types"
)

func TestVaultPullPush(t *testing.T) {
	ctx := context.Background()
	v := NewVault()
	v.Fund("bob", types.Units(100))

	if err := v.Pull(ctx, "bob", types.Units(60)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if err := v.Pull(ctx, "bob", types.Units(41)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdraw: got %v", err)
	}
	if err := v.Push(ctx, "alice", types.Units(25)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := v.Push(ctx, "alice", types.Units(36)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("push beyond custody: got %v", err)
	}

	tests := []struct {
		name     string
		got      types.Amount
		expected int64
	}{
		{"bob", v.Balance("bob"), 40},
		{"alice", v.Balance("alice"), 25},
		{"held", v.Held(), 35},
		{"unknown", v.Balance("nobody"), 0},
	}
	for _, tt := range tests {
		if !tt.got.Equal(types.Units(tt.expected)) {
			t.Errorf("%s: got %s, want %d", tt.name, tt.got, tt.expected)
		}
	}
}

func TestVaultRejectsNegative(t *testing.T) {
	v := NewVault()
	if err := v.Pull(context.Background(), "bob", types.Units(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("got %v", err)
	}
}

func TestVaultHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewVault()
	if err := v.Push(ctx, "bob", types.Zero()); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
}

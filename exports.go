package streamfee

import "github.com/xraph/streamfee/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	Zero        = types.Zero
	Units       = types.Units
	Whole       = types.Whole
	ParseAmount = types.ParseAmount
	FormatUnits = types.FormatUnits
)

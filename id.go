package streamfee

import "github.com/xraph/streamfee/id"

// ID is the primary identifier type for all streamfee accounts.
type ID = id.ID

// Prefix identifies the account kind encoded in a TypeID.
type Prefix = id.Prefix

package provider

import (
	"context"

	"github.com/xraph/streamfee/id"
)

// Store persists provider records. Updates go through store.Batch.
type Store interface {
	CreateProvider(ctx context.Context, p *Provider) error
	GetProvider(ctx context.Context, providerID id.ProviderID) (*Provider, error)
	ListProviders(ctx context.Context, opts ListOpts) ([]*Provider, error)
}

// ListOpts filters and pages ListProviders. Empty filters match every
// provider; a Limit or Offset that is not positive is ignored.
type ListOpts struct {
	Status Status
	Owner  string
	Limit  int
	Offset int
}

package subscriber

import (
	"context"

	"github.com/xraph/streamfee/id"
)

// Store persists subscriber records. Updates go through store.Batch.
type Store interface {
	CreateSubscriber(ctx context.Context, s *Subscriber) error
	GetSubscriber(ctx context.Context, subscriberID id.SubscriberID) (*Subscriber, error)
	ListSubscribers(ctx context.Context, opts ListOpts) ([]*Subscriber, error)
}

// ListOpts filters and pages ListSubscribers. A Limit or Offset that is
// not positive is ignored.
type ListOpts struct {
	Owner  string
	Limit  int
	Offset int
}

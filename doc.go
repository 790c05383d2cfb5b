// Package streamfee provides a lazy-settlement, per-second metering and
// billing engine for Go applications.
//
// Providers charge a fixed fee per second to every subscriber currently
// subscribed to them. Subscribers prepay a balance that is drawn down
// continuously. Nothing runs on a timer: an account's balance is only
// materialized when an operation touches it, from the time elapsed since
// its last settlement.
//
// streamfee is designed as a library, not a service. It provides:
//
//   - Exact integer settlement with arbitrary-precision amounts
//   - Atomic operations: every call commits all of its changes or none
//   - One-way provider suspension with subscriber refunds on claim
//   - Permissionless slashing of under-collateralized subscribers
//   - Memory, PostgreSQL, SQLite and MongoDB stores
//   - Plugin hooks and Prometheus metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/streamfee"
//	    "github.com/xraph/streamfee/custody"
//	    "github.com/xraph/streamfee/oracle"
//	    "github.com/xraph/streamfee/store/memory"
//	)
//
//	feed := oracle.NewFeed(time.Hour)
//	engine := streamfee.New(memory.New(), feed, custody.NewVault())
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Callers
//
// The identity making a call travels on the context. Registration makes
// the caller the owner of the new record; owner-only operations compare
// the caller with the record owner.
//
//	ctx = streamfee.WithCaller(ctx, "0xabc...")
//	p, err := engine.RegisterProvider(ctx, id.Nil, streamfee.Units(1_000_000))
//
// # Settlement
//
// A provider's pending fees grow by elapsed × subscriberCount × fee until
// it is suspended. A subscriber's balance shrinks by elapsed × the sum of
// its subscriptions' fees. When a provider is suspended, its subscribers
// keep being charged until they settle with the provider in their claim
// list; the claim refunds the post-suspension charge and drops the
// subscription.
//
// # TypeID
//
// Accounts use TypeIDs:
//
//	prov_01h2xcejqtf2nbrexx3vqjhp41  // Provider ID
//	subr_01h455vb4pex5vsknk084sn02q  // Subscriber ID
package streamfee

package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionProviderRegistered   = "provider.registered"
	ActionSubscriberRegistered = "subscriber.registered"

	// Subscription actions
	ActionSubscribed   = "subscription.created"
	ActionUnsubscribed = "subscription.removed"

	// Funds actions
	ActionDeposited     = "funds.deposited"
	ActionFeesWithdrawn = "funds.withdrawn"

	// Enforcement actions
	ActionProviderSuspended = "provider.suspended"
	ActionSubscriberSlashed = "subscriber.slashed"
)

// Resource constants for audit events.
const (
	ResourceProvider     = "provider"
	ResourceSubscriber   = "subscriber"
	ResourceSubscription = "subscription"
)

// Category constants for audit events.
const (
	CategoryAccount      = "account"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryEnforcement  = "enforcement"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
)

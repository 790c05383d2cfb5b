package streamfee

import "context"

type callerKey struct{}

// WithCaller returns a context carrying the identity of the account making
// the call. Owner checks and fund pulls use this identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller identity stored in ctx.
func CallerFrom(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok && caller != ""
}

func requireCaller(ctx context.Context) (string, error) {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return "", ErrUnauthorized
	}
	return caller, nil
}

func requireOwner(ctx context.Context, owner string) error {
	caller, err := requireCaller(ctx)
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	return nil
}

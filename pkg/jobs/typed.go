package jobs

import "context"

// Unary adapts a typed one-argument function. The argument is decoded from
// positional argument 0; further arguments are ignored.
func Unary[A, R any](fn func(ctx context.Context, arg A) (R, error)) Func {
	return func(ctx context.Context, call *Call) (any, error) {
		var arg A
		if err := call.Arg(0, &arg); err != nil {
			return nil, err
		}
		return fn(ctx, arg)
	}
}

// Pure adapts a typed function that cannot fail and needs no context.
func Pure[A, R any](fn func(A) R) Func {
	return Unary(func(_ context.Context, arg A) (R, error) {
		return fn(arg), nil
	})
}

package logging

import "context"

type fieldsKey struct{}

// ContextWith returns a copy of ctx carrying key–value pairs that every
// backend adds to lines logged with that context. Pairs accumulate across
// calls.
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := contextFields(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func contextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(fieldsKey{}).([]any)
	return v
}

// withContextFields prepends the context's pairs to args.
func withContextFields(ctx context.Context, args []any) []any {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return args
	}
	out := make([]any, 0, len(fields)+len(args))
	out = append(out, fields...)
	return append(out, args...)
}

package logging

import (
	"context"
	"strings"
)

type fieldsKey struct{}

// WithFields returns a context whose log records carry args, e.g. the id of
// the sync cycle or the rpc method being served. Fields accumulate across
// nested calls.
func WithFields(ctx context.Context, args ...any) context.Context {
	prev := fieldsFrom(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(append(merged, prev...), args...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func fieldsFrom(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).([]any)
	return f
}

const redacted = "[REDACTED]"

// sensitiveKeys never reach a log sink with their value.
var sensitiveKeys = map[string]struct{}{
	"pin":             {},
	"otp":             {},
	"pin_digest":      {},
	"password_digest": {},
	"access_token":    {},
	"token":           {},
	"secret_key":      {},
}

// prepare appends the context fields to args and masks sensitive values.
// args is never modified in place.
func prepare(ctx context.Context, args []any) []any {
	fields := fieldsFrom(ctx)
	if len(fields) == 0 && !hasSensitive(args) {
		return args
	}
	out := make([]any, 0, len(args)+len(fields))
	out = append(append(out, args...), fields...)
	for i := 0; i+1 < len(out); i += 2 {
		if isSensitive(out[i]) {
			out[i+1] = redacted
		}
	}
	return out
}

func hasSensitive(args []any) bool {
	for i := 0; i+1 < len(args); i += 2 {
		if isSensitive(args[i]) {
			return true
		}
	}
	return false
}

func isSensitive(key any) bool {
	k, ok := key.(string)
	if !ok {
		return false
	}
	_, ok = sensitiveKeys[strings.ToLower(k)]
	return ok
}

// Package correlation carries the request-scoped log fields of one need.
//
// A Context is an immutable value. Deriving a child (With) never touches the parent, so
// leaving a scope is just dropping the derived value; concurrent needs each hold their own
// Context and cannot see each other's fields.
package correlation

import (
	"context"
	"log/slog"
)

const (
	KeyBehovID          = "behovId"
	KeyVedtaksperiodeID = "vedtaksperiodeId"
)

type Context struct {
	attrs []slog.Attr
}

func New(attrs ...slog.Attr) Context {
	return Context{}.With(attrs...)
}

// With returns a copy extended by attrs. A key that already exists is replaced.
func (c Context) With(attrs ...slog.Attr) Context {
	merged := make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	merged = append(merged, c.attrs...)

next:
	for _, a := range attrs {
		for i := range merged {
			if merged[i].Key == a.Key {
				merged[i] = a
				continue next
			}
		}
		merged = append(merged, a)
	}

	return Context{attrs: merged}
}

func (c Context) Attrs() []slog.Attr {
	out := make([]slog.Attr, len(c.attrs))
	copy(out, c.attrs)
	return out
}

// Value returns the string value stored under key.
func (c Context) Value(key string) (string, bool) {
	for _, a := range c.attrs {
		if a.Key == key {
			return a.Value.String(), true
		}
	}
	return "", false
}

// Logger binds the fields to l.
func (c Context) Logger(l *slog.Logger) *slog.Logger {
	args := make([]any, 0, len(c.attrs))
	for _, a := range c.attrs {
		args = append(args, a)
	}
	return l.With(args...)
}

type ctxKey struct{}

// Into stores c in ctx.
func Into(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// From returns the Context stored in ctx, or an empty one.
func From(ctx context.Context) Context {
	if c, ok := ctx.Value(ctxKey{}).(Context); ok {
		return c
	}
	return Context{}
}

// With derives a ctx whose Context is the current one extended by attrs.
func With(ctx context.Context, attrs ...slog.Attr) context.Context {
	return Into(ctx, From(ctx).With(attrs...))
}

// Scope runs fn with attrs merged into the correlation fields of ctx.
func Scope(ctx context.Context, attrs []slog.Attr, fn func(ctx context.Context) error) error {
	return fn(With(ctx, attrs...))
}

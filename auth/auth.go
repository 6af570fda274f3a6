// Package auth carries an ambient run-as identity on a context.Context.
package auth

import "context"

// SystemUserId is the identity asynchronous work falls back to, when neither
// a task assignee nor a process initiator can be resolved.
const SystemUserId = "System"

type userKeyType int

const userKey userKeyType = 0

// WithUser returns a context that carries the given user ID.
func WithUser(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userKey, userId)
}

// User returns the user ID carried by the context, or an empty string.
func User(ctx context.Context) string {
	userId, _ := ctx.Value(userKey).(string)
	return userId
}

// RunAs invokes fn with a derived context that carries the given user ID.
//
// The identity is scoped to the call: the original context is left untouched,
// so the prior identity is restored by construction, regardless of how fn
// returns.
func RunAs(ctx context.Context, userId string, fn func(ctx context.Context) error) error {
	return fn(WithUser(ctx, userId))
}

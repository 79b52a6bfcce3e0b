// Package gateway exposes the cached GitHub entities through a fixed GraphQL schema.
package gateway

import (
	"context"

	"github.com/robby/leander/internal/store"
)

type contextKey string

const storeKey contextKey = "store"

// WithStore returns a context carrying the caller's store.
func WithStore(ctx context.Context, s *store.UserStore) context.Context {
	return context.WithValue(ctx, storeKey, s)
}

// StoreFrom returns the caller's store, if the request was authenticated.
func StoreFrom(ctx context.Context) (*store.UserStore, bool) {
	s, ok := ctx.Value(storeKey).(*store.UserStore)
	return s, ok && s != nil
}

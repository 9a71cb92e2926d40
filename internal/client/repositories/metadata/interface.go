// Package metadata is a small key/value table in the client's local SQLite
// database. The credential store keeps its three keys here.
package metadata

import (
	"context"
)

// Repository is a string-valued key/value store. Absent keys are simply
// missing from GetMany results.
type Repository interface {
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
	DeleteMany(ctx context.Context, keys ...string) error
}

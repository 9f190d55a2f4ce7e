package triage

import "context"

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Store is the persistence interface for triage results.
type Store interface {
	Get(ctx context.Context, id string) (*Result, bool, error)
	Put(ctx context.Context, result *Result) error

	// List returns up to limit results, newest first.
	List(ctx context.Context, limit int) ([]*Result, error)
}

// Notifier is told about high-urgency results.
type Notifier interface {
	Notify(ctx context.Context, result *Result) error
}

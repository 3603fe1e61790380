package audit

import "context"

// Repository is append-only by construction: no update or delete surface.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByTarget(ctx context.Context, tt TargetType, targetID string) ([]Entry, error)
}

package persistence

import (
	"context"

	"github.com/farmstore/backend/internal/domain/shared"
)

// RepositoryOption configures a GORM repository
type RepositoryOption func(*repoOptions)

type repoOptions struct {
	publisher shared.RowChangePublisher
}

// WithRowChangePublisher makes the repository announce committed row changes
func WithRowChangePublisher(p shared.RowChangePublisher) RepositoryOption {
	return func(o *repoOptions) {
		o.publisher = p
	}
}

func applyRepoOptions(opts []RepositoryOption) repoOptions {
	var o repoOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish sends changes after the write committed. A notification is a hint,
// so a failed publish never fails the write.
func (o repoOptions) publish(ctx context.Context, changes ...shared.RowChange) {
	if o.publisher == nil {
		return
	}
	for _, c := range changes {
		_ = o.publisher.Publish(ctx, c)
	}
}

package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository reads the catalog held by the backing store.
// Availability only changes when order lines are written, so there is no
// stock mutation here.
type ProductRepository interface {
	// FindAll returns every product ordered by category then name
	FindAll(ctx context.Context) ([]Product, error)

	// FindByID returns shared.ErrNotFound for an unknown id
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
}

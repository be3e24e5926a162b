package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db   *gorm.DB
	opts repoOptions
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB, opts ...RepositoryOption) *GormProductRepository {
	return &GormProductRepository{db: db, opts: applyRepoOptions(opts)}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Product not found")
		}
		return nil, shared.WrapConnectivity(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every product ordered by category then name
func (r *GormProductRepository) FindAll(ctx context.Context) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Order("category ASC, name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, shared.WrapConnectivity(err)
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	if !product.HasID() {
		return shared.ErrInvalidInput.WithMessage("Product ID is required")
	}
	product.Touch(time.Now())

	model := models.ProductModelFromDomain(product)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "name", "category", "unit", "price", "available_quantity", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return shared.WrapConnectivity(err)
	}

	r.opts.publish(ctx, shared.NewRowChange(shared.TableProducts, shared.ChangeUpdate, productRow(model)))
	return nil
}

func productRow(m *models.ProductModel) map[string]any {
	return map[string]any{
		"id":                 m.ID.String(),
		"name":               m.Name,
		"available_quantity": m.AvailableQuantity.String(),
	}
}

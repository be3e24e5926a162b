package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/farmstore/backend/internal/domain/order"
	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// committedScope keeps orders that have at least one line
const committedScope = "EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id)"

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db   *gorm.DB
	opts repoOptions
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB, opts ...RepositoryOption) *GormOrderRepository {
	return &GormOrderRepository{db: db, opts: applyRepoOptions(opts)}
}

// CreateOrder inserts the order row without lines
func (r *GormOrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	if !o.HasID() {
		return shared.ErrInvalidInput.WithMessage("Order ID is required")
	}
	o.Touch(time.Now())

	model := models.OrderModelFromDomain(o)
	if err := r.db.WithContext(ctx).Omit("Items").Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists.WithMessage("Order already exists").WithDetail("order_id", o.ID.String())
		}
		return shared.WrapConnectivity(err)
	}

	r.opts.publish(ctx, shared.NewRowChange(shared.TableOrders, shared.ChangeInsert, model.Row()))
	return nil
}

// CreateLines inserts the lines and takes their quantities out of stock in one transaction
func (r *GormOrderRepository) CreateLines(ctx context.Context, orderID uuid.UUID, lines []order.OrderLine) error {
	if len(lines) == 0 {
		return order.ErrEmptyCart
	}

	items := make([]*models.OrderItemModel, len(lines))
	for i, l := range lines {
		items[i] = models.OrderItemModelFromDomain(orderID, i, l)
	}
	var touched []models.ProductModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.OrderModel{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return order.ErrOrderNotFound.WithDetail("order_id", orderID.String())
		}

		now := time.Now().UTC()
		for _, item := range items {
			res := tx.Model(&models.ProductModel{}).
				Where("id = ? AND available_quantity >= ?", item.ProductID, item.Quantity).
				Updates(map[string]any{
					"available_quantity": gorm.Expr("available_quantity - ?", item.Quantity),
					"updated_at":         now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return r.insufficientStock(tx, item)
			}
			var p models.ProductModel
			if err := tx.First(&p, "id = ?", item.ProductID).Error; err != nil {
				return err
			}
			touched = append(touched, p)
		}

		return tx.Create(&items).Error
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return err
		}
		return shared.WrapConnectivity(err)
	}

	changes := make([]shared.RowChange, 0, len(items)+len(touched))
	for _, item := range items {
		changes = append(changes, shared.NewRowChange(shared.TableOrderItems, shared.ChangeInsert, item.Row()))
	}
	for i := range touched {
		changes = append(changes, shared.NewRowChange(shared.TableProducts, shared.ChangeUpdate, productRow(&touched[i])))
	}
	r.opts.publish(ctx, changes...)
	return nil
}

func (r *GormOrderRepository) insufficientStock(tx *gorm.DB, item *models.OrderItemModel) error {
	var p models.ProductModel
	err := tx.First(&p, "id = ?", item.ProductID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return order.InsufficientStock(item.ProductID, item.ProductName, item.Quantity, decimal.Zero)
	case err != nil:
		return err
	}
	return order.InsufficientStock(item.ProductID, p.Name, item.Quantity, p.AvailableQuantity)
}

// DeleteOrder removes an order and its lines, returning line quantities to stock.
// Deleting a missing order is not an error.
func (r *GormOrderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	var (
		deleted bool
		items   []models.OrderItemModel
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Find(&items).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, item := range items {
			if err := tx.Model(&models.ProductModel{}).Where("id = ?", item.ProductID).
				Updates(map[string]any{
					"available_quantity": gorm.Expr("available_quantity + ?", item.Quantity),
					"updated_at":         now,
				}).Error; err != nil {
				return err
			}
		}
		if len(items) > 0 {
			if err := tx.Where("order_id = ?", id).Delete(&models.OrderItemModel{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.OrderModel{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return shared.WrapConnectivity(err)
	}

	if deleted {
		changes := []shared.RowChange{
			shared.NewRowChange(shared.TableOrders, shared.ChangeDelete, map[string]any{"id": id.String()}),
		}
		for i := range items {
			changes = append(changes, shared.NewRowChange(shared.TableOrderItems, shared.ChangeDelete, items[i].Row()))
		}
		r.opts.publish(ctx, changes...)
	}
	return nil
}

// Exists reports whether an order row with id exists, committed or not
func (r *GormOrderRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, shared.WrapConnectivity(err)
	}
	return count > 0, nil
}

// FindByID returns a committed order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	err := r.committed(ctx).Where("orders.id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound.WithDetail("order_id", id.String())
		}
		return nil, shared.WrapConnectivity(err)
	}
	return model.ToDomain(), nil
}

// FindSince returns committed orders created at or after since, oldest first
func (r *GormOrderRepository) FindSince(ctx context.Context, since time.Time) ([]order.Order, error) {
	var rows []models.OrderModel
	err := r.committed(ctx).
		Where("orders.created_at >= ?", since.UTC()).
		Order("orders.created_at ASC, orders.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, shared.WrapConnectivity(err)
	}
	return toOrders(rows), nil
}

// FindRecent returns the newest committed orders first
func (r *GormOrderRepository) FindRecent(ctx context.Context, limit int) ([]order.Order, error) {
	if limit <= 0 {
		return []order.Order{}, nil
	}
	var rows []models.OrderModel
	err := r.committed(ctx).
		Order("orders.created_at DESC, orders.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, shared.WrapConnectivity(err)
	}
	return toOrders(rows), nil
}

// latestNameExpr is the product name on the newest line of the grouped product
const latestNameExpr = `(SELECT li.product_name FROM order_items li
	JOIN orders lo ON lo.id = li.order_id
	WHERE li.product_id = order_items.product_id
	ORDER BY lo.created_at DESC, li.order_id DESC, li.position DESC LIMIT 1)`

type productSalesRow struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	Amount      decimal.Decimal
}

// SalesByProduct aggregates order lines per product in the store. A line only
// exists for a committed order, so no committed scope is needed.
func (r *GormOrderRepository) SalesByProduct(ctx context.Context) ([]order.ProductSales, error) {
	var rows []productSalesRow
	err := r.db.WithContext(ctx).
		Model(&models.OrderItemModel{}).
		Select("order_items.product_id AS product_id, " + latestNameExpr + " AS product_name, " +
			"SUM(order_items.quantity) AS quantity, SUM(order_items.line_total) AS amount").
		Group("order_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, shared.WrapConnectivity(err)
	}
	sales := make([]order.ProductSales, len(rows))
	for i, row := range rows {
		sales[i] = order.ProductSales(row)
	}
	return sales, nil
}

func (r *GormOrderRepository) committed(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where(committedScope).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.position ASC")
		})
}

func toOrders(rows []models.OrderModel) []order.Order {
	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders
}

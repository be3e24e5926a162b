package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/farmstore/backend/internal/domain/catalog"
	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/farmstore/backend/internal/infrastructure/logger"
	"github.com/farmstore/backend/internal/infrastructure/persistence/models"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	driver string
}

// Option configures NewDatabase
type Option func(*dbOptions)

type dbOptions struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	tracing       bool
}

// WithLogger routes GORM logs to zap at the given level
func WithLogger(l *zap.Logger, level gormlogger.LogLevel) Option {
	return func(o *dbOptions) {
		o.logger = l
		o.logLevel = level
	}
}

// WithSlowThreshold sets the slow query warning threshold
func WithSlowThreshold(d time.Duration) Option {
	return func(o *dbOptions) {
		o.slowThreshold = d
	}
}

// WithTracing registers the otelgorm plugin
func WithTracing(enabled bool) Option {
	return func(o *dbOptions) {
		o.tracing = enabled
	}
}

// NewDatabase opens the backing store described by cfg
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := dbOptions{logger: zap.NewNop(), logLevel: gormlogger.Silent, slowThreshold: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(o.logger, o.logLevel, logger.WithSlowThreshold(o.slowThreshold)),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		PrepareStmt:            cfg.Driver != "sqlite",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.tracing {
		system := "postgresql"
		if cfg.Driver == "sqlite" {
			system = "sqlite"
		}
		if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(system), otelgorm.WithoutQueryVariables())); err != nil {
			return nil, fmt.Errorf("failed to register db tracing: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer; an in-memory database also lives on a single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db, driver: cfg.Driver}, nil
}

// AutoMigrate creates the tables from the persistence models.
// PostgreSQL deployments use the versioned SQL migrations instead.
func (d *Database) AutoMigrate() error {
	return AutoMigrate(d.DB)
}

// AutoMigrate creates the products, orders and order_items tables on db
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.ProductModel{}, &models.OrderModel{}, &models.OrderItemModel{})
}

// SeedProducts inserts the built-in catalog when the products table is empty.
// Returns the number of products inserted.
func (d *Database) SeedProducts(ctx context.Context) (int, error) {
	return d.SeedCatalog(ctx, catalog.BuiltinCatalog())
}

// SeedCatalog inserts products when the products table is empty
func (d *Database) SeedCatalog(ctx context.Context, products []catalog.Product) (int, error) {
	var count int64
	if err := d.DB.WithContext(ctx).Model(&models.ProductModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 || len(products) == 0 {
		return 0, nil
	}

	rows := make([]*models.ProductModel, 0, len(products))
	now := time.Now()
	for i := range products {
		p := products[i]
		p.CreatedAt, p.UpdatedAt = now, now
		rows = append(rows, models.ProductModelFromDomain(&p))
	}
	if err := d.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Driver returns the configured driver name
func (d *Database) Driver() string {
	return d.driver
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

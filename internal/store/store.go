// Package store is the durable order repository. Every mutation is a
// synchronous SQL write, so the table survives a process restart with at most
// the in-flight operation lost.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"santamoment/internal/config"
	"santamoment/internal/models"
)

// ErrNotFound is returned when no order exists for the given id.
var ErrNotFound = errors.New("order not found")

type DB struct {
	Bun *bun.DB
}

// Open connects the configured driver and ensures the schema exists.
func Open(cfg config.StoreConfig) (*DB, error) {
	var (
		sqldb *sql.DB
		bunDB *bun.DB
		err   error
	)

	switch cfg.Driver {
	case "postgres":
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Single-writer store; one connection avoids SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)
		bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if err := sqldb.Ping(); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	db := &DB{Bun: bunDB}
	if err := db.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the orders table if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.Order)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.Bun.Close()
}

// CreateOrder inserts a new order. The id must be unique; callers guarantee
// that through the ID generation scheme.
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	return err
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder writes the full record back; the row must already exist.
func (d *DB) UpdateOrder(ctx context.Context, order models.Order) error {
	res, err := d.Bun.NewUpdate().
		Model(&order).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrders returns every order, newest first.
func (d *DB) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListProcessing returns paid orders still being worked on, oldest payment
// first — the queue the estimator ranks customers in.
func (d *DB) ListProcessing(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status = ?", models.StatusProcessing).
		Where("payment_status = ?", models.PaymentPaid).
		Order("paid_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ryzenix/pharmacart/internal/domain/catalog"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Get(ctx context.Context, productID string) (*catalog.Product, error) {
	query := `
		SELECT id, title, sku, price, stock_quantity, status, requires_prescription,
		       image, manufacturer, category, updated_at
		FROM products
		WHERE id = $1
	`

	p := &catalog.Product{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ID,
		&p.Title,
		&p.SKU,
		&p.Price,
		&p.StockQuantity,
		&p.Status,
		&p.RequiresPrescription,
		&p.Image,
		&p.Manufacturer,
		&p.Category,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	query := `
		INSERT INTO products (
			id, title, sku, price, stock_quantity, status, requires_prescription,
			image, manufacturer, category, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			sku = EXCLUDED.sku,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			status = EXCLUDED.status,
			requires_prescription = EXCLUDED.requires_prescription,
			image = EXCLUDED.image,
			manufacturer = EXCLUDED.manufacturer,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Title, p.SKU, p.Price, p.StockQuantity, p.Status,
		p.RequiresPrescription, p.Image, p.Manufacturer, p.Category, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

var _ catalog.Repository = (*ProductRepository)(nil)

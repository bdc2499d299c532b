package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Repository is the sqlite-backed product, variant and bundle catalog.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases exist per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, description, category, price, image_url, created_at
		FROM products
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Category,
			&p.Price,
			&p.ImageURL,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

// GetProduct returns the product with its variants and gallery images.
func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, description, category, price, image_url, created_at
		FROM products
		WHERE id = $1
	`

	p := &domain.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.ImageURL,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	if p.Variants, err = r.listVariants(ctx, id); err != nil {
		return nil, err
	}
	if p.Images, err = r.listImages(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) listVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	query := `
		SELECT id, product_id, name, color, size, price, currency, in_stock, image_url, fulfillment_variant_id
		FROM product_variants
		WHERE product_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.Name,
			&v.Color,
			&v.Size,
			&v.Price,
			&v.Currency,
			&v.InStock,
			&v.ImageURL,
			&v.FulfillmentVariantID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return variants, nil
}

func (r *Repository) listImages(ctx context.Context, productID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT url FROM product_images WHERE product_id = $1 ORDER BY position`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (r *Repository) ListBundles(ctx context.Context) ([]*domain.Bundle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, key, name, description, discount, image_url
		FROM bundles
		ORDER BY discount, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundles: %w", err)
	}

	var bundles []*domain.Bundle
	for rows.Next() {
		b := &domain.Bundle{}
		if err := rows.Scan(&b.ID, &b.Key, &b.Name, &b.Description, &b.Discount, &b.ImageURL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan bundle: %w", err)
		}
		bundles = append(bundles, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	// release the single connection before the item queries
	rows.Close()

	for _, b := range bundles {
		if b.Items, err = r.listBundleItems(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

func (r *Repository) GetBundle(ctx context.Context, key string) (*domain.Bundle, error) {
	b := &domain.Bundle{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, key, name, description, discount, image_url
		FROM bundles
		WHERE key = $1
	`, key).Scan(&b.ID, &b.Key, &b.Name, &b.Description, &b.Discount, &b.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bundle %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bundle: %w", err)
	}

	if b.Items, err = r.listBundleItems(ctx, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repository) listBundleItems(ctx context.Context, bundleID string) ([]domain.BundleItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bundle_id, product_id, item_type, quantity
		FROM bundle_items
		WHERE bundle_id = $1
		ORDER BY position, id
	`, bundleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bundle items: %w", err)
	}
	defer rows.Close()

	var items []domain.BundleItem
	for rows.Next() {
		var it domain.BundleItem
		if err := rows.Scan(&it.ID, &it.BundleID, &it.ProductID, &it.ItemType, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan bundle item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ProductPrice implements bundle.PriceSource.
func (r *Repository) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT price FROM products WHERE id = $1`, productID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query product price: %w", err)
	}
	return price, nil
}

// VariantPrice implements cart.PriceSource from the local catalog, keyed by
// fulfillment variant id.
func (r *Repository) VariantPrice(ctx context.Context, variantRef string) (domain.Price, error) {
	var p domain.Price
	err := r.db.QueryRowContext(ctx,
		`SELECT price, currency FROM product_variants WHERE fulfillment_variant_id = $1 LIMIT 1`, variantRef).
		Scan(&p.Amount, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Price{}, fmt.Errorf("variant %s: %w", variantRef, ErrNotFound)
	}
	if err != nil {
		return domain.Price{}, fmt.Errorf("failed to query variant price: %w", err)
	}
	return p, nil
}

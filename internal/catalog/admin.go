package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrInvalid  = errors.New("invalid catalog entry")
	ErrConflict = errors.New("catalog entry already exists")
)

var one = decimal.NewFromInt(1)

func validateProduct(p *domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalid)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product price must not be negative", ErrInvalid)
	}
	return nil
}

func validateVariant(v *domain.Variant) error {
	if v.ProductID == "" {
		return fmt.Errorf("%w: variant product id is required", ErrInvalid)
	}
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: variant name is required", ErrInvalid)
	}
	if !v.Price.IsPositive() {
		return fmt.Errorf("%w: variant price must be positive", ErrInvalid)
	}
	return nil
}

func validateBundle(b *domain.Bundle) error {
	if strings.TrimSpace(b.Key) == "" || strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: bundle key and name are required", ErrInvalid)
	}
	if b.Discount.IsNegative() || b.Discount.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: bundle discount must be in [0, 1)", ErrInvalid)
	}
	return nil
}

func translate(err error) error {
	var se *sqlite.Error
	// extended codes keep the primary code in the low byte
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// CreateProduct inserts p, assigning an id when none is set.
func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category, price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, p.Description, p.Category, p.Price, p.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", translate(err))
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, category = $3, price = $4, image_url = $5
		WHERE id = $6
	`, p.Name, p.Description, p.Category, p.Price, p.ImageURL, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectAffected(res, "product "+p.ID)
}

// DeleteProduct removes the product together with its variants, images and
// every bundle slot that points at it.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM product_variants WHERE product_id = $1`,
			`DELETE FROM product_images WHERE product_id = $1`,
			`DELETE FROM bundle_items WHERE product_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("failed to delete product dependents: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return expectAffected(res, "product "+id)
	})
}

func (r *Repository) CreateVariant(ctx context.Context, v *domain.Variant) error {
	if err := validateVariant(v); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Currency == "" {
		v.Currency = "gbp"
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO product_variants
			(id, product_id, name, color, size, price, currency, in_stock, image_url, fulfillment_variant_id)
		SELECT $1, id, $2, $3, $4, $5, $6, $7, $8, $9 FROM products WHERE id = $10
	`, v.ID, v.Name, v.Color, v.Size, v.Price, v.Currency, v.InStock, v.ImageURL, v.FulfillmentVariantID, v.ProductID)
	if err != nil {
		return fmt.Errorf("failed to insert variant: %w", translate(err))
	}
	return expectAffected(res, "product "+v.ProductID)
}

func (r *Repository) UpdateVariant(ctx context.Context, v *domain.Variant) error {
	if err := validateVariant(v); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE product_variants
		SET name = $1, color = $2, size = $3, price = $4, currency = $5,
			in_stock = $6, image_url = $7, fulfillment_variant_id = $8
		WHERE id = $9 AND product_id = $10
	`, v.Name, v.Color, v.Size, v.Price, v.Currency, v.InStock, v.ImageURL, v.FulfillmentVariantID, v.ID, v.ProductID)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return expectAffected(res, "variant "+v.ID)
}

func (r *Repository) DeleteVariant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	return expectAffected(res, "variant "+id)
}

// CreateBundle inserts b and its items in one transaction.
func (r *Repository) CreateBundle(ctx context.Context, b *domain.Bundle) error {
	if err := validateBundle(b); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bundles (id, key, name, description, discount, image_url)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, b.ID, b.Key, b.Name, b.Description, b.Discount, b.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert bundle: %w", translate(err))
		}

		for i := range b.Items {
			b.Items[i].BundleID = b.ID
			if err := insertBundleItem(ctx, tx, &b.Items[i], i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) UpdateBundle(ctx context.Context, b *domain.Bundle) error {
	if err := validateBundle(b); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE bundles
		SET name = $1, description = $2, discount = $3, image_url = $4
		WHERE key = $5
	`, b.Name, b.Description, b.Discount, b.ImageURL, b.Key)
	if err != nil {
		return fmt.Errorf("failed to update bundle: %w", err)
	}
	return expectAffected(res, "bundle "+b.Key)
}

func (r *Repository) DeleteBundle(ctx context.Context, key string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bundle_items WHERE bundle_id IN (SELECT id FROM bundles WHERE key = $1)`, key); err != nil {
			return fmt.Errorf("failed to delete bundle items: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bundles WHERE key = $1`, key)
		if err != nil {
			return fmt.Errorf("failed to delete bundle: %w", err)
		}
		return expectAffected(res, "bundle "+key)
	})
}

// AddBundleItem appends a component slot to the bundle identified by key.
func (r *Repository) AddBundleItem(ctx context.Context, key string, it *domain.BundleItem) error {
	if it.ProductID == "" || strings.TrimSpace(it.ItemType) == "" {
		return fmt.Errorf("%w: bundle item needs a product id and item type", ErrInvalid)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRowContext(ctx, `
			SELECT b.id, COALESCE(MAX(bi.position) + 1, 0)
			FROM bundles b LEFT JOIN bundle_items bi ON bi.bundle_id = b.id
			WHERE b.key = $1
			GROUP BY b.id
		`, key).Scan(&it.BundleID, &position)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("bundle %s: %w", key, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to query bundle: %w", err)
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = $1`, it.ProductID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %s: %w", it.ProductID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to query product: %w", err)
		}

		return insertBundleItem(ctx, tx, it, position)
	})
}

func (r *Repository) RemoveBundleItem(ctx context.Context, key, itemID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM bundle_items
		WHERE id = $1 AND bundle_id IN (SELECT id FROM bundles WHERE key = $2)
	`, itemID, key)
	if err != nil {
		return fmt.Errorf("failed to delete bundle item: %w", err)
	}
	return expectAffected(res, "bundle item "+itemID)
}

func insertBundleItem(ctx context.Context, tx *sql.Tx, it *domain.BundleItem, position int) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Quantity < 1 {
		it.Quantity = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bundle_items (id, bundle_id, product_id, item_type, quantity, position)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, it.ID, it.BundleID, it.ProductID, it.ItemType, it.Quantity, position)
	if err != nil {
		return fmt.Errorf("failed to insert bundle item: %w", translate(err))
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

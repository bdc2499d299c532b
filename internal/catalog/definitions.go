package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/bundle"
)

// BundleDefinition implements bundle.DefinitionSource. A bundle item with a
// quantity above one contributes that many components.
func (r *Repository) BundleDefinition(ctx context.Context, key string) (bundle.Definition, error) {
	b, err := r.GetBundle(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return bundle.Definition{}, fmt.Errorf("%w: %s", bundle.ErrUnknownBundle, key)
	}
	if err != nil {
		return bundle.Definition{}, err
	}

	names, err := r.productNames(ctx)
	if err != nil {
		return bundle.Definition{}, err
	}

	def := bundle.Definition{Key: b.Key, Name: b.Name, Discount: b.Discount}
	for _, it := range b.Items {
		for range max(it.Quantity, 1) {
			def.Components = append(def.Components, bundle.Component{
				ProductID: it.ProductID,
				Name:      names[it.ProductID],
				ItemType:  it.ItemType,
			})
		}
	}
	return def, nil
}

func (r *Repository) productNames(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

package bundle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
)

var ErrUnresolvedVariant = errors.New("cannot resolve fulfillment variant")

// DefaultVariantRefs are the fulfillment variants used for bundle components
// picked without an explicit variant, keyed by name keyword.
var DefaultVariantRefs = []struct {
	Keywords []string
	Ref      string
}{
	{[]string{"t-shirt", "tshirt"}, "4938821288"},
	{[]string{"hoodie"}, "4938800535"},
	{[]string{"mug"}, "4938946337"},
	{[]string{"cap"}, "4938937571"},
	{[]string{"tote"}, "4937855201"},
	{[]string{"water"}, "4938941055"},
	{[]string{"mouse pad", "mousepad"}, "4938942751"},
}

func defaultVariantRef(name string) (string, bool) {
	n := strings.ToLower(name)
	for _, d := range DefaultVariantRefs {
		for _, kw := range d.Keywords {
			if strings.Contains(n, kw) {
				return d.Ref, true
			}
		}
	}
	return "", false
}

// ExpandForShipping flattens cart items into fulfillment variants for rate
// quotes. Bundles contribute one unit per component per bundle quantity;
// repeated variants are merged in first-seen order.
func ExpandForShipping(items []domain.LineItem) ([]domain.ShippingItem, error) {
	var out []domain.ShippingItem
	index := make(map[string]int)

	add := func(ref string, qty int) {
		if i, ok := index[ref]; ok {
			out[i].Quantity += qty
			return
		}
		index[ref] = len(out)
		out = append(out, domain.ShippingItem{VariantID: ref, Quantity: qty})
	}

	for _, it := range items {
		if it.IsBundle && len(it.BundleContents) > 0 {
			for _, c := range it.BundleContents {
				ref := c.VariantRef
				if ref == "" {
					var ok bool
					if ref, ok = defaultVariantRef(c.Name); !ok {
						return nil, fmt.Errorf("%w: %s in %s", ErrUnresolvedVariant, c.Name, it.Name)
					}
				}
				add(ref, it.Quantity)
			}
			continue
		}

		ref := it.VariantRef
		if ref == "" {
			ref = it.ID
		}
		add(ref, it.Quantity)
	}
	return out, nil
}

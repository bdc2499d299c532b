package bundle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrIncompleteSelection = errors.New("bundle selection is incomplete")

// Choice is the variant picked for one item type of a bundle.
type Choice struct {
	Color      string `json:"color"`
	Size       string `json:"size,omitempty"`
	VariantRef string `json:"variant_ref,omitempty"`
	Image      string `json:"image,omitempty"`
}

func (c Choice) label() string {
	switch {
	case c.Color != "" && c.Size != "":
		return c.Color + " / " + c.Size
	case c.Size != "":
		return c.Size
	default:
		return c.Color
	}
}

// Choices maps an item type (tshirt, hoodie, cap...) to the picked variant.
type Choices map[string]Choice

// ToLineItem snapshots a bundle selection into a cart line item. Rows for the
// same bundle with the same picks share an id, so adding twice merges.
func ToLineItem(def Definition, choices Choices, price decimal.Decimal, currency, image string) (domain.LineItem, error) {
	contents := make([]domain.BundleContent, 0, len(def.Components))
	idParts := make([]string, 0, len(def.Components))

	for _, c := range def.Components {
		ch, ok := choices[c.ItemType]
		if !ok {
			return domain.LineItem{}, fmt.Errorf("%w: missing %s", ErrIncompleteSelection, c.ItemType)
		}
		contents = append(contents, domain.BundleContent{
			Name:       c.Name,
			Variant:    ch.label(),
			Image:      ch.Image,
			VariantRef: ch.VariantRef,
		})
		idParts = append(idParts, c.ItemType+"="+strings.ToLower(strings.ReplaceAll(ch.label(), " ", "")))
	}

	return domain.LineItem{
		ID:             "bundle:" + def.Key + ":" + strings.Join(idParts, ","),
		Name:           def.Name,
		Price:          price,
		Currency:       currency,
		Image:          image,
		Quantity:       1,
		IsBundle:       true,
		BundleContents: contents,
	}, nil
}

package domain

// SizeChart is the provider's measurement guide for a product, passed through
// to the storefront.
type SizeChart struct {
	ProductRef     string      `json:"productRef"`
	AvailableSizes []string    `json:"availableSizes"`
	Tables         []SizeTable `json:"tables"`
}

type SizeTable struct {
	Type         string            `json:"type"`
	Unit         string            `json:"unit"`
	Description  string            `json:"description,omitempty"`
	ImageURL     string            `json:"imageUrl,omitempty"`
	Measurements []SizeMeasurement `json:"measurements"`
}

type SizeMeasurement struct {
	Label  string      `json:"label"`
	Values []SizeValue `json:"values"`
}

// SizeValue holds either Value or a Min/Max range.
type SizeValue struct {
	Size  string `json:"size"`
	Value string `json:"value,omitempty"`
	Min   string `json:"min,omitempty"`
	Max   string `json:"max,omitempty"`
}

// Package product holds the canonical variant availability model every other
// package converts to and from.
package product

import (
	"maps"
)

// FallbackProductID is used when the upstream payload carries no product identifier.
const FallbackProductID = "unknown-product"

// VariantID identifies one color/style option, it is opaque and only compared for equality.
type VariantID string

// Availability is tri-state, Unknown is the zero value.
//
// Unknown must never be treated as either of the other two states, it is what keeps
// ambiguous upstream data from producing restock alerts.
type Availability int

const (
	Unknown Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Known reports whether the availability was settled to Available or Unavailable.
func (a Availability) Known() bool {
	return a == Available || a == Unavailable
}

// ColorVariant is a single option of the product. Swatch is passed through as-is
// from the upstream entry and is never examined.
type ColorVariant struct {
	ID           VariantID
	Label        string
	Swatch       map[string]any
	Availability Availability
}

// WithAvailability returns a copy of the variant with a different availability.
func (v ColorVariant) WithAvailability(a Availability) ColorVariant {
	v.Swatch = maps.Clone(v.Swatch)
	v.Availability = a
	return v
}

// Record is the result of extracting a product from a payload.
type Record struct {
	ProductID string
	Name      string
	Variants  []ColorVariant
	// Source is the name of the extraction strategy that produced the record,
	// it is only used for diagnostics.
	Source string
}

// NewRecord builds a record, dropping variants without an id and variants
// whose id was already seen.
func NewRecord(productId, name, source string, variants []ColorVariant) Record {
	if productId == "" {
		productId = FallbackProductID
	}

	seen := make(map[VariantID]struct{}, len(variants))
	deduped := make([]ColorVariant, 0, len(variants))
	for _, v := range variants {
		if v.ID == "" {
			continue
		}
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		if v.Label == "" {
			v.Label = string(v.ID)
		}
		deduped = append(deduped, v)
	}

	return Record{
		ProductID: productId,
		Name:      name,
		Variants:  deduped,
		Source:    source,
	}
}

// WithVariants returns a copy of the record holding the given variants.
func (r Record) WithVariants(variants []ColorVariant) Record {
	r.Variants = variants
	return r
}

// Unresolved returns the variants whose availability is still Unknown.
func (r Record) Unresolved() []ColorVariant {
	var out []ColorVariant
	for _, v := range r.Variants {
		if !v.Availability.Known() {
			out = append(out, v)
		}
	}
	return out
}

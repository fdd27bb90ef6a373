package extract

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"restockwatch/internal/product"
	"restockwatch/lib/textutil"
)

var productIdKeys = []string{"id", "productId", "product_id", "sku", "styleId", "handle"}
var productNameKeys = []string{"name", "title", "productName", "displayName"}

var variantIdKeys = []string{"value", "id", "code", "variantId", "colorCode", "colourCode"}
var variantLabelKeys = []string{"label", "displayValue", "name", "colorName", "colourName", "title"}

// keys whose truthy value means the variant can be bought
var availableFlagKeys = []string{
	"available", "isAvailable", "inStock", "in_stock", "isInStock",
	"purchasable", "isPurchasable", "orderable", "isOrderable",
}

// keys whose truthy value means the variant cannot be bought
var unavailableFlagKeys = []string{
	"soldOut", "isSoldOut", "sold_out", "outOfStock", "isOutOfStock", "out_of_stock", "unavailable",
}

// keys carrying a textual stock marker such as "IN_STOCK" or "https://schema.org/OutOfStock"
var markerKeys = []string{
	"availability", "stockStatus", "stock_status", "inventoryStatus", "availabilityStatus", "status",
}

var quantityKeys = []string{"quantityAvailable", "inventoryQuantity", "stockLevel", "availableQuantity"}

var availableMarkers = map[string]struct{}{
	"instock":      {},
	"available":    {},
	"limitedstock": {},
	"lowstock":     {},
	"onlyafewleft": {},
	"instoreonly":  {},
}

var unavailableMarkers = map[string]struct{}{
	"outofstock":   {},
	"soldout":      {},
	"unavailable":  {},
	"notavailable": {},
	"discontinued": {},
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// scalarString renders strings and numbers, anything else yields "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstString(obj map[string]any, keys []string) (string, string) {
	for _, k := range keys {
		if s := scalarString(obj[k]); s != "" {
			return s, k
		}
	}
	return "", ""
}

func parseBool(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	return false, false
}

// ParseMarker classifies a textual stock marker, schema.org urls are reduced to
// their last path segment.
func ParseMarker(marker string) product.Availability {
	if i := strings.LastIndex(marker, "/"); i >= 0 {
		marker = marker[i+1:]
	}
	normalized := textutil.NormalizeKey(marker)
	if _, ok := availableMarkers[normalized]; ok {
		return product.Available
	}
	if _, ok := unavailableMarkers[normalized]; ok {
		return product.Unavailable
	}
	return product.Unknown
}

// availabilityOf reads an explicit availability flag off an entry. The keys that were
// consulted are returned so they can be left out of the swatch metadata.
func availabilityOf(entry map[string]any) (product.Availability, []string) {
	for _, k := range availableFlagKeys {
		if b, ok := parseBool(entry[k]); ok {
			if b {
				return product.Available, []string{k}
			}
			return product.Unavailable, []string{k}
		}
	}
	for _, k := range unavailableFlagKeys {
		if b, ok := parseBool(entry[k]); ok {
			if b {
				return product.Unavailable, []string{k}
			}
			return product.Available, []string{k}
		}
	}
	for _, k := range markerKeys {
		switch v := entry[k].(type) {
		case string:
			if a := ParseMarker(v); a.Known() {
				return a, []string{k}
			}
		case bool:
			if v {
				return product.Available, []string{k}
			}
			return product.Unavailable, []string{k}
		case map[string]any:
			if a, _ := availabilityOf(v); a.Known() {
				return a, []string{k}
			}
		}
	}
	for _, k := range quantityKeys {
		n, ok := entry[k].(json.Number)
		if !ok {
			continue
		}
		f, err := n.Float64()
		if err != nil {
			continue
		}
		if f > 0 {
			return product.Available, []string{k}
		}
		return product.Unavailable, []string{k}
	}
	return product.Unknown, nil
}

// variantOf normalizes one color option entry. Entries may be plain strings.
func variantOf(v any) (product.ColorVariant, bool) {
	if s := scalarString(v); s != "" {
		return product.ColorVariant{ID: product.VariantID(s), Label: s}, true
	}

	entry, ok := asMap(v)
	if !ok {
		return product.ColorVariant{}, false
	}
	if node, ok := asMap(entry["node"]); ok {
		entry = node
	}

	id, idKey := firstString(entry, variantIdKeys)
	label, labelKey := firstString(entry, variantLabelKeys)
	if id == "" {
		// a label is still a stable enough identifier when the upstream has nothing else.
		id = label
	}
	if id == "" {
		return product.ColorVariant{}, false
	}

	availability, consumed := availabilityOf(entry)

	swatch := maps.Clone(entry)
	delete(swatch, idKey)
	delete(swatch, labelKey)
	for _, k := range consumed {
		delete(swatch, k)
	}
	if len(swatch) == 0 {
		swatch = nil
	}

	return product.ColorVariant{
		ID:           product.VariantID(id),
		Label:        label,
		Swatch:       swatch,
		Availability: availability,
	}, true
}

// optionEntries unwraps the common containers a color list is found in: plain
// arrays, `{options|values|items|nodes: [...]}` and graphql `{edges: [{node}]}`.
func optionEntries(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, k := range []string{"options", "values", "items", "nodes", "edges"} {
			if list, ok := t[k].([]any); ok {
				return list
			}
		}
	}
	return nil
}

func variantsOf(v any) []product.ColorVariant {
	var out []product.ColorVariant
	for _, entry := range optionEntries(v) {
		variant, ok := variantOf(entry)
		if ok {
			out = append(out, variant)
		}
	}
	return out
}

// recordOf builds a record out of a product-shaped object whose color list lives
// under one of listKeys.
func recordOf(obj map[string]any, listKeys []string, source string) (product.Record, bool) {
	for _, k := range listKeys {
		list, ok := obj[k]
		if !ok {
			continue
		}
		variants := variantsOf(list)
		if len(variants) == 0 {
			continue
		}

		productId, _ := firstString(obj, productIdKeys)
		name, _ := firstString(obj, productNameKeys)
		record := product.NewRecord(productId, name, source, variants)
		if len(record.Variants) == 0 {
			continue
		}
		return record, true
	}
	return product.Record{}, false
}

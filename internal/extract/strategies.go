package extract

import (
	"sort"

	"restockwatch/internal/product"
)

const (
	SourceStructuredAPI   = "structured-api"
	SourceEmbeddedScript  = "embedded-script"
	SourceRecursiveSearch = "recursive-search"
)

// Strategy is one self-contained way of locating the product in a payload. Extract
// must be pure and report ok=false rather than return a record without variants.
type Strategy struct {
	Name    string
	Extract func(p *Payload) (product.Record, bool)
}

// DefaultStrategies returns the strategies in the order they are tried. New upstream
// shapes are supported by appending a strategy, not by growing an existing one.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: SourceStructuredAPI, Extract: structuredAPI},
		{Name: SourceEmbeddedScript, Extract: embeddedScript},
		{Name: SourceRecursiveSearch, Extract: recursiveSearch},
	}
}

// the two regional spellings of "color", in the shapes the product apis use
var structuredColorKeys = []string{"colors", "colours", "colorOptions", "colourOptions"}

// keys that denote a color option list anywhere in a payload
var colorListKeys = []string{
	"colors", "colours",
	"colorOptions", "colourOptions",
	"colorVariants", "colourVariants",
	"swatches",
}

const maxSearchDepth = 12

func lookup(v any, path ...string) (any, bool) {
	for _, key := range path {
		m, ok := asMap(v)
		if !ok {
			return nil, false
		}
		v, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func lookupMap(v any, path ...string) (map[string]any, bool) {
	found, ok := lookup(v, path...)
	if !ok {
		return nil, false
	}
	return asMap(found)
}

// structuredAPI handles payloads that are already a product object, optionally
// wrapped in a `product` or graphql `data` envelope.
func structuredAPI(p *Payload) (product.Record, bool) {
	root, ok := p.JSON()
	if !ok {
		return product.Record{}, false
	}

	candidates := [][]string{
		{},
		{"product"},
		{"data", "product"},
		{"data"},
	}
	for _, path := range candidates {
		obj, ok := lookupMap(root, path...)
		if !ok {
			continue
		}
		if record, ok := recordOf(obj, structuredColorKeys, SourceStructuredAPI); ok {
			return record, true
		}
	}

	// graphql responses name the root field after the query, e.g. data.productByHandle
	data, ok := lookupMap(root, "data")
	if ok {
		for _, key := range sortedKeys(data) {
			obj, ok := asMap(data[key])
			if !ok {
				continue
			}
			if record, ok := recordOf(obj, structuredColorKeys, SourceStructuredAPI); ok {
				return record, true
			}
		}
	}
	return product.Record{}, false
}

var directProductPaths = [][]string{
	{"product"},
	{"props", "pageProps", "product"},
	{"pageProps", "product"},
	{"props", "product"},
}

var cachedQueryPaths = [][]string{
	{"props", "pageProps", "dehydratedState", "queries"},
	{"pageProps", "dehydratedState", "queries"},
	{"dehydratedState", "queries"},
	{"queries"},
}

var initialDataPaths = [][]string{
	{"initialData", "product"},
	{"props", "pageProps", "initialData", "product"},
	{"props", "initialData", "product"},
	{"initialState", "product"},
}

// productsInQueries yields the product objects cached by a query client,
// `queries[*].state.data` either is the product or holds it under `product`.
func productsInQueries(v any) []map[string]any {
	queries, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, q := range queries {
		data, ok := lookupMap(q, "state", "data")
		if !ok {
			continue
		}
		if nested, ok := lookupMap(data, "product"); ok {
			out = append(out, nested)
		}
		out = append(out, data)
	}
	return out
}

// embeddedScript handles hydration payloads embedded in the page, in the shapes
// listed by the path tables above.
func embeddedScript(p *Payload) (product.Record, bool) {
	for _, root := range p.Roots() {
		for _, path := range directProductPaths {
			if obj, ok := lookupMap(root, path...); ok {
				if record, ok := recordOf(obj, colorListKeys, SourceEmbeddedScript); ok {
					return record, true
				}
			}
		}
		for _, path := range cachedQueryPaths {
			queries, ok := lookup(root, path...)
			if !ok {
				continue
			}
			for _, obj := range productsInQueries(queries) {
				if record, ok := recordOf(obj, colorListKeys, SourceEmbeddedScript); ok {
					return record, true
				}
			}
		}
		for _, path := range initialDataPaths {
			if obj, ok := lookupMap(root, path...); ok {
				if record, ok := recordOf(obj, colorListKeys, SourceEmbeddedScript); ok {
					return record, true
				}
			}
		}
	}
	return product.Record{}, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func search(v any, depth int) (product.Record, bool) {
	if depth > maxSearchDepth {
		return product.Record{}, false
	}

	switch t := v.(type) {
	case map[string]any:
		if record, ok := recordOf(t, colorListKeys, SourceRecursiveSearch); ok {
			return record, true
		}
		for _, k := range sortedKeys(t) {
			if record, ok := search(t[k], depth+1); ok {
				return record, true
			}
		}
	case []any:
		for _, item := range t {
			if record, ok := search(item, depth+1); ok {
				return record, true
			}
		}
	}
	return product.Record{}, false
}

// recursiveSearch is the last resort, a depth bounded walk looking for any color
// list key. The object holding the list is taken as the product.
func recursiveSearch(p *Payload) (product.Record, bool) {
	for _, root := range p.Roots() {
		if record, ok := search(root, 0); ok {
			return record, true
		}
	}
	return product.Record{}, false
}

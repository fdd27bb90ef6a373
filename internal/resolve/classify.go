package resolve

import (
	"encoding/json"
	"strings"

	"restockwatch/internal/extract"
	"restockwatch/internal/product"
	"restockwatch/lib/htmlutil"
	"restockwatch/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	ClassifierStructuredFlag = "structured-flag"
	ClassifierNotifyMe       = "notify-me"
	ClassifierAddToCart      = "add-to-cart"
	ClassifierOutOfStockText = "out-of-stock-text"
)

// Probe is a variant scoped response waiting to be classified.
type Probe struct {
	VariantID product.VariantID
	Payload   *extract.Payload
}

// Classifier looks for one kind of evidence in a probe. ok=false means the
// classifier has no opinion and the next one is consulted.
type Classifier struct {
	Name     string
	Classify func(p Probe) (product.Availability, bool)
}

// DefaultClassifiers returns the classifiers ordered from most to least trusted.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		{Name: ClassifierStructuredFlag, Classify: structuredFlag},
		{Name: ClassifierNotifyMe, Classify: notifyMe},
		{Name: ClassifierAddToCart, Classify: addToCart},
		{Name: ClassifierOutOfStockText, Classify: outOfStockText},
	}
}

// Classify returns the verdict of the first classifier with an opinion and its
// name, Unknown and "" when none had one.
func Classify(classifiers []Classifier, p Probe) (product.Availability, string) {
	for _, c := range classifiers {
		a, ok := c.Classify(p)
		if ok && a.Known() {
			return a, c.Name
		}
	}
	return product.Unknown, ""
}

func structuredFlag(p Probe) (product.Availability, bool) {
	// the extractor strategies are run directly, a probe page without
	// product data is expected and not worth a warning.
	for _, strategy := range extract.DefaultStrategies() {
		record, ok := strategy.Extract(p.Payload)
		if !ok {
			continue
		}
		for _, v := range record.Variants {
			if v.ID == p.VariantID && v.Availability.Known() {
				return v.Availability, true
			}
		}
	}

	doc := p.Payload.Document()
	if doc == nil {
		return product.Unknown, false
	}
	if a := linkedDataAvailability(doc); a.Known() {
		return a, true
	}
	if a := microdataAvailability(doc); a.Known() {
		return a, true
	}
	return product.Unknown, false
}

func linkedDataAvailability(doc *goquery.Document) product.Availability {
	result := product.Unknown
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var value any
		err := json.Unmarshal([]byte(htmlutil.GetText(s.Nodes[0])), &value)
		if err != nil {
			return true
		}
		result = schemaAvailability(value, 0)
		return !result.Known()
	})
	return result
}

// schemaAvailability looks for `offers` on schema.org nodes, following `@graph`
// containers and top level arrays.
func schemaAvailability(v any, depth int) product.Availability {
	if depth > 4 {
		return product.Unknown
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if a := schemaAvailability(item, depth+1); a.Known() {
				return a
			}
		}
	case map[string]any:
		if offers, ok := t["offers"]; ok {
			if a := offersAvailability(offers); a.Known() {
				return a
			}
		}
		if graph, ok := t["@graph"]; ok {
			return schemaAvailability(graph, depth+1)
		}
	}
	return product.Unknown
}

// offersAvailability settles a list of offers (one per size for instance), any
// available offer makes the variant available.
func offersAvailability(v any) product.Availability {
	switch t := v.(type) {
	case map[string]any:
		if nested, ok := t["offers"]; ok {
			if a := offersAvailability(nested); a.Known() {
				return a
			}
		}
		marker, _ := t["availability"].(string)
		return extract.ParseMarker(marker)
	case []any:
		unavailable := 0
		for _, offer := range t {
			switch offersAvailability(offer) {
			case product.Available:
				return product.Available
			case product.Unavailable:
				unavailable++
			}
		}
		if unavailable > 0 && unavailable == len(t) {
			return product.Unavailable
		}
	}
	return product.Unknown
}

func microdataAvailability(doc *goquery.Document) product.Availability {
	result := product.Unknown
	doc.Find(`[itemprop="availability"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		marker := s.AttrOr("href", s.AttrOr("content", ""))
		result = extract.ParseMarker(marker)
		return !result.Known()
	})
	return result
}

const affordanceSelector = `button, a, input[type="submit"], input[type="button"], [role="button"]`

var notifyMatchers = []string{
	"notifyme",
	"notifywhenavailable",
	"emailmewhenavailable",
	"emailwhenavailable",
	"joinwaitlist",
	"jointhewaitlist",
	"alertmewhen",
	"backinstockalert",
}

var addToCartMatchers = []string{
	"addtocart",
	"addtobag",
	"addtobasket",
	"addtotrolley",
	"addtoshoppingbag",
	"buynow",
}

var outOfStockMatchers = []string{
	"outofstock",
	"soldout",
	"currentlyunavailable",
	"temporarilyunavailable",
	"nolongeravailable",
}

func affordanceText(s *goquery.Selection) string {
	return strings.Join([]string{
		htmlutil.GetVisibleText(s.Nodes[0]),
		s.AttrOr("value", ""),
		s.AttrOr("aria-label", ""),
		s.AttrOr("title", ""),
	}, " ")
}

func isHidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if s.AttrOr("aria-hidden", "") == "true" {
		return true
	}
	style := textutil.NormalizeName(s.AttrOr("style", ""))
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	return s.ParentsFiltered(`[hidden], [aria-hidden="true"]`).Length() > 0
}

func isDisabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	if s.AttrOr("aria-disabled", "") == "true" {
		return true
	}
	for _, class := range strings.Fields(strings.ToLower(s.AttrOr("class", ""))) {
		if strings.Contains(class, "disabled") || strings.Contains(class, "soldout") {
			return true
		}
	}
	return false
}

// visibleAffordances returns the visible buttons and links whose text matches.
func visibleAffordances(doc *goquery.Document, matchers []string) *goquery.Selection {
	return doc.Find(affordanceSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !isHidden(s) && textutil.MatchKey(affordanceText(s), matchers)
	})
}

func notifyMe(p Probe) (product.Availability, bool) {
	doc := p.Payload.Document()
	if doc == nil {
		return product.Unknown, false
	}
	if visibleAffordances(doc, notifyMatchers).Length() > 0 {
		return product.Unavailable, true
	}
	return product.Unknown, false
}

func addToCart(p Probe) (product.Availability, bool) {
	doc := p.Payload.Document()
	if doc == nil {
		return product.Unknown, false
	}
	buttons := visibleAffordances(doc, addToCartMatchers)
	if buttons.Length() == 0 {
		return product.Unknown, false
	}
	disabled := buttons.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return isDisabled(s)
	})
	if disabled.Length() > 0 {
		return product.Unknown, false
	}
	if textutil.MatchKey(htmlutil.DocumentText(doc), outOfStockMatchers) {
		return product.Unknown, false
	}
	return product.Available, true
}

func outOfStockText(p Probe) (product.Availability, bool) {
	doc := p.Payload.Document()
	if doc == nil {
		return product.Unknown, false
	}
	if textutil.MatchKey(htmlutil.DocumentText(doc), outOfStockMatchers) {
		return product.Unavailable, true
	}
	return product.Unknown, false
}

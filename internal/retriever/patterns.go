package retriever

import (
	"regexp"
	"strings"
)

// QueryPattern holds the phrases extracted from a structured query like
// "price of X in Y" or "benefits of X". Item is X; Scope is Y and may be
// empty.
type QueryPattern struct {
	Item  string
	Scope string
}

var (
	pricePatternRe   = regexp.MustCompile(`(?i)price\s+(?:of|for)\s+([a-z0-9\s\-]+?)(?:\s+in\s+([a-z0-9\s\-]+))?$`)
	benefitPatternRe = regexp.MustCompile(`(?i)benefits?\s+(?:of|for)\s+([a-z0-9\s\-]+?)$`)
)

// ParsePricePattern extracts the item and optional scope phrase from a
// pricing query. Returns ok=false when the query does not follow the
// "price of X [in Y]" shape.
func ParsePricePattern(query string) (QueryPattern, bool) {
	m := pricePatternRe.FindStringSubmatch(query)
	if m == nil {
		return QueryPattern{}, false
	}
	p := QueryPattern{
		Item:  strings.TrimSpace(m[1]),
		Scope: strings.TrimSpace(m[2]),
	}
	return p, p.Item != ""
}

// ParseBenefitPattern extracts the subject of a "benefit of X" query.
func ParseBenefitPattern(query string) (QueryPattern, bool) {
	m := benefitPatternRe.FindStringSubmatch(query)
	if m == nil {
		return QueryPattern{}, false
	}
	p := QueryPattern{Item: strings.TrimSpace(m[1])}
	return p, p.Item != ""
}

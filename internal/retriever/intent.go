package retriever

import "regexp"

// Intent is a coarse classification of a user query. It is computed
// per-request and selects a specialized retrieval strategy.
type Intent string

const (
	IntentGeneral  Intent = "general"
	IntentPricing  Intent = "pricing"
	IntentServices Intent = "services"
	IntentContact  Intent = "contact"
)

// Classification rules are evaluated in order; first match wins.
// Contact outranks pricing so "how do I contact you about fees"
// resolves to the contact page rather than a pricing search.
var intentRules = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{IntentContact, regexp.MustCompile(`(?i)\b(contact|reach|email|phone|support|connect|message|help|talk|touch)\b`)},
	{IntentPricing, regexp.MustCompile(`(?i)\b(price|cost|rate|charge|fee|pricing|quote|amount)\b`)},
	{IntentServices, regexp.MustCompile(`(?i)\b(services?|offerings?|solutions?)\b`)},
}

// ClassifyIntent tags a query with the first matching intent, or
// IntentGeneral when no rule matches.
func ClassifyIntent(query string) Intent {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(query) {
			return rule.intent
		}
	}
	return IntentGeneral
}

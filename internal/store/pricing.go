package store

import "strings"

// Illustrative USD prices per 1k tokens. These are rough
// approximations for cost display, not a billing contract; the
// pricing section of the config overrides them per model.
var defaultPricing = map[string]float64{
	"gpt-4o":      0.0050,
	"gpt-4o-mini": 0.0006,
	"gpt-4":       0.0300,
	"gpt-3.5":     0.0015,
}

const fallbackPricePer1k = 0.0020

// pricePer1k resolves the per-1k-token price for a model: exact match
// in the configured table first, then longest prefix match in the
// defaults.
func pricePer1k(pricing map[string]float64, model string) float64 {
	if p, ok := pricing[model]; ok {
		return p
	}
	best := ""
	for prefix := range defaultPricing {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return defaultPricing[best]
	}
	return fallbackPricePer1k
}

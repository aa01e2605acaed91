// This file implements the keyword classifier: a pure function from message
// text and catalog to a per-category match report. It is shared by the chat
// pipeline and any catalog-ingestion path so the two never drift apart.

package catalog

import "strings"

// Match is the report for one qualifying category. Slices preserve catalog
// order and keep duplicates exactly as matched.
type Match struct {
	Products      []string `json:"matched_products"`
	SpecificWords []string `json:"matched_specific_words"`
	CommonWords   []string `json:"matched_common_words"`
}

// variationPrefixes and variationSuffix are the fixed affixes recognized by
// evaluation-word matching. They are literal strings in the catalog's source
// language, not patterns.
var variationPrefixes = []string{"很", "非常", "真的", "超", "特別", "十分"}

const variationSuffix = "的"

// Classify maps text to per-category match reports.
//
// Per category, independently:
//  1. complex products are checked first by literal, case-sensitive
//     substring containment; any hit disables the single-product check,
//  2. otherwise single products are checked the same way,
//  3. a category with no product hit is excluded from the result entirely;
//     evaluation words alone never qualify a category,
//  4. qualifying categories additionally report their specific evaluation
//     words and the catalog-wide common words using variation-aware matching.
//
// The result is deterministic for a given text and catalog and does not
// depend on category iteration order. Text is trimmed of surrounding
// whitespace only; no case folding or normalization is applied.
func (c *Catalog) Classify(text string) map[string]Match {
	text = strings.TrimSpace(text)
	result := make(map[string]Match)
	if text == "" {
		return result
	}

	for _, cat := range c.Categories {
		products := matchAll(cat.ComplexProducts, text)
		if len(products) == 0 {
			products = matchAll(cat.SingleProducts, text)
		}
		if len(products) == 0 {
			continue
		}
		result[cat.Name] = Match{
			Products:      products,
			SpecificWords: matchAllVariations(cat.EvaluationWords, text),
			CommonWords:   matchAllVariations(c.CommonEvaluationWords, text),
		}
	}
	return result
}

// matchAll returns the keywords that literally occur in text, in keyword order.
func matchAll(keywords []string, text string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// matchAllVariations returns the words whose base form or any fixed affix
// variant occurs in text, in word order.
func matchAllVariations(words []string, text string) []string {
	var hits []string
	for _, w := range words {
		if matchesWithVariations(w, text) {
			hits = append(hits, w)
		}
	}
	return hits
}

// matchesWithVariations reports whether w, or one of its fixed variants
// (很w, 非常w, 真的w, 超w, 特別w, 十分w, w的, 很w的, 非常w的), occurs in text.
func matchesWithVariations(w, text string) bool {
	if strings.Contains(text, w) {
		return true
	}
	for _, p := range variationPrefixes {
		if strings.Contains(text, p+w) {
			return true
		}
	}
	if strings.Contains(text, w+variationSuffix) {
		return true
	}
	if strings.Contains(text, "很"+w+variationSuffix) || strings.Contains(text, "非常"+w+variationSuffix) {
		return true
	}
	return false
}

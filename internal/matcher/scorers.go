package matcher

import (
	"math"
	"regexp"
	"strings"
)

// Field scorers. Each returns an integer score in [0, 100] comparing a
// claimed storefront value against the supplier shipping address blob or
// product title.

// NameInAddressScore scores a claimed buyer name against an address blob.
// An exact substring hit scores 100; otherwise the full claimed value is
// scored against each address token longer than 4 characters and the best
// score wins.
func NameInAddressScore(claimed, blob string) int {
	return bestMatchInAddress(claimed, blob, 5)
}

// CityInAddressScore scores a claimed city against an address blob. Same
// algorithm as the name scorer with the token floor lowered to 2, the length
// of the shortest real city names.
func CityInAddressScore(claimed, blob string) int {
	return bestMatchInAddress(claimed, blob, 2)
}

func bestMatchInAddress(claimed, blob string, minTokenLen int) int {
	claimed = strings.TrimSpace(claimed)
	if claimed == "" || strings.TrimSpace(blob) == "" {
		return 0
	}

	if strings.Contains(strings.ToLower(blob), strings.ToLower(claimed)) {
		return 100
	}

	best := 0
	for _, bt := range tokenSplit.Split(strings.ToLower(blob), -1) {
		length := len([]rune(bt))
		if length < minTokenLen {
			continue
		}
		if score := Ratio(claimed, bt); score > best {
			best = score
		}
		// Partial ratio only for tokens long enough to be distinctive.
		if length > 4 {
			if score := PartialRatio(claimed, bt); score > best {
				best = score
			}
		}
		if best == 100 {
			break
		}
	}
	return best
}

// StateScore verifies the claimed state against the address blob. The score
// is binary: 100 when the state appears as an abbreviation or full name, 0
// otherwise.
func StateScore(claimed, blob string) int {
	variants := stateVariants(claimed)
	if len(variants) == 0 || strings.TrimSpace(blob) == "" {
		return 0
	}

	blobTokens := make(map[string]bool)
	for _, t := range tokenSplit.Split(strings.ToLower(blob), -1) {
		if t != "" {
			blobTokens[t] = true
		}
	}
	lowerBlob := strings.ToLower(blob)

	for _, v := range variants {
		if strings.Contains(v, " ") {
			// Multi-word state names are matched as substrings.
			if strings.Contains(lowerBlob, v) {
				return 100
			}
			continue
		}
		if blobTokens[v] {
			return 100
		}
	}
	return 0
}

var zipRun = regexp.MustCompile(`\d{5}`)

// ZipScore verifies the claimed zip against the address blob. The first
// 5-digit run of the claim is compared to every 5-digit run in the blob;
// the score is binary.
func ZipScore(claimed, blob string) int {
	claim := zipRun.FindString(claimed)
	if claim == "" {
		return 0
	}

	for _, run := range zipRun.FindAllString(blob, -1) {
		if run == claim {
			return 100
		}
	}
	return 0
}

// Product title similarity

// unitStandardizations rewrites quantity-unit spellings into a canonical
// form so "2 Pack" and "2pcs" compare equal.
var unitStandardizations = []struct {
	re        *regexp.Regexp
	canonical string
}{
	{regexp.MustCompile(`(?i)(\d+)\s*(?:packs?|pk|pcs?|pieces?|count|ct)\b`), "${1}pack"},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:sets?)\b`), "${1}set"},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:ml)\b`), "${1}ml"},
	{regexp.MustCompile(`(?i)(\d+)\s*(?:oz|ounces?)\b`), "${1}oz"},
	{regexp.MustCompile(`(?i)(\d+)\s*h(?:ou)?rs?\b`), "${1}h"},
}

// StandardizeProductTitle normalizes quantity-unit spellings in a title.
func StandardizeProductTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	for _, u := range unitStandardizations {
		s = u.re.ReplaceAllString(s, u.canonical)
	}
	return s
}

// titleStopwords are filler tokens excluded from keyword comparison.
var titleStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "is": true, "are": true,
	"item": true, "product": true, "brand": true, "shipping": true,
	"delivery": true, "with": true, "from": true,
}

// titleKeywords extracts the meaningful tokens of a standardized title:
// length >= 2, not pure digits, not a stopword.
func titleKeywords(title string) map[string]bool {
	keywords := make(map[string]bool)
	for _, t := range tokens(title) {
		if titleStopwords[t] {
			continue
		}
		if isDigits(t) {
			continue
		}
		keywords[t] = true
	}
	return keywords
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// KeywordScore returns the Jaccard similarity of the two titles' keyword
// sets, scaled to 0-100.
func KeywordScore(a, b string) int {
	ka := titleKeywords(a)
	kb := titleKeywords(b)
	if len(ka) == 0 || len(kb) == 0 {
		return 0
	}

	shared := 0
	for t := range ka {
		if kb[t] {
			shared++
		}
	}
	union := len(ka) + len(kb) - shared
	return int(math.Round(100 * float64(shared) / float64(union)))
}

// TitleSimilarity scores two product titles after unit standardization.
// The result is the best of the direct ratio, the partial ratio, the token
// set ratio, and the keyword overlap.
func TitleSimilarity(a, b string) int {
	sa := StandardizeProductTitle(a)
	sb := StandardizeProductTitle(b)
	if sa == "" || sb == "" {
		return 0
	}

	best := Ratio(sa, sb)
	if score := PartialRatio(sa, sb); score > best {
		best = score
	}
	if score := TokenSetRatio(sa, sb); score > best {
		best = score
	}
	if score := KeywordScore(sa, sb); score > best {
		best = score
	}
	return best
}

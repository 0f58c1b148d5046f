package matcher

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Fuzzy similarity kernels. All kernels return integer scores in [0, 100].

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// Ratio returns the normalized edit-distance similarity of two strings.
func Ratio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}

	return int(math.Round(100 * (1 - float64(dist)/float64(maxLen))))
}

// PartialRatio returns the best Ratio of the shorter string against every
// same-length window of the longer string.
func PartialRatio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		return 0
	}
	if len(shorter) == len(longer) {
		return Ratio(string(shorter), string(longer))
	}

	best := 0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := string(longer[i : i+len(shorter)])
		if score := Ratio(string(shorter), window); score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSetRatio compares the deduplicated sorted token sets of both strings,
// scoring the shared tokens against each side's full set.
func TokenSetRatio(a, b string) int {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	inB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		inB[t] = true
	}
	inShared := make(map[string]bool)
	for _, t := range tokensA {
		if inB[t] {
			shared = append(shared, t)
			inShared[t] = true
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tokensB {
		if !inShared[t] {
			onlyB = append(onlyB, t)
		}
	}

	s0 := strings.Join(shared, " ")
	s1 := strings.TrimSpace(s0 + " " + strings.Join(onlyA, " "))
	s2 := strings.TrimSpace(s0 + " " + strings.Join(onlyB, " "))

	best := Ratio(s1, s2)
	if s0 != "" {
		if score := Ratio(s0, s1); score > best {
			best = score
		}
		if score := Ratio(s0, s2); score > best {
			best = score
		}
	}
	return best
}

// tokenSet returns the sorted deduplicated tokens of a string.
func tokenSet(s string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, t := range tokenSplit.Split(strings.ToLower(s), -1) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// tokens returns the lowercase tokens of a string with length >= 2, in input
// order.
func tokens(s string) []string {
	var out []string
	for _, t := range tokenSplit.Split(strings.ToLower(s), -1) {
		if len(t) >= 2 {
			out = append(out, t)
		}
	}
	return out
}

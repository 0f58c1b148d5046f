package matcher

import "strings"

// stateAbbrevToName maps US state abbreviations to lowercase full names.
// State verification translates in both directions so "TX" matches an
// address spelling out "Texas" and vice versa.
var stateAbbrevToName = map[string]string{
	"AL": "alabama",
	"AK": "alaska",
	"AZ": "arizona",
	"AR": "arkansas",
	"CA": "california",
	"CO": "colorado",
	"CT": "connecticut",
	"DE": "delaware",
	"FL": "florida",
	"GA": "georgia",
	"HI": "hawaii",
	"ID": "idaho",
	"IL": "illinois",
	"IN": "indiana",
	"IA": "iowa",
	"KS": "kansas",
	"KY": "kentucky",
	"LA": "louisiana",
	"ME": "maine",
	"MD": "maryland",
	"MA": "massachusetts",
	"MI": "michigan",
	"MN": "minnesota",
	"MS": "mississippi",
	"MO": "missouri",
	"MT": "montana",
	"NE": "nebraska",
	"NV": "nevada",
	"NH": "new hampshire",
	"NJ": "new jersey",
	"NM": "new mexico",
	"NY": "new york",
	"NC": "north carolina",
	"ND": "north dakota",
	"OH": "ohio",
	"OK": "oklahoma",
	"OR": "oregon",
	"PA": "pennsylvania",
	"RI": "rhode island",
	"SC": "south carolina",
	"SD": "south dakota",
	"TN": "tennessee",
	"TX": "texas",
	"UT": "utah",
	"VT": "vermont",
	"VA": "virginia",
	"WA": "washington",
	"WV": "west virginia",
	"WI": "wisconsin",
	"WY": "wyoming",
}

var stateNameToAbbrev = func() map[string]string {
	m := make(map[string]string, len(stateAbbrevToName))
	for abbrev, name := range stateAbbrevToName {
		m[name] = abbrev
	}
	return m
}()

// stateVariants returns the known spellings of a claimed state value, always
// lowercase. Unknown values return just the normalized input.
func stateVariants(claimed string) []string {
	s := strings.TrimSpace(claimed)
	if s == "" {
		return nil
	}

	upper := strings.ToUpper(s)
	lower := strings.ToLower(s)

	if full, ok := stateAbbrevToName[upper]; ok {
		return []string{strings.ToLower(upper), full}
	}
	if abbrev, ok := stateNameToAbbrev[lower]; ok {
		return []string{lower, strings.ToLower(abbrev)}
	}
	return []string{lower}
}

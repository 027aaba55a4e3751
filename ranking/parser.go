package ranking

import (
	"regexp"
	"strings"
)

// Sentinel is the literal line evaluators are instructed to terminate with,
// followed by their numbered ranking. Case-sensitive, with colon.
const Sentinel = "FINAL RANKING:"

var (
	// numberedLineRe matches one ranked item per line in the instructed wire
	// format "<n>. Response <Letter>". A closing paren after the number and
	// markdown emphasis around the label are tolerated best-effort.
	numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*\*{0,2}Response\s+([A-Z]+)\b`)

	// labelRe matches any bare label mention, used as a fallback when no
	// numbered list is found.
	labelRe = regexp.MustCompile(`Response\s+([A-Z]+)\b`)
)

// Parser extracts an ordered label sequence from a backend's free-form
// evaluation text. The contract is best-effort: a malformed or partial reply
// yields a partial (possibly empty) ranking, never an error.
//
// The zero value is not usable; construct with NewParser. The sentinel is a
// field rather than a constant reference so the wire format can be hardened
// or versioned without touching aggregation logic.
type Parser struct {
	sentinel string
}

// NewParser constructs a Parser using the default sentinel.
func NewParser() *Parser {
	return &Parser{sentinel: Sentinel}
}

// Parse recovers an ordered label ranking from text.
//
// The region after the last sentinel occurrence is preferred; when the
// sentinel is absent the entire text is scanned. Within the region, numbered
// "<n>. Response <Letter>" lines win in reading order; if none match, bare
// label mentions are taken in reading order. Labels are deduplicated by
// first occurrence and restricted to the known set, so the result may be
// shorter than known.
func (p *Parser) Parse(text string, known []Label) []Label {
	region := text
	if idx := strings.LastIndex(text, p.sentinel); idx >= 0 {
		region = text[idx+len(p.sentinel):]
	}

	matches := numberedLineRe.FindAllStringSubmatch(region, -1)
	if len(matches) == 0 {
		matches = labelRe.FindAllStringSubmatch(region, -1)
	}

	allowed := make(map[Label]bool, len(known))
	for _, l := range known {
		allowed[l] = true
	}

	var out []Label
	seen := make(map[Label]bool, len(matches))
	for _, m := range matches {
		l := Label(labelPrefix + m[1])
		if seen[l] {
			continue
		}
		if len(known) > 0 && !allowed[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

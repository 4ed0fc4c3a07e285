package services

import (
	"regexp"
	"strconv"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// citationPattern matches inline [n] citation markers.
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ResolveCitations scans answer text for [n] markers and reports which
// source LocalIDs were actually cited, in first-appearance order.
// Markers that do not match any LocalID are left inert in the text:
// they never error and never add a source. The source list itself is
// returned to the caller unmodified; resolution only observes.
func ResolveCitations(answer string, sources []domain.Source) []int {
	if len(sources) == 0 {
		return nil
	}

	valid := make(map[int]bool, len(sources))
	for _, src := range sources {
		valid[src.LocalID] = true
	}

	seen := make(map[int]bool)
	var cited []int
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || !valid[n] || seen[n] {
			continue
		}
		seen[n] = true
		cited = append(cited, n)
	}

	return cited
}

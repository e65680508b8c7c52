package graph

import (
	"regexp"
	"strconv"
	"strings"
)

var rePercentage = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)\s*%$`)

// ExtractWeight parses an edge label of the form "<number>%" into a fraction
// in [0,1]. Surrounding whitespace and blanks before the sign are ignored. Role labels, empty labels,
// malformed numbers and values outside [0,100] yield ErrNotAPercentage.
func ExtractWeight(label string) (float64, error) {
	m := rePercentage.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, ErrNotAPercentage
	}

	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, ErrNotAPercentage
	}

	return pct / 100, nil
}

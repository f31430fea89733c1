package materiel

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches PREFIX-YEAR-CODE-SEQQ, e.g. "PSY-2026-INF-0001".
var numberPattern = regexp.MustCompile(`^([A-Z0-9]+)-(\d{4})-([A-Z0-9]+)-(\d{4,})$`)

// FormatNumber renders an inventory number from its parts.
// The sequence is zero-padded to 4 digits; it keeps growing past 9999
// without truncation.
func FormatNumber(prefix string, year int, categoryCode string, sequence int) string {
	return fmt.Sprintf("%s-%d-%s-%04d", prefix, year, strings.ToUpper(categoryCode), sequence)
}

// NumberParts is the decomposition of an inventory number.
type NumberParts struct {
	Prefix       string
	Year         int
	CategoryCode string
	Sequence     int
}

// ParseNumber splits an inventory number into its parts.
// It returns false when the code does not follow the generated format;
// such codes can still exist as raw scans of foreign labels.
func ParseNumber(code string) (NumberParts, bool) {
	m := numberPattern.FindStringSubmatch(code)
	if m == nil {
		return NumberParts{}, false
	}
	year, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[4])
	return NumberParts{
		Prefix:       m[1],
		Year:         year,
		CategoryCode: m[3],
		Sequence:     seq,
	}, true
}

// internal/sequence/format.go
package sequence

import (
	"fmt"
	"regexp"
	"strconv"

	"codavert-workers/internal/models"
)

// Format renders n as "<PREFIX>-%04d". Values past 9999 keep growing.
func Format(kind models.DocumentKind, n int64) string {
	return fmt.Sprintf("%s-%04d", kind.Prefix(), n)
}

// Parse is the inverse of Format.
func Parse(kind models.DocumentKind, number string) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown document kind %q", kind)
	}
	m := numberPattern(kind).FindStringSubmatch(number)
	if m == nil {
		return 0, fmt.Errorf("%q is not a %s number", number, kind)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", number, err)
	}
	return n, nil
}

// HighestExisting returns the largest well-formed number among existing,
// ignoring entries that do not parse.
func HighestExisting(kind models.DocumentKind, existing []string) int64 {
	var highest int64
	for _, number := range existing {
		n, err := Parse(kind, number)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

func numberPattern(kind models.DocumentKind) *regexp.Regexp {
	return patterns[kind]
}

var patterns = map[models.DocumentKind]*regexp.Regexp{
	models.DocumentInvoice:  regexp.MustCompile(`^INV-(\d+)$`),
	models.DocumentProposal: regexp.MustCompile(`^PROP-(\d+)$`),
	models.DocumentMOU:      regexp.MustCompile(`^MOU-(\d+)$`),
	models.DocumentSRS:      regexp.MustCompile(`^SRS-(\d+)$`),
}

package sequence

import (
	"testing"

	"codavert-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		kind     models.DocumentKind
		value    int64
		expected string
	}{
		{models.DocumentInvoice, 1, "INV-0001"},
		{models.DocumentProposal, 42, "PROP-0042"},
		{models.DocumentMOU, 9999, "MOU-9999"},
		{models.DocumentSRS, 10000, "SRS-10000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.kind, tt.value))

			parsed, err := Parse(tt.kind, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.value, parsed)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, number := range []string{"INV0001", "PROP-0001", "INV-", "INV-12a", " INV-0001"} {
		_, err := Parse(models.DocumentInvoice, number)
		assert.Error(t, err, number)
	}

	_, err := Parse(models.DocumentKind("RECEIPT"), "REC-0001")
	assert.Error(t, err)
}

func TestHighestExisting(t *testing.T) {
	assert.Equal(t, int64(0), HighestExisting(models.DocumentMOU, nil))
	assert.Equal(t, int64(12), HighestExisting(models.DocumentMOU, []string{"MOU-0002", "MOU-0012", "MOU-x"}))
}

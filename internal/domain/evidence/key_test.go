package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_String(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC.
	est := time.FixedZone("EST", -5*3600)
	at := time.Date(2024, 1, 31, 23, 30, 0, 0, est)

	key := NewKey("job-1", "news_api", "ev-9", ".json", at)
	assert.Equal(t, "evidence/news_api/2024/02/01/job-1/ev-9.json", key.String())
}

func TestParseKey_RoundTrip(t *testing.T) {
	original := NewKey(
		"0b6f2f4e-6f0a-4bb4-9b0f-0e1f8f3c2a11",
		"opencorporates",
		"6c3f1c0e-2d5d-4d4e-8c61-7a1f0a5d9b22",
		"json",
		time.Date(2023, 12, 5, 8, 0, 0, 0, time.UTC),
	)

	parsed, err := ParseKey(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.SourceType, parsed.SourceType)
	assert.Equal(t, original.JobID, parsed.JobID)
	assert.Equal(t, original.EvidenceID, parsed.EvidenceID)
	assert.Equal(t, original.Extension, parsed.Extension)
	assert.True(t, parsed.Date.Equal(time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, original.String(), parsed.String())
}

func TestParseKey_Malformed(t *testing.T) {
	bad := []string{
		"",
		"evidence/news_api/2024/02/01/job/ev",
		"blobs/news_api/2024/02/01/job/ev.json",
		"evidence/news_api/2024/13/01/job/ev.json",
		"evidence/news_api/2024/02/01//ev.json",
		"evidence/news_api/2024/02/01/job/ev.",
		"evidence/news_api/2024/02/01/job/a/ev.json",
	}
	for _, k := range bad {
		_, err := ParseKey(k)
		assert.ErrorIs(t, err, ErrMalformedKey, k)
	}
}

func TestGenerateObjectKey_UsesUTCDate(t *testing.T) {
	key := GenerateObjectKey("j", "osint_search", "e", "json")
	parsed, err := ParseKey(key)
	require.NoError(t, err)

	today := time.Now().UTC()
	// Tolerate a midnight rollover between the two clock reads.
	assert.WithinDuration(t, today, parsed.Date, 48*time.Hour)
}

func TestChecksum(t *testing.T) {
	sum := Checksum([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
	assert.Equal(t, sum, Checksum([]byte("abc")))
	assert.True(t, ValidChecksum(sum))
	assert.False(t, ValidChecksum("ABC"))
	assert.False(t, ValidChecksum(sum[:63]+"Z"))
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Record {
	return Record{
		Date:        "2024-10-19",
		Title:       "The Tail of Comet Tsuchinshan-ATLAS",
		Explanation: "A long tail over the horizon.",
		MediaType:   MediaImage,
		URL:         "https://apod.nasa.gov/apod/image/2410/comet_1024.jpg",
		HDURL:       "https://apod.nasa.gov/apod/image/2410/comet.jpg",
	}
}

func TestToday_UsesUTCDayBoundary(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 08:00 local on the 20th is still the 19th in UTC.
	now := time.Date(2024, 10, 20, 8, 0, 0, 0, loc)
	assert.Equal(t, "2024-10-19", Today(now))
}

func TestRecord_Validate(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"bad date", func(r *Record) { r.Date = "19/10/2024" }},
		{"empty title", func(r *Record) { r.Title = "" }},
		{"empty url", func(r *Record) { r.URL = "" }},
		{"unknown media", func(r *Record) { r.MediaType = "gif" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrMalformed)
		})
	}
}

func TestDecodeRecord(t *testing.T) {
	encoded, err := EncodeRecord(validRecord())
	require.NoError(t, err)
	assert.Contains(t, encoded, `"media_type":"image"`)

	decoded, err := DecodeRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, validRecord(), decoded)

	_, err = DecodeRecord("{not json")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRecord(`{"date":"2024-10-19"}`)
	assert.ErrorIs(t, err, ErrMalformed, "schema validation should reject partial records")
}

func TestDecodeHistory_RejectsInvalidEntry(t *testing.T) {
	bad := HistoryEntry{Record: validRecord(), AddedAt: time.Now()}
	bad.URL = ""
	encoded, err := EncodeHistory([]HistoryEntry{{Record: validRecord(), AddedAt: time.Now()}, bad})
	require.NoError(t, err)

	_, err = DecodeHistory(encoded)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeHistory_NilIsEmptyArray(t *testing.T) {
	encoded, err := EncodeHistory(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)

	entries, err := DecodeHistory(encoded)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redacted/internal/domain"
)

func TestDetectAllKinds(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		name string
		text string
		kind domain.SpanKind
	}{
		{"explicit marker", "before [REDACTED] after", domain.SpanExplicitMarker},
		{"explicit marker lowercase", "before [redacted] after", domain.SpanExplicitMarker},
		{"sealed marker", "see [DOCUMENT SEALED BY COURT] here", domain.SpanSealedMarker},
		{"exemption code", "withheld per (b)(7) exemption", domain.SpanExemptionCode},
		{"block glyphs", "name: ██████ was present", domain.SpanBlockGlyph},
		{"letter run", "account XXXXXXXX closed", domain.SpanLetterRun},
		{"underscore run", "signed ____________ witness", domain.SpanUnderscoreRun},
		{"asterisk run", "ssn ******** on file", domain.SpanAsteriskRun},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spans := d.Detect(tc.text)
			require.Len(t, spans, 1)
			assert.Equal(t, tc.kind, spans[0].Kind)
			assert.Less(t, spans[0].Start, spans[0].End)
		})
	}
}

func TestDetectScenarioOffsets(t *testing.T) {
	d := NewDetector()

	spans := d.Detect("Name: [REDACTED]. Born 1990. Org: FBI.")
	require.Len(t, spans, 1)
	assert.Equal(t, 6, spans[0].Start)
	assert.Equal(t, 16, spans[0].End)
	assert.Equal(t, domain.SpanExplicitMarker, spans[0].Kind)
}

func TestDetectEmptyResultIsValid(t *testing.T) {
	d := NewDetector()
	assert.Empty(t, d.Detect("nothing hidden in this text"))
	assert.Empty(t, d.Detect(""))
}

func TestDetectSortedByStart(t *testing.T) {
	d := NewDetector()

	spans := d.Detect("______________ then ████ then [REDACTED] then (b)(6)")
	require.Len(t, spans, 4)
	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i-1].Start, spans[i].Start)
	}
}

func TestDetectKindPriorityOnTies(t *testing.T) {
	d := NewDetector()

	// the sealed bracket also contains a letter run; both matches start
	// inside the text but the bracket owns its opening position
	spans := d.Detect("[XXXXXX SEALED]")
	require.NotEmpty(t, spans)
	assert.Equal(t, domain.SpanSealedMarker, spans[0].Kind)
	assert.Equal(t, 0, spans[0].Start)
}

func TestDetectDeterministic(t *testing.T) {
	d := NewDetector()
	text := "a [REDACTED] b ████ c XXXXX d ********"

	first := d.Detect(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Detect(text))
	}
}

func TestUnionMergesOverlaps(t *testing.T) {
	spans := []domain.RedactionSpan{
		{Start: 0, End: 5, Kind: domain.SpanBlockGlyph},
		{Start: 3, End: 9, Kind: domain.SpanLetterRun},
		{Start: 20, End: 25, Kind: domain.SpanAsteriskRun},
	}

	intervals := Union(spans)
	require.Len(t, intervals, 2)
	assert.Equal(t, domain.Interval{Start: 0, End: 9}, intervals[0])
	assert.Equal(t, domain.Interval{Start: 20, End: 25}, intervals[1])
}

func TestUnionKeepsOriginalKinds(t *testing.T) {
	d := NewDetector()
	text := "x ████XXXXX y"
	spans := d.Detect(text)

	require.Len(t, spans, 2)
	assert.Equal(t, domain.SpanBlockGlyph, spans[0].Kind)
	assert.Equal(t, domain.SpanLetterRun, spans[1].Kind)
	assert.Len(t, Union(spans), 1)
}

func TestOverlappingAndCovered(t *testing.T) {
	intervals := []domain.Interval{{Start: 10, End: 20}, {Start: 30, End: 40}}

	assert.True(t, Overlapping(intervals, 15, 25))
	assert.True(t, Overlapping(intervals, 5, 11))
	assert.False(t, Overlapping(intervals, 20, 30))

	assert.True(t, Covered(intervals, 10, 20))
	assert.True(t, Covered(intervals, 12, 18))
	assert.False(t, Covered(intervals, 15, 25))
	assert.False(t, Covered(intervals, 25, 28))
}

func TestMarkerOnly(t *testing.T) {
	assert.True(t, MarkerOnly("[REDACTED]"))
	assert.True(t, MarkerOnly("██████"))
	assert.True(t, MarkerOnly("[REDACTED][REDACTED]"))
	assert.False(t, MarkerOnly("John Smith"))
	assert.False(t, MarkerOnly("REDACTED"))
	assert.False(t, MarkerOnly("[REDACTED] John"))
	assert.False(t, MarkerOnly(""))
}

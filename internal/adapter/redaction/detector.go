// Package redaction scans raw document text for withheld-content markers.
// Seven pattern kinds are recognized independently; the merged result is the
// authoritative span set every downstream suppression check runs against.
package redaction

import (
	"regexp"
	"sort"

	"redacted/internal/domain"
)

type pattern struct {
	kind domain.SpanKind
	re   *regexp.Regexp
}

// patterns are listed in priority order: when two matches start at the same
// offset the earlier kind owns the position.
var patterns = []pattern{
	{domain.SpanExplicitMarker, regexp.MustCompile(`(?i)\[REDACTED\]`)},
	{domain.SpanSealedMarker, regexp.MustCompile(`(?i)\[[^\[\]]*SEALED[^\[\]]*\]`)},
	{domain.SpanExemptionCode, regexp.MustCompile(`\(b\)\(\d\)`)},
	{domain.SpanBlockGlyph, regexp.MustCompile(`█+`)},
	{domain.SpanLetterRun, regexp.MustCompile(`X{5,}`)},
	{domain.SpanUnderscoreRun, regexp.MustCompile(`_{10,}`)},
	{domain.SpanAsteriskRun, regexp.MustCompile(`\*{5,}`)},
}

var kindPriority = func() map[domain.SpanKind]int {
	m := make(map[domain.SpanKind]int, len(patterns))
	for i, p := range patterns {
		m[p.kind] = i
	}
	return m
}()

type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns every redaction span in text, sorted by start offset with
// ties broken by kind priority. Spans from different kinds may overlap;
// Union collapses them for suppression checks. An empty result is a valid
// outcome, not an error.
func (d *Detector) Detect(text string) []domain.RedactionSpan {
	var spans []domain.RedactionSpan
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			spans = append(spans, domain.RedactionSpan{
				Start: loc[0],
				End:   loc[1],
				Kind:  p.kind,
			})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return kindPriority[spans[i].Kind] < kindPriority[spans[j].Kind]
	})
	return spans
}

// Union merges overlapping or adjacent spans from any kind into effective
// redacted intervals. The originals keep their kinds for reporting; overlap
// tests in the extractor and validator use the union.
func Union(spans []domain.RedactionSpan) []domain.Interval {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]domain.RedactionSpan, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	intervals := []domain.Interval{{Start: sorted[0].Start, End: sorted[0].End}}
	for _, s := range sorted[1:] {
		last := &intervals[len(intervals)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		intervals = append(intervals, domain.Interval{Start: s.Start, End: s.End})
	}
	return intervals
}

// Overlapping reports whether [start, end) intersects any interval.
func Overlapping(intervals []domain.Interval, start, end int) bool {
	for _, iv := range intervals {
		if iv.Overlaps(start, end) {
			return true
		}
		if iv.Start >= end {
			break
		}
	}
	return false
}

// Covered reports whether [start, end) lies wholly inside one interval.
func Covered(intervals []domain.Interval, start, end int) bool {
	for _, iv := range intervals {
		if start >= iv.Start && end <= iv.End {
			return true
		}
		if iv.Start >= end {
			break
		}
	}
	return false
}

// MarkerOnly reports whether excerpt consists entirely of redaction marker
// text. Used by the citation validator: an excerpt citing a redacted range
// must quote the marker, never a guessed underlying value.
func MarkerOnly(excerpt string) bool {
	d := NewDetector()
	covered := Union(d.Detect(excerpt))
	pos := 0
	for _, iv := range covered {
		if iv.Start > pos {
			return false
		}
		if iv.End > pos {
			pos = iv.End
		}
	}
	return pos == len(excerpt) && len(excerpt) > 0
}

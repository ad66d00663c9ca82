package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redacted/internal/domain"
	"redacted/internal/port"
)

var _ port.ArchiveStore = (*BoltStore)(nil)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(id string, uploaded time.Time) domain.Document {
	return domain.Document{
		ID:              id,
		InvestigationID: "inv1",
		Source:          "/archive/" + id + ".txt",
		Hash:            "hash-" + id,
		Pages:           2,
		Status:          domain.StatusPending,
		UploadedAt:      uploaded,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.PutDocument(testDoc("d1", now), "raw document text"))

	doc, err := s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, "hash-d1", doc.Hash)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.Equal(t, now.UnixNano(), doc.UploadedAt.UnixNano())

	text, err := s.RawText("d1")
	require.NoError(t, err)
	assert.Equal(t, "raw document text", text)

	byHash, found, err := s.FindDocumentByHash("hash-d1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "d1", byHash.ID)

	_, found, err = s.FindDocumentByHash("no-such-hash")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.GetDocument("missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestNextPendingFIFO(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	require.NoError(t, s.PutDocument(testDoc("newer", base.Add(time.Minute)), "a"))
	require.NoError(t, s.PutDocument(testDoc("oldest", base.Add(-time.Minute)), "b"))
	require.NoError(t, s.PutDocument(testDoc("middle", base), "c"))

	analyzed := testDoc("done", base.Add(-time.Hour))
	analyzed.Status = domain.StatusAnalyzed
	require.NoError(t, s.PutDocument(analyzed, "d"))

	doc, found, err := s.NextPending()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "oldest", doc.ID)
}

func TestClaimDocumentExactlyOneWinner(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutDocument(testDoc("d1", time.Now()), "text"))

	const agents = 10
	var wg sync.WaitGroup
	results := make([]error, agents)
	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.ClaimDocument("d1", "agent", 5*time.Minute)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
		}
	}
	assert.Equal(t, 1, wins)

	doc, err := s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, doc.Status)
	assert.Equal(t, "agent", doc.LeaseAgent)
}

func TestClaimExpiredLeaseReclaimable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutDocument(testDoc("d1", time.Now()), "text"))

	_, err := s.ClaimDocument("d1", "agent-a", -time.Second)
	require.NoError(t, err)

	lease, err := s.ClaimDocument("d1", "agent-b", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "agent-b", lease.AgentID)
}

func TestReleaseDocumentOnlyLeaseHolder(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutDocument(testDoc("d1", time.Now()), "text"))

	_, err := s.ClaimDocument("d1", "agent-a", 5*time.Minute)
	require.NoError(t, err)

	err = s.ReleaseDocument("d1", "agent-b", domain.StatusAnalyzed)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	require.NoError(t, s.ReleaseDocument("d1", "agent-a", domain.StatusAnalyzed))

	doc, err := s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnalyzed, doc.Status)
	assert.Empty(t, doc.LeaseAgent)
	assert.True(t, doc.LeaseExpires.IsZero())

	_, found, err := s.NextPending()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReplaceSpansUpdatesRedactionCount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutDocument(testDoc("d1", time.Now()), "text"))

	spans := []domain.RedactionSpan{
		{Start: 0, End: 10, Kind: domain.SpanExplicitMarker},
		{Start: 20, End: 25, Kind: domain.SpanBlockGlyph},
	}
	require.NoError(t, s.ReplaceSpans("d1", spans))

	got, err := s.GetSpans("d1")
	require.NoError(t, err)
	assert.Equal(t, spans, got)

	doc, err := s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.RedactionCount)

	require.NoError(t, s.ReplaceSpans("d1", nil))
	doc, err = s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.RedactionCount)
}

func TestReplaceChunksIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutDocument(testDoc("d1", time.Now()), "text"))

	first := []domain.Chunk{
		{ID: "c1", DocID: "d1", Index: 0, Page: 1, Start: 0, End: 10, Text: "first ten "},
		{ID: "c2", DocID: "d1", Index: 1, Page: 1, Start: 10, End: 20, Text: "second ten"},
	}
	require.NoError(t, s.ReplaceChunks("d1", first))
	require.NoError(t, s.ReplaceChunks("d1", first))

	chunks, err := s.GetChunksByDoc("d1")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Equal(t, first, chunks)

	// a rechunk with different parameters replaces the list wholesale
	second := []domain.Chunk{
		{ID: "c3", DocID: "d1", Index: 0, Page: 1, Start: 0, End: 20, Text: "first ten second ten"},
	}
	require.NoError(t, s.ReplaceChunks("d1", second))

	chunks, err = s.GetChunksByDoc("d1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	_, err = s.GetChunk("c1")
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}

func TestUpsertMentionDeduplicates(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	first, err := s.UpsertMention("inv1", domain.EntityMention{Text: "John Smith", Type: domain.TypePerson}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.MentionCount)

	// case and whitespace variants fold onto the same record
	second, err := s.UpsertMention("inv1", domain.EntityMention{Text: "  john   SMITH ", Type: domain.TypePerson}, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.MentionCount)
	assert.Equal(t, "John Smith", second.Name)

	other, err := s.UpsertMention("inv2", domain.EntityMention{Text: "John Smith", Type: domain.TypePerson}, now)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
	assert.Equal(t, 1, other.MentionCount)
}

func TestUpsertMentionConcurrent(t *testing.T) {
	s := newTestStore(t)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpsertMention("inv1", domain.EntityMention{Text: "Jane Doe", Type: domain.TypePerson}, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entities, err := s.ListEntities("inv1")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, writers, entities[0].MentionCount)
}

func TestSearchEntities(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for i := 0; i < 3; i++ {
		_, err := s.UpsertMention("inv1", domain.EntityMention{Text: "Palm Beach", Type: domain.TypeLocation}, now)
		require.NoError(t, err)
	}
	_, err := s.UpsertMention("inv1", domain.EntityMention{Text: "John Smith", Type: domain.TypePerson}, now)
	require.NoError(t, err)

	matches, err := s.SearchEntities("inv1", "beach")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Palm Beach", matches[0].Name)

	all, err := s.ListEntities("inv1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Palm Beach", all[0].Name, "higher mention count sorts first")
}

func TestCastVote(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutPacket(domain.EvidencePacket{ID: "p1", CreatedAt: time.Now()}))

	votes, err := s.CastVote("p1", "token-a", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)

	// same token again is a no-op
	votes, err = s.CastVote("p1", "token-a", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, votes)

	votes, err = s.CastVote("p1", "token-b", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, votes)

	// without a token every call counts
	votes, err = s.CastVote("p1", "", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, votes)

	votes, err = s.CastVote("p1", "token-c", -1)
	require.NoError(t, err)
	assert.Equal(t, 2, votes)

	_, err = s.CastVote("missing", "", 1)
	assert.Error(t, err)
}

func TestCastVoteNeverNegative(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutPacket(domain.EvidencePacket{ID: "p1", CreatedAt: time.Now()}))

	votes, err := s.CastVote("p1", "", -5)
	require.NoError(t, err)
	assert.Equal(t, 0, votes)
}

func TestCastVoteConcurrent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutPacket(domain.EvidencePacket{ID: "p1", CreatedAt: time.Now()}))

	const voters = 10
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CastVote("p1", "", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := s.GetPacket("p1")
	require.NoError(t, err)
	assert.Equal(t, voters, p.Votes)
}

func TestActivityFeedNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	for i, desc := range []string{"first", "second", "third"} {
		require.NoError(t, s.AppendActivity(domain.ActivityEvent{
			AgentID:         "agent",
			Action:          domain.ActionIngested,
			Description:     desc,
			InvestigationID: "inv1",
			CreatedAt:       base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.AppendActivity(domain.ActivityEvent{
		AgentID:         "agent",
		Action:          domain.ActionVoteCast,
		Description:     "elsewhere",
		InvestigationID: "inv2",
		CreatedAt:       base.Add(10 * time.Second),
	}))

	events, err := s.ListActivity("inv1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Description)
	assert.Equal(t, "first", events[2].Description)

	limited, err := s.ListActivity("inv1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	all, err := s.ListActivity("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "elsewhere", all[0].Description)
}

func TestChunkingFingerprintMigration(t *testing.T) {
	s := newTestStore(t)

	fp := ChunkingFingerprint(1500, 3)
	assert.Equal(t, fp, ChunkingFingerprint(1500, 3))
	assert.NotEqual(t, fp, ChunkingFingerprint(1000, 3))

	// fresh store has no stored fingerprint, nothing to reprocess
	stale, _, err := s.CheckChunking(fp)
	require.NoError(t, err)
	assert.False(t, stale)

	require.NoError(t, s.SetChunkingFingerprint(fp))

	stale, _, err = s.CheckChunking(fp)
	require.NoError(t, err)
	assert.False(t, stale)

	stale, reason, err := s.CheckChunking(ChunkingFingerprint(1000, 3))
	require.NoError(t, err)
	assert.True(t, stale)
	assert.NotEmpty(t, reason)
}

func TestRequeueAnalyzed(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	done := testDoc("d1", now)
	done.Status = domain.StatusAnalyzed
	require.NoError(t, s.PutDocument(done, "a"))
	require.NoError(t, s.PutDocument(testDoc("d2", now), "b"))

	count, err := s.RequeueAnalyzed()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	doc, err := s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, doc.Status)
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.PutDocument(testDoc("d1", now), "a"))
	analyzed := testDoc("d2", now)
	analyzed.Status = domain.StatusAnalyzed
	require.NoError(t, s.PutDocument(analyzed, "b"))
	require.NoError(t, s.ReplaceChunks("d1", []domain.Chunk{{ID: "c1", DocID: "d1", Text: "a"}}))
	_, err := s.UpsertMention("inv1", domain.EntityMention{Text: "John Smith", Type: domain.TypePerson}, now)
	require.NoError(t, err)
	require.NoError(t, s.PutPacket(domain.EvidencePacket{ID: "p1", CreatedAt: now}))

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 1, stats.TotalChunks)
	assert.Equal(t, 1, stats.TotalEntities)
	assert.Equal(t, 1, stats.TotalPackets)
	assert.Equal(t, 1, stats.ByStatus[domain.StatusPending])
	assert.Equal(t, 1, stats.ByStatus[domain.StatusAnalyzed])
}

func TestInvestigationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	inv := domain.Investigation{
		ID:        "inv1",
		Title:     "Flight logs",
		Status:    domain.InvestigationActive,
		CreatedAt: now,
	}
	require.NoError(t, s.PutInvestigation(inv))

	got, err := s.GetInvestigation("inv1")
	require.NoError(t, err)
	assert.Equal(t, "Flight logs", got.Title)

	require.NoError(t, s.PutInvestigation(domain.Investigation{
		ID: "inv2", Title: "Bank records", Status: domain.InvestigationActive, CreatedAt: now.Add(time.Second),
	}))

	list, err := s.ListInvestigations()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "inv1", list[0].ID)

	_, err = s.GetInvestigation("missing")
	assert.Error(t, err)
}

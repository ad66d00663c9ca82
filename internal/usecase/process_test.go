package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redacted/internal/adapter/chunker"
	"redacted/internal/adapter/extractor"
	"redacted/internal/adapter/memstore"
	"redacted/internal/adapter/redaction"
	"redacted/internal/domain"
)

func newTestPipeline(s *memstore.MemoryStore, timeout time.Duration) *ProcessUseCase {
	return NewProcessUseCase(
		s,
		redaction.NewDetector(),
		chunker.NewSentenceChunker(1500, 3),
		extractor.NewPatternExtractor(),
		timeout,
		5*time.Minute,
		3,
		nil,
	)
}

func seedPendingDoc(t *testing.T, s *memstore.MemoryStore, id, text string) {
	t.Helper()
	require.NoError(t, s.PutDocument(domain.Document{
		ID:              id,
		InvestigationID: "inv1",
		Source:          id + ".txt",
		Hash:            "hash-" + id,
		Status:          domain.StatusPending,
		UploadedAt:      time.Now(),
	}, text))
}

func TestProcessNextFullPipeline(t *testing.T) {
	s := memstore.NewMemoryStore()
	seedPendingDoc(t, s, "doc1", "Name: [REDACTED]. Born 1990. Org: FBI.")
	u := newTestPipeline(s, time.Minute)

	report, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent-1"})
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, report)

	assert.Equal(t, "doc1", report.DocumentID)
	assert.Equal(t, 1, report.Spans)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 2, report.Entities)

	doc, err := s.GetDocument("doc1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnalyzed, doc.Status)
	assert.Empty(t, doc.LeaseAgent)
	assert.Equal(t, 1, doc.RedactionCount)

	spans, err := s.GetSpans("doc1")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 6, spans[0].Start)
	assert.Equal(t, 16, spans[0].End)

	entities, err := s.ListEntities("inv1")
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entities {
		names[e.Name] = true
	}
	assert.True(t, names["FBI"])
	assert.True(t, names["1990"])

	events, err := s.ListActivity("inv1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ActionAnalysisComplete, events[0].Action)
	assert.Equal(t, domain.ActionAnalysisStarted, events[1].Action)
}

func TestProcessNextNothingPending(t *testing.T) {
	s := memstore.NewMemoryStore()
	u := newTestPipeline(s, time.Minute)

	report, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent-1"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, report)
}

func TestProcessTimeoutReleasesToError(t *testing.T) {
	s := memstore.NewMemoryStore()
	seedPendingDoc(t, s, "doc1", "Slow document. Never finishes.")
	u := newTestPipeline(s, -time.Millisecond)

	_, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent-1"})
	require.True(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProcessingTimeout)

	doc, err := s.GetDocument("doc1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, doc.Status)
	assert.Empty(t, doc.LeaseAgent, "timed-out attempt never leaves a dangling lease")

	events, err := s.ListActivity("inv1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.ActionAnalysisError, events[0].Action)
}

func TestProcessReRunReplacesDerivedData(t *testing.T) {
	s := memstore.NewMemoryStore()
	text := "Alice Smith visited Miami. Bob Jones left Paris."
	seedPendingDoc(t, s, "doc1", text)
	u := newTestPipeline(s, time.Minute)

	first, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent-1"})
	require.NoError(t, err)
	require.True(t, ok)

	// requeue and process again: derived data is replaced, not duplicated
	doc, err := s.GetDocument("doc1")
	require.NoError(t, err)
	doc.Status = domain.StatusPending
	require.NoError(t, s.PutDocument(doc, text))

	second, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent-2"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, first.Spans, second.Spans)

	chunks, err := s.GetChunksByDoc("doc1")
	require.NoError(t, err)
	assert.Len(t, chunks, first.Chunks)

	entities, err := s.ListEntities("inv1")
	require.NoError(t, err)
	assert.Len(t, entities, first.Entities, "entity records deduplicate across runs")
	for _, e := range entities {
		assert.Equal(t, 2, e.MentionCount)
	}
}

func TestProcessNextConcurrentAgents(t *testing.T) {
	s := memstore.NewMemoryStore()
	seedPendingDoc(t, s, "doc1", "Single document. One winner.")
	u := newTestPipeline(s, time.Minute)

	const agents = 8
	var wg sync.WaitGroup
	processed := make([]bool, agents)
	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent"})
			assert.NoError(t, err)
			processed[i] = ok && report != nil
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range processed {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one agent processes the document")

	doc, err := s.GetDocument("doc1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnalyzed, doc.Status)
}

func TestProcessSealedNameNeverBecomesEntity(t *testing.T) {
	s := memstore.NewMemoryStore()
	// the name sits inside the sealed bracket, wholly covered by its span
	seedPendingDoc(t, s, "doc1", "[John Smith SEALED] met the FBI.")
	u := newTestPipeline(s, time.Minute)

	report, ok, err := u.ProcessNext(context.Background(), domain.AgentIdentity{ID: "agent-1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, report.Spans)

	entities, err := s.ListEntities("inv1")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "FBI", entities[0].Name)
	for _, e := range entities {
		assert.NotContains(t, e.Name, "John")
	}
}

package port

import (
	"time"

	"redacted/internal/domain"
)

// ArchiveStore is the durable store the core coordinates through. Mutating
// operations that cross an atomicity boundary (ClaimDocument, UpsertMention,
// CastVote) must execute as a single atomic transaction so concurrent agents
// cannot interleave partial updates.
type ArchiveStore interface {
	PutInvestigation(inv domain.Investigation) error

	GetInvestigation(id string) (domain.Investigation, error)

	ListInvestigations() ([]domain.Investigation, error)

	PutDocument(doc domain.Document, rawText string) error

	GetDocument(id string) (domain.Document, error)

	RawText(docID string) (string, error)

	FindDocumentByHash(hash string) (domain.Document, bool, error)

	ListDocuments(investigationID string) ([]domain.Document, error)

	// NextPending returns the oldest pending document, FIFO by upload time,
	// or ok=false when none is available. Documents in the error state with
	// an expired lease count as pending again.
	NextPending() (domain.Document, bool, error)

	// ClaimDocument atomically moves a document from pending (or reclaimable
	// error) to processing on behalf of agentID. Exactly one concurrent
	// caller wins; the rest get domain.ErrAlreadyClaimed.
	ClaimDocument(docID, agentID string, ttl time.Duration) (domain.Lease, error)

	// ReleaseDocument ends a processing attempt, setting the terminal status
	// for this attempt: analyzed on success, pending or error on failure.
	ReleaseDocument(docID, agentID string, status domain.DocumentStatus) error

	ReplaceSpans(docID string, spans []domain.RedactionSpan) error

	GetSpans(docID string) ([]domain.RedactionSpan, error)

	ReplaceChunks(docID string, chunks []domain.Chunk) error

	GetChunk(id string) (domain.Chunk, error)

	GetChunksByDoc(docID string) ([]domain.Chunk, error)

	// UpsertMention merges a mention into the entity deduplicated by
	// (investigation, canonical name), incrementing its mention count, or
	// inserts a new entity. Atomic with respect to concurrent extractors.
	UpsertMention(investigationID string, m domain.EntityMention, now time.Time) (domain.Entity, error)

	ListEntities(investigationID string) ([]domain.Entity, error)

	SearchEntities(investigationID, query string) ([]domain.Entity, error)

	PutPacket(p domain.EvidencePacket) error

	GetPacket(id string) (domain.EvidencePacket, error)

	ListPackets(investigationID string, limit int) ([]domain.EvidencePacket, error)

	// CastVote atomically adjusts a packet's vote count. A non-empty token
	// dedupes retried calls; with an empty token duplicates are counted.
	CastVote(packetID, token string, delta int) (int, error)

	AppendActivity(ev domain.ActivityEvent) error

	ListActivity(investigationID string, limit int) ([]domain.ActivityEvent, error)

	GetStats() (domain.Stats, error)

	Close() error
}

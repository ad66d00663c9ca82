package domain

import "time"

// DocumentStatus tracks a document through the processing pipeline.
// Transitions are monotonic: pending -> processing -> analyzed. A failed
// processing attempt moves the document to StatusError, from where it can
// be claimed again.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusAnalyzed   DocumentStatus = "analyzed"
	StatusError      DocumentStatus = "error"
)

// Document is an ingested source document. Raw text is stored separately
// and is immutable once written; derived data (spans, chunks, entities)
// is recomputed wholesale whenever the document is reprocessed.
type Document struct {
	ID              string
	InvestigationID string
	Source          string
	Hash            string
	Pages           int
	Status          DocumentStatus
	UploadedAt      time.Time
	RedactionCount  int
	LeaseAgent      string
	LeaseExpires    time.Time
}

// SpanKind identifies which redaction pattern produced a span.
type SpanKind string

const (
	SpanExplicitMarker SpanKind = "explicit-marker"
	SpanSealedMarker   SpanKind = "sealed-marker"
	SpanExemptionCode  SpanKind = "exemption-code"
	SpanBlockGlyph     SpanKind = "block-glyph"
	SpanLetterRun      SpanKind = "letter-run"
	SpanUnderscoreRun  SpanKind = "underscore-run"
	SpanAsteriskRun    SpanKind = "asterisk-run"
)

// RedactionSpan is a [Start, End) byte range of withheld content in a
// document's raw text.
type RedactionSpan struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Kind  SpanKind `json:"kind"`
}

// Overlaps reports whether the span intersects [start, end).
func (s RedactionSpan) Overlaps(start, end int) bool {
	return s.Start < end && start < s.End
}

// Interval is an effective redacted region: the union of overlapping spans
// regardless of kind. Suppression checks run against intervals, while the
// original spans keep their kinds for reporting.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether the interval intersects [start, end).
func (iv Interval) Overlaps(start, end int) bool {
	return iv.Start < end && start < iv.End
}

// Chunk is a bounded slice of a document's raw text and the addressing
// unit for citations. Text always equals raw_text[Start:End] exactly.
type Chunk struct {
	ID    string `json:"id"`
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
	// Page is estimated from the chunk index against a chunks-per-page
	// ratio when true page boundaries are unavailable. Advisory only.
	Page  int    `json:"page"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// EntityType classifies extracted entities. TypeAmount is produced by the
// money recognizer but never persisted as an entity record.
type EntityType string

const (
	TypePerson       EntityType = "person"
	TypeOrganization EntityType = "organization"
	TypeLocation     EntityType = "location"
	TypeEvent        EntityType = "event"
	TypeDate         EntityType = "date"
	TypeAmount       EntityType = "amount"
)

// Entity is a deduplicated record keyed by (investigation, canonical name).
// MentionCount only ever increases.
type Entity struct {
	ID              string     `json:"id"`
	InvestigationID string     `json:"investigation_id"`
	Name            string     `json:"name"`
	Type            EntityType `json:"type"`
	IsRedacted      bool       `json:"is_redacted"`
	MentionCount    int        `json:"mention_count"`
	FirstSeen       time.Time  `json:"first_seen"`
}

// EntityMention is a single recognizer match before deduplication.
// For a redacted mention, Text holds only a placeholder and never the
// characters the redaction covers.
type EntityMention struct {
	Text       string
	Type       EntityType
	DocID      string
	ChunkID    string
	Start      int
	End        int
	IsRedacted bool
}

// Citation names an exact range of source text plus the literal excerpt at
// that range. The excerpt must equal raw_text[Start:End]; this is the
// verifiability contract for every claim.
type Citation struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id,omitempty"`
	Page       int    `json:"page,omitempty"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Excerpt    string `json:"excerpt"`
}

// ClaimType expresses how directly a claim is supported by sources.
type ClaimType string

const (
	ClaimObserved     ClaimType = "Observed"
	ClaimCorroborated ClaimType = "Corroborated"
	ClaimUnknown      ClaimType = "Unknown"
)

// EvidencePacket is an accepted claim with its citations and explicit
// uncertainty. Immutable once stored except for the vote count.
type EvidencePacket struct {
	ID               string     `json:"id"`
	InvestigationID  string     `json:"investigation_id"`
	DocumentID       string     `json:"document_id,omitempty"`
	Statement        string     `json:"statement"`
	ClaimType        ClaimType  `json:"claim_type"`
	Confidence       float64    `json:"confidence"`
	Citations        []Citation `json:"citations"`
	UncertaintyNotes []string   `json:"uncertainty_notes"`
	AgentID          string     `json:"agent_id"`
	AgentModel       string     `json:"agent_model,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Votes            int        `json:"votes"`
	Verified         bool       `json:"verified"`
}

// AgentIdentity names a contributor. Supplied by the caller and not
// authenticated by this core.
type AgentIdentity struct {
	ID    string
	Model string
}

// ActionType labels ledger entries.
type ActionType string

const (
	ActionIngested         ActionType = "document_ingested"
	ActionAnalysisStarted  ActionType = "analysis_started"
	ActionAnalysisComplete ActionType = "analysis_complete"
	ActionAnalysisError    ActionType = "analysis_error"
	ActionClaimSubmitted   ActionType = "claim_submitted"
	ActionClaimRejected    ActionType = "claim_rejected"
	ActionVoteCast         ActionType = "vote_cast"
)

// ActivityEvent is one append-only audit log entry. Events are write-once;
// the ledger is never mutated, only appended.
type ActivityEvent struct {
	ID              string            `json:"id"`
	AgentID         string            `json:"agent_id"`
	AgentModel      string            `json:"agent_model,omitempty"`
	Action          ActionType        `json:"action_type"`
	Description     string            `json:"description"`
	InvestigationID string            `json:"investigation_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Lease is the exclusive, time-bounded right for one agent to process a
// pending document.
type Lease struct {
	DocumentID string
	AgentID    string
	ExpiresAt  time.Time
}

// Expired reports whether the lease has passed its deadline.
func (l Lease) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// InvestigationStatus tracks the lifecycle of an investigation.
type InvestigationStatus string

const (
	InvestigationActive   InvestigationStatus = "active"
	InvestigationStalled  InvestigationStatus = "stalled"
	InvestigationResolved InvestigationStatus = "resolved"
	InvestigationArchived InvestigationStatus = "archived"
)

// Investigation groups documents, entities, and evidence packets.
type Investigation struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      InvestigationStatus `json:"status"`
	Priority    string              `json:"priority"`
	Tags        []string            `json:"tags,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Stats summarizes archive contents.
type Stats struct {
	TotalDocuments int
	TotalChunks    int
	TotalEntities  int
	TotalPackets   int
	ByStatus       map[DocumentStatus]int
}

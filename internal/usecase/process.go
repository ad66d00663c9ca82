package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"redacted/internal/domain"
	"redacted/internal/port"
)

// persistable entity types. Amount mentions are type-only facts and are
// reported but never stored as entity records.
var persistable = map[domain.EntityType]bool{
	domain.TypePerson:       true,
	domain.TypeOrganization: true,
	domain.TypeLocation:     true,
	domain.TypeDate:         true,
}

// ProcessUseCase runs the analysis pipeline for one claimed document:
// redaction spans, then chunks, then entities. Each checkpoint's writes are
// self-contained and idempotent, so an abandoned attempt leaves no partial
// artifacts that a re-run would not overwrite.
type ProcessUseCase struct {
	store     port.ArchiveStore
	detector  port.Detector
	chunker   port.Chunker
	extractor port.Extractor
	timeout   time.Duration
	leaseTTL  time.Duration
	retries   int
	log       *slog.Logger
}

func NewProcessUseCase(
	store port.ArchiveStore,
	detector port.Detector,
	chunker port.Chunker,
	extractor port.Extractor,
	timeout, leaseTTL time.Duration,
	retries int,
	log *slog.Logger,
) *ProcessUseCase {
	if log == nil {
		log = slog.Default()
	}
	if retries < 1 {
		retries = 1
	}
	return &ProcessUseCase{
		store:     store,
		detector:  detector,
		chunker:   chunker,
		extractor: extractor,
		timeout:   timeout,
		leaseTTL:  leaseTTL,
		retries:   retries,
		log:       log,
	}
}

// Report summarizes one processing attempt.
type Report struct {
	DocumentID string
	Spans      int
	Chunks     int
	Mentions   int
	Entities   int
	Redacted   int
}

// ProcessNext claims the oldest pending document and analyzes it. On lease
// contention it moves on to a fresh document rather than retrying the same
// one. Returns ok=false when no claimable document exists.
func (u *ProcessUseCase) ProcessNext(ctx context.Context, agent domain.AgentIdentity) (*Report, bool, error) {
	for attempt := 0; attempt < u.retries; attempt++ {
		doc, found, err := u.store.NextPending()
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}

		lease, err := u.store.ClaimDocument(doc.ID, agent.ID, u.leaseTTL)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyClaimed) {
				u.log.Debug("document claimed by another agent", "doc", doc.ID)
				continue
			}
			return nil, false, err
		}

		report, err := u.Process(ctx, lease, agent)
		return report, true, err
	}
	return nil, false, nil
}

// Process analyzes the document named by an already-held lease. The whole
// attempt is bounded by the configured timeout; on expiry the document is
// released to the error state and the failure is logged to the ledger, so
// it is never left silently in processing.
func (u *ProcessUseCase) Process(ctx context.Context, lease domain.Lease, agent domain.AgentIdentity) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	doc, err := u.store.GetDocument(lease.DocumentID)
	if err != nil {
		return nil, err
	}

	u.record(domain.ActivityEvent{
		AgentID:         agent.ID,
		AgentModel:      agent.Model,
		Action:          domain.ActionAnalysisStarted,
		Description:     fmt.Sprintf("Starting analysis of %s", doc.Source),
		InvestigationID: doc.InvestigationID,
		Metadata:        map[string]string{"document_id": doc.ID},
	})

	report, err := u.run(ctx, doc)
	if err != nil {
		status := domain.StatusPending
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %s after %s", domain.ErrProcessingTimeout, doc.ID, u.timeout)
			status = domain.StatusError
		}
		if relErr := u.store.ReleaseDocument(doc.ID, agent.ID, status); relErr != nil {
			u.log.Warn("failed to release document after error", "doc", doc.ID, "err", relErr)
		}
		u.record(domain.ActivityEvent{
			AgentID:         agent.ID,
			AgentModel:      agent.Model,
			Action:          domain.ActionAnalysisError,
			Description:     fmt.Sprintf("Failed to analyze %s: %v", doc.Source, err),
			InvestigationID: doc.InvestigationID,
			Metadata:        map[string]string{"document_id": doc.ID, "error": err.Error()},
		})
		return nil, err
	}

	if err := u.store.ReleaseDocument(doc.ID, agent.ID, domain.StatusAnalyzed); err != nil {
		return nil, fmt.Errorf("failed to mark document analyzed: %w", err)
	}

	u.record(domain.ActivityEvent{
		AgentID:         agent.ID,
		AgentModel:      agent.Model,
		Action:          domain.ActionAnalysisComplete,
		Description: fmt.Sprintf("Completed analysis of %s - %d spans, %d chunks, %d entities",
			doc.Source, report.Spans, report.Chunks, report.Entities),
		InvestigationID: doc.InvestigationID,
		Metadata:        map[string]string{"document_id": doc.ID},
	})

	return report, nil
}

// run executes the three checkpoints. Cancellation is checked at each
// checkpoint boundary; every checkpoint replaces its derived data wholesale.
func (u *ProcessUseCase) run(ctx context.Context, doc domain.Document) (*Report, error) {
	raw, err := u.store.RawText(doc.ID)
	if err != nil {
		return nil, err
	}

	report := &Report{DocumentID: doc.ID}

	// checkpoint 1: redaction spans
	spans := u.detector.Detect(raw)
	if err := u.store.ReplaceSpans(doc.ID, spans); err != nil {
		return nil, fmt.Errorf("failed to store redaction spans: %w", err)
	}
	report.Spans = len(spans)
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	// checkpoint 2: chunks
	chunks, err := u.chunker.Chunk(doc.ID, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}
	if err := u.store.ReplaceChunks(doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	report.Chunks = len(chunks)
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}

	// checkpoint 3: entities
	mentions := u.extractor.Extract(chunks, spans)
	report.Mentions = len(mentions)
	now := time.Now()
	for _, m := range mentions {
		if !persistable[m.Type] {
			continue
		}
		if _, err := u.store.UpsertMention(doc.InvestigationID, m, now); err != nil {
			return nil, fmt.Errorf("failed to upsert entity %q: %w", m.Text, err)
		}
		report.Entities++
		if m.IsRedacted {
			report.Redacted++
		}
	}

	return report, checkpoint(ctx)
}

func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (u *ProcessUseCase) record(ev domain.ActivityEvent) {
	_ = u.store.AppendActivity(ev)
}

package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"redacted/internal/domain"
	"redacted/internal/port"
)

// IngestUseCase registers raw documents in the archive. Text is fetched
// from the upstream source, fingerprinted, and stored immutably with status
// pending; all analysis happens later under a processing lease.
type IngestUseCase struct {
	store  port.ArchiveStore
	source port.TextSource
}

func NewIngestUseCase(store port.ArchiveStore, source port.TextSource) *IngestUseCase {
	return &IngestUseCase{store: store, source: source}
}

// IngestResult reports one ingestion attempt.
type IngestResult struct {
	Document domain.Document
	Skipped  bool
}

// Ingest fetches the document at ref and stores it. Re-ingesting content
// with an identical hash is a no-op returning the existing record, so
// ingestion is safe to re-run over a whole intake directory.
func (u *IngestUseCase) Ingest(ctx context.Context, ref, investigationID string, agent domain.AgentIdentity) (IngestResult, error) {
	raw, err := u.source.Fetch(ctx, ref)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to fetch document text: %w", err)
	}

	sum := sha256.Sum256([]byte(raw.Text))
	hash := hex.EncodeToString(sum[:])

	if existing, found, err := u.store.FindDocumentByHash(hash); err != nil {
		return IngestResult{}, err
	} else if found {
		return IngestResult{Document: existing, Skipped: true}, nil
	}

	doc := domain.Document{
		ID:              hash[:16],
		InvestigationID: investigationID,
		Source:          filepath.Base(ref),
		Hash:            hash,
		Pages:           raw.Pages,
		Status:          domain.StatusPending,
		UploadedAt:      time.Now(),
	}

	if err := u.store.PutDocument(doc, raw.Text); err != nil {
		return IngestResult{}, fmt.Errorf("failed to store document: %w", err)
	}

	u.record(domain.ActivityEvent{
		AgentID:         agent.ID,
		AgentModel:      agent.Model,
		Action:          domain.ActionIngested,
		Description:     fmt.Sprintf("Ingested %s (%d bytes)", doc.Source, len(raw.Text)),
		InvestigationID: investigationID,
		Metadata:        map[string]string{"document_id": doc.ID},
	})

	return IngestResult{Document: doc}, nil
}

// record appends a ledger event, fire-and-forget: a failed audit write
// never fails the ingestion itself.
func (u *IngestUseCase) record(ev domain.ActivityEvent) {
	_ = u.store.AppendActivity(ev)
}

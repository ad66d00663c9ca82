package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"redacted/internal/domain"
	"redacted/internal/port"
)

// LedgerUseCase exposes the append-only activity trail and investigation
// bookkeeping.
type LedgerUseCase struct {
	store port.ArchiveStore
}

func NewLedgerUseCase(store port.ArchiveStore) *LedgerUseCase {
	return &LedgerUseCase{store: store}
}

// Record appends an event. Fire-and-forget: the ledger write never blocks
// or fails the operation that produced it.
func (u *LedgerUseCase) Record(ev domain.ActivityEvent) {
	_ = u.store.AppendActivity(ev)
}

// Feed returns the newest events first.
func (u *LedgerUseCase) Feed(investigationID string, limit int) ([]domain.ActivityEvent, error) {
	return u.store.ListActivity(investigationID, limit)
}

// CreateInvestigation opens a new investigation.
func (u *LedgerUseCase) CreateInvestigation(title, description, priority string, tags []string) (domain.Investigation, error) {
	if title == "" {
		return domain.Investigation{}, fmt.Errorf("investigation title is required")
	}
	now := time.Now()
	inv := domain.Investigation{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      domain.InvestigationActive,
		Priority:    priority,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.store.PutInvestigation(inv); err != nil {
		return domain.Investigation{}, fmt.Errorf("failed to store investigation: %w", err)
	}
	return inv, nil
}

// ListInvestigations returns investigations oldest first.
func (u *LedgerUseCase) ListInvestigations() ([]domain.Investigation, error) {
	return u.store.ListInvestigations()
}

package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"redacted/internal/adapter/redaction"
	"redacted/internal/domain"
	"redacted/internal/port"
)

// EvidenceUseCase validates proposed claims and stores accepted evidence
// packets. Every citation must resolve to a real, unaltered span of source
// text; nothing partial or ambiguous is ever persisted.
type EvidenceUseCase struct {
	store       port.ArchiveStore
	minObserved float64
}

func NewEvidenceUseCase(store port.ArchiveStore, minObserved float64) *EvidenceUseCase {
	return &EvidenceUseCase{store: store, minObserved: minObserved}
}

// ClaimRequest is a proposed claim from a human or agent contributor.
type ClaimRequest struct {
	InvestigationID  string               `json:"investigation_id"`
	DocumentID       string               `json:"document_id,omitempty"`
	Statement        string               `json:"statement"`
	ClaimType        domain.ClaimType     `json:"claim_type"`
	Confidence       float64              `json:"confidence"`
	Citations        []domain.Citation    `json:"citations"`
	UncertaintyNotes []string             `json:"uncertainty_notes"`
	Agent            domain.AgentIdentity `json:"-"`
}

// ValidateCitation checks one citation against the archive, in order:
// resolve the document and chunk bounds, require the excerpt to equal the
// exact source substring, and reject excerpts that cite a redacted range
// with anything other than the marker text itself.
func (u *EvidenceUseCase) ValidateCitation(c domain.Citation) error {
	raw, err := u.store.RawText(c.DocumentID)
	if err != nil {
		return err
	}

	lo, hi := 0, len(raw)
	if c.ChunkID != "" {
		chunk, err := u.store.GetChunk(c.ChunkID)
		if err != nil {
			return err
		}
		if chunk.DocID != c.DocumentID {
			return fmt.Errorf("%w: chunk %s belongs to another document", domain.ErrRangeOutOfBounds, c.ChunkID)
		}
		lo, hi = chunk.Start, chunk.End
	}

	if c.Start < lo || c.End > hi || c.Start >= c.End {
		return fmt.Errorf("%w: [%d,%d) outside [%d,%d)", domain.ErrRangeOutOfBounds, c.Start, c.End, lo, hi)
	}

	if raw[c.Start:c.End] != c.Excerpt {
		return fmt.Errorf("%w: at [%d,%d)", domain.ErrCitationMismatch, c.Start, c.End)
	}

	spans, err := u.store.GetSpans(c.DocumentID)
	if err != nil {
		return err
	}
	covered := redaction.Union(spans)
	if redaction.Covered(covered, c.Start, c.End) && !redaction.MarkerOnly(c.Excerpt) {
		// quoting part of a redacted range as if it were content
		return fmt.Errorf("%w: at [%d,%d)", domain.ErrRedactionViolation, c.Start, c.End)
	}

	return nil
}

// Submit validates the claim contract and every citation, then persists the
// packet. Rejections are logged to the ledger with the structured reason and
// nothing is stored.
func (u *EvidenceUseCase) Submit(req ClaimRequest) (domain.EvidencePacket, error) {
	if err := u.validate(req); err != nil {
		u.record(domain.ActivityEvent{
			AgentID:         req.Agent.ID,
			AgentModel:      req.Agent.Model,
			Action:          domain.ActionClaimRejected,
			Description:     fmt.Sprintf("Rejected claim %q: %v", truncate(req.Statement, 80), err),
			InvestigationID: req.InvestigationID,
			Metadata:        map[string]string{"error": err.Error()},
		})
		return domain.EvidencePacket{}, err
	}

	packet := domain.EvidencePacket{
		ID:               uuid.NewString(),
		InvestigationID:  req.InvestigationID,
		DocumentID:       req.DocumentID,
		Statement:        req.Statement,
		ClaimType:        req.ClaimType,
		Confidence:       req.Confidence,
		Citations:        req.Citations,
		UncertaintyNotes: req.UncertaintyNotes,
		AgentID:          req.Agent.ID,
		AgentModel:       req.Agent.Model,
		CreatedAt:        time.Now(),
	}

	if err := u.store.PutPacket(packet); err != nil {
		return domain.EvidencePacket{}, fmt.Errorf("failed to store evidence packet: %w", err)
	}

	u.record(domain.ActivityEvent{
		AgentID:         req.Agent.ID,
		AgentModel:      req.Agent.Model,
		Action:          domain.ActionClaimSubmitted,
		Description:     fmt.Sprintf("Submitted %s claim with %d citation(s)", packet.ClaimType, len(packet.Citations)),
		InvestigationID: req.InvestigationID,
		Metadata:        map[string]string{"packet_id": packet.ID},
	})

	return packet, nil
}

func (u *EvidenceUseCase) validate(req ClaimRequest) error {
	if req.Statement == "" {
		return domain.Validationf("claim statement is empty")
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return domain.Validationf("confidence %.2f outside [0,1]", req.Confidence)
	}

	switch req.ClaimType {
	case domain.ClaimObserved:
		if len(req.Citations) == 0 {
			return domain.Validationf("Observed claims require at least one citation")
		}
		if req.Confidence < u.minObserved {
			return domain.Validationf("Observed claims require confidence >= %.2f, got %.2f", u.minObserved, req.Confidence)
		}
	case domain.ClaimCorroborated:
		if len(req.Citations) == 0 {
			return domain.Validationf("Corroborated claims require at least one citation")
		}
	case domain.ClaimUnknown:
		if len(req.UncertaintyNotes) == 0 {
			return domain.Validationf("Unknown claims require at least one uncertainty note")
		}
	default:
		return domain.Validationf("unrecognized claim type %q", req.ClaimType)
	}

	for i, c := range req.Citations {
		if err := u.ValidateCitation(c); err != nil {
			return fmt.Errorf("citation %d: %w", i, err)
		}
	}
	return nil
}

// Vote adjusts a packet's community vote count. The token, when supplied by
// the caller, makes retried votes idempotent; without one duplicates count.
func (u *EvidenceUseCase) Vote(packetID, token string, delta int, agent domain.AgentIdentity) (int, error) {
	votes, err := u.store.CastVote(packetID, token, delta)
	if err != nil {
		return 0, err
	}
	packet, err := u.store.GetPacket(packetID)
	if err != nil {
		return votes, nil
	}
	u.record(domain.ActivityEvent{
		AgentID:         agent.ID,
		AgentModel:      agent.Model,
		Action:          domain.ActionVoteCast,
		Description:     fmt.Sprintf("Vote on packet %s, now %d", packetID, votes),
		InvestigationID: packet.InvestigationID,
		Metadata:        map[string]string{"packet_id": packetID},
	})
	return votes, nil
}

func (u *EvidenceUseCase) record(ev domain.ActivityEvent) {
	_ = u.store.AppendActivity(ev)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

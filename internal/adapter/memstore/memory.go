// Package memstore is an in-memory ArchiveStore. A single mutex provides
// the same atomicity boundaries the bbolt store gets from its transactions,
// which makes it suitable for tests and for embedding the pipeline without
// a database file.
package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"redacted/internal/adapter/analyzer"
	"redacted/internal/domain"
)

type MemoryStore struct {
	mu             sync.Mutex
	investigations map[string]domain.Investigation
	docs           map[string]domain.Document
	rawText        map[string]string
	hashes         map[string]string
	spans          map[string][]domain.RedactionSpan
	chunks         map[string]domain.Chunk
	docChunks      map[string][]string
	entities       map[string]domain.Entity
	entityNames    map[string]string
	packets        map[string]domain.EvidencePacket
	votes          map[string]struct{}
	activity       []domain.ActivityEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		investigations: make(map[string]domain.Investigation),
		docs:           make(map[string]domain.Document),
		rawText:        make(map[string]string),
		hashes:         make(map[string]string),
		spans:          make(map[string][]domain.RedactionSpan),
		chunks:         make(map[string]domain.Chunk),
		docChunks:      make(map[string][]string),
		entities:       make(map[string]domain.Entity),
		entityNames:    make(map[string]string),
		packets:        make(map[string]domain.EvidencePacket),
		votes:          make(map[string]struct{}),
	}
}

func (s *MemoryStore) PutInvestigation(inv domain.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investigations[inv.ID] = inv
	return nil
}

func (s *MemoryStore) GetInvestigation(id string) (domain.Investigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investigations[id]
	if !ok {
		return domain.Investigation{}, fmt.Errorf("investigation not found: %s", id)
	}
	return inv, nil
}

func (s *MemoryStore) ListInvestigations() ([]domain.Investigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invs := make([]domain.Investigation, 0, len(s.investigations))
	for _, inv := range s.investigations {
		invs = append(invs, inv)
	}
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.Before(invs[j].CreatedAt) })
	return invs, nil
}

func (s *MemoryStore) PutDocument(doc domain.Document, rawText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.rawText[doc.ID] = rawText
	s.hashes[doc.Hash] = doc.ID
	return nil
}

func (s *MemoryStore) GetDocument(id string) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	return doc, nil
}

func (s *MemoryStore) RawText(docID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.rawText[docID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, docID)
	}
	return text, nil
}

func (s *MemoryStore) FindDocumentByHash(hash string) (domain.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.hashes[hash]
	if !ok {
		return domain.Document{}, false, nil
	}
	return s.docs[id], true, nil
}

func (s *MemoryStore) ListDocuments(investigationID string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []domain.Document
	for _, doc := range s.docs {
		if investigationID != "" && doc.InvestigationID != investigationID {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func claimable(doc domain.Document, now time.Time) bool {
	switch doc.Status {
	case domain.StatusPending, domain.StatusError:
		return true
	case domain.StatusProcessing:
		return !doc.LeaseExpires.IsZero() && now.After(doc.LeaseExpires)
	default:
		return false
	}
}

func (s *MemoryStore) NextPending() (domain.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var best domain.Document
	found := false
	for _, doc := range s.docs {
		if !claimable(doc, now) {
			continue
		}
		if !found || doc.UploadedAt.Before(best.UploadedAt) {
			best = doc
			found = true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) ClaimDocument(docID, agentID string, ttl time.Duration) (domain.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return domain.Lease{}, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, docID)
	}
	now := time.Now()
	if !claimable(doc, now) {
		return domain.Lease{}, fmt.Errorf("%w: %s held by %s", domain.ErrAlreadyClaimed, docID, doc.LeaseAgent)
	}
	doc.Status = domain.StatusProcessing
	doc.LeaseAgent = agentID
	doc.LeaseExpires = now.Add(ttl)
	s.docs[docID] = doc
	return domain.Lease{DocumentID: docID, AgentID: agentID, ExpiresAt: doc.LeaseExpires}, nil
}

func (s *MemoryStore) ReleaseDocument(docID, agentID string, status domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, docID)
	}
	if doc.LeaseAgent != agentID {
		return fmt.Errorf("%w: lease for %s held by %s", domain.ErrAlreadyClaimed, docID, doc.LeaseAgent)
	}
	doc.Status = status
	doc.LeaseAgent = ""
	doc.LeaseExpires = time.Time{}
	s.docs[docID] = doc
	return nil
}

func (s *MemoryStore) ReplaceSpans(docID string, spans []domain.RedactionSpan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans[docID] = append([]domain.RedactionSpan(nil), spans...)
	if doc, ok := s.docs[docID]; ok {
		doc.RedactionCount = len(spans)
		s.docs[docID] = doc
	}
	return nil
}

func (s *MemoryStore) GetSpans(docID string) ([]domain.RedactionSpan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RedactionSpan(nil), s.spans[docID]...), nil
}

func (s *MemoryStore) ReplaceChunks(docID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.docChunks[docID] {
		delete(s.chunks, id)
	}
	ids := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
		ids = append(ids, chunk.ID)
	}
	s.docChunks[docID] = ids
	return nil
}

func (s *MemoryStore) GetChunk(id string) (domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("%w: %s", domain.ErrChunkNotFound, id)
	}
	return chunk, nil
}

func (s *MemoryStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chunks []domain.Chunk
	for _, id := range s.docChunks[docID] {
		if chunk, ok := s.chunks[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Start < chunks[j].Start })
	return chunks, nil
}

func (s *MemoryStore) UpsertMention(investigationID string, m domain.EntityMention, now time.Time) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := investigationID + "\x00" + analyzer.CanonicalKey(m.Text)
	if id, ok := s.entityNames[key]; ok {
		entity := s.entities[id]
		entity.MentionCount++
		s.entities[id] = entity
		return entity, nil
	}
	entity := domain.Entity{
		ID:              uuid.NewString(),
		InvestigationID: investigationID,
		Name:            m.Text,
		Type:            m.Type,
		IsRedacted:      m.IsRedacted,
		MentionCount:    1,
		FirstSeen:       now,
	}
	s.entities[entity.ID] = entity
	s.entityNames[key] = entity.ID
	return entity, nil
}

func (s *MemoryStore) ListEntities(investigationID string) ([]domain.Entity, error) {
	return s.scanEntities(investigationID, "")
}

func (s *MemoryStore) SearchEntities(investigationID, query string) ([]domain.Entity, error) {
	return s.scanEntities(investigationID, strings.ToLower(query))
}

func (s *MemoryStore) scanEntities(investigationID, query string) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []domain.Entity
	for _, e := range s.entities {
		if investigationID != "" && e.InvestigationID != investigationID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
			continue
		}
		matches = append(matches, e)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MentionCount != matches[j].MentionCount {
			return matches[i].MentionCount > matches[j].MentionCount
		}
		return matches[i].Name < matches[j].Name
	})
	return matches, nil
}

func (s *MemoryStore) PutPacket(p domain.EvidencePacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets[p.ID] = p
	return nil
}

func (s *MemoryStore) GetPacket(id string) (domain.EvidencePacket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packets[id]
	if !ok {
		return domain.EvidencePacket{}, fmt.Errorf("evidence packet not found: %s", id)
	}
	return p, nil
}

func (s *MemoryStore) ListPackets(investigationID string, limit int) ([]domain.EvidencePacket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var packets []domain.EvidencePacket
	for _, p := range s.packets {
		if investigationID != "" && p.InvestigationID != investigationID {
			continue
		}
		packets = append(packets, p)
	}
	sort.Slice(packets, func(i, j int) bool { return packets[i].CreatedAt.After(packets[j].CreatedAt) })
	if limit > 0 && len(packets) > limit {
		packets = packets[:limit]
	}
	return packets, nil
}

func (s *MemoryStore) CastVote(packetID, token string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packets[packetID]
	if !ok {
		return 0, fmt.Errorf("evidence packet not found: %s", packetID)
	}
	if token != "" {
		voteKey := packetID + "\x00" + token
		if _, seen := s.votes[voteKey]; seen {
			return p.Votes, nil
		}
		s.votes[voteKey] = struct{}{}
	}
	p.Votes += delta
	if p.Votes < 0 {
		p.Votes = 0
	}
	s.packets[packetID] = p
	return p.Votes, nil
}

func (s *MemoryStore) AppendActivity(ev domain.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	s.activity = append(s.activity, ev)
	return nil
}

func (s *MemoryStore) ListActivity(investigationID string, limit int) ([]domain.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.ActivityEvent
	for i := len(s.activity) - 1; i >= 0; i-- {
		ev := s.activity[i]
		if investigationID != "" && ev.InvestigationID != investigationID {
			continue
		}
		events = append(events, ev)
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	return events, nil
}

func (s *MemoryStore) GetStats() (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := domain.Stats{
		TotalDocuments: len(s.docs),
		TotalChunks:    len(s.chunks),
		TotalEntities:  len(s.entities),
		TotalPackets:   len(s.packets),
		ByStatus:       make(map[domain.DocumentStatus]int),
	}
	for _, doc := range s.docs {
		stats.ByStatus[doc.Status]++
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Package store persists the archive in bbolt. Every atomicity boundary the
// pipeline depends on (document lease claim, entity upsert, vote increment)
// executes inside a single bbolt Update transaction.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"redacted/internal/domain"
)

var (
	bucketInvestigations = []byte("investigations")
	bucketDocs           = []byte("docs")
	bucketRawText        = []byte("raw_text")
	bucketDocHashes      = []byte("doc_hashes")
	bucketSpans          = []byte("spans")
	bucketChunks         = []byte("chunks")
	bucketChunkText      = []byte("chunk_text")
	bucketDocChunks      = []byte("doc_chunks")
	bucketEntities       = []byte("entities")
	bucketEntityNames    = []byte("entity_names")
	bucketPackets        = []byte("packets")
	bucketVotes          = []byte("votes")
	bucketActivity       = []byte("activity")
	bucketMeta           = []byte("meta")
)

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			bucketInvestigations, bucketDocs, bucketRawText, bucketDocHashes,
			bucketSpans, bucketChunks, bucketChunkText, bucketDocChunks,
			bucketEntities, bucketEntityNames, bucketPackets, bucketVotes,
			bucketActivity, bucketMeta,
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type docMeta struct {
	InvestigationID string                `json:"investigation_id"`
	Source          string                `json:"source"`
	Hash            string                `json:"hash"`
	Pages           int                   `json:"pages"`
	Status          domain.DocumentStatus `json:"status"`
	UploadedAt      int64                 `json:"uploaded_at"`
	RedactionCount  int                   `json:"redaction_count"`
	LeaseAgent      string                `json:"lease_agent,omitempty"`
	LeaseExpires    int64                 `json:"lease_expires,omitempty"`
}

func docFromMeta(id string, meta docMeta) domain.Document {
	doc := domain.Document{
		ID:              id,
		InvestigationID: meta.InvestigationID,
		Source:          meta.Source,
		Hash:            meta.Hash,
		Pages:           meta.Pages,
		Status:          meta.Status,
		UploadedAt:      time.Unix(0, meta.UploadedAt),
		RedactionCount:  meta.RedactionCount,
		LeaseAgent:      meta.LeaseAgent,
	}
	if meta.LeaseExpires != 0 {
		doc.LeaseExpires = time.Unix(0, meta.LeaseExpires)
	}
	return doc
}

func metaFromDoc(doc domain.Document) docMeta {
	meta := docMeta{
		InvestigationID: doc.InvestigationID,
		Source:          doc.Source,
		Hash:            doc.Hash,
		Pages:           doc.Pages,
		Status:          doc.Status,
		UploadedAt:      doc.UploadedAt.UnixNano(),
		RedactionCount:  doc.RedactionCount,
		LeaseAgent:      doc.LeaseAgent,
	}
	if !doc.LeaseExpires.IsZero() {
		meta.LeaseExpires = doc.LeaseExpires.UnixNano()
	}
	return meta
}

func (s *BoltStore) PutInvestigation(inv domain.Investigation) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(inv)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketInvestigations).Put([]byte(inv.ID), data)
	})
}

func (s *BoltStore) GetInvestigation(id string) (domain.Investigation, error) {
	var inv domain.Investigation
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketInvestigations).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("investigation not found: %s", id)
		}
		return json.Unmarshal(data, &inv)
	})
	return inv, err
}

func (s *BoltStore) ListInvestigations() ([]domain.Investigation, error) {
	var invs []domain.Investigation
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketInvestigations).ForEach(func(k, v []byte) error {
			var inv domain.Investigation
			if err := json.Unmarshal(v, &inv); err != nil {
				return err
			}
			invs = append(invs, inv)
			return nil
		})
	})
	sort.Slice(invs, func(i, j int) bool { return invs[i].CreatedAt.Before(invs[j].CreatedAt) })
	return invs, err
}

func (s *BoltStore) PutDocument(doc domain.Document, rawText string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(metaFromDoc(doc))
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocs).Put([]byte(doc.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketRawText).Put([]byte(doc.ID), []byte(rawText)); err != nil {
			return err
		}
		return tx.Bucket(bucketDocHashes).Put([]byte(doc.Hash), []byte(doc.ID))
	})
}

func (s *BoltStore) GetDocument(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		doc, err = getDoc(tx, id)
		return err
	})
	return doc, err
}

func getDoc(tx *bbolt.Tx, id string) (domain.Document, error) {
	data := tx.Bucket(bucketDocs).Get([]byte(id))
	if data == nil {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	var meta docMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Document{}, err
	}
	return docFromMeta(id, meta), nil
}

func putDoc(tx *bbolt.Tx, doc domain.Document) error {
	data, err := json.Marshal(metaFromDoc(doc))
	if err != nil {
		return err
	}
	return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
}

func (s *BoltStore) RawText(docID string) (string, error) {
	var text string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRawText).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, docID)
		}
		text = string(data)
		return nil
	})
	return text, err
}

func (s *BoltStore) FindDocumentByHash(hash string) (domain.Document, bool, error) {
	var doc domain.Document
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketDocHashes).Get([]byte(hash))
		if id == nil {
			return nil
		}
		var err error
		doc, err = getDoc(tx, string(id))
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return doc, found, err
}

func (s *BoltStore) ListDocuments(investigationID string) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			if investigationID != "" && meta.InvestigationID != investigationID {
				return nil
			}
			docs = append(docs, docFromMeta(string(k), meta))
			return nil
		})
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, err
}

// NextPending returns the oldest claimable document: pending, failed, or
// stuck in processing past its lease deadline. FIFO keeps dispatch fair
// across concurrent agents.
func (s *BoltStore) NextPending() (domain.Document, bool, error) {
	now := time.Now()
	var best domain.Document
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			doc := docFromMeta(string(k), meta)
			if !claimable(doc, now) {
				return nil
			}
			if !found || doc.UploadedAt.Before(best.UploadedAt) {
				best = doc
				found = true
			}
			return nil
		})
	})
	return best, found, err
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

// ClaimDocument is the test-and-set that serializes "who is working on
// what": a single Update transaction checks the status and installs the
// lease, so exactly one of any number of concurrent callers wins.
func (s *BoltStore) ClaimDocument(docID, agentID string, ttl time.Duration) (domain.Lease, error) {
	var lease domain.Lease
	err := s.db.Update(func(tx *bbolt.Tx) error {
		doc, err := getDoc(tx, docID)
		if err != nil {
			return err
		}
		now := time.Now()
		if !claimable(doc, now) {
			return fmt.Errorf("%w: %s held by %s", domain.ErrAlreadyClaimed, docID, doc.LeaseAgent)
		}
		doc.Status = domain.StatusProcessing
		doc.LeaseAgent = agentID
		doc.LeaseExpires = now.Add(ttl)
		if err := putDoc(tx, doc); err != nil {
			return err
		}
		lease = domain.Lease{DocumentID: docID, AgentID: agentID, ExpiresAt: doc.LeaseExpires}
		return nil
	})
	return lease, err
}

// ReleaseDocument ends a processing attempt. Only the lease holder may
// release; status is analyzed on success, pending or error on failure.
func (s *BoltStore) ReleaseDocument(docID, agentID string, status domain.DocumentStatus) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		doc, err := getDoc(tx, docID)
		if err != nil {
			return err
		}
		if doc.LeaseAgent != agentID {
			return fmt.Errorf("%w: lease for %s held by %s", domain.ErrAlreadyClaimed, docID, doc.LeaseAgent)
		}
		doc.Status = status
		doc.LeaseAgent = ""
		doc.LeaseExpires = time.Time{}
		return putDoc(tx, doc)
	})
}

// ReplaceSpans overwrites the document's span set wholesale. Spans are
// derived data: recomputed whenever raw text is reprocessed, never mutated
// in place.
func (s *BoltStore) ReplaceSpans(docID string, spans []domain.RedactionSpan) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(spans)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketSpans).Put([]byte(docID), data); err != nil {
			return err
		}
		doc, err := getDoc(tx, docID)
		if err != nil {
			return err
		}
		doc.RedactionCount = len(spans)
		return putDoc(tx, doc)
	})
}

func (s *BoltStore) GetSpans(docID string) ([]domain.RedactionSpan, error) {
	var spans []domain.RedactionSpan
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSpans).Get([]byte(docID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &spans)
	})
	return spans, err
}

type chunkMeta struct {
	DocID string `json:"doc_id"`
	Index int    `json:"index"`
	Page  int    `json:"page"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ReplaceChunks swaps the document's chunk list in one transaction, so a
// re-run of the chunking checkpoint is idempotent and readers never observe
// a half-replaced list.
func (s *BoltStore) ReplaceChunks(docID string, chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		textBucket := tx.Bucket(bucketChunkText)
		docChunks := tx.Bucket(bucketDocChunks)

		if existing := docChunks.Get([]byte(docID)); existing != nil {
			var oldIDs []string
			if err := json.Unmarshal(existing, &oldIDs); err == nil {
				for _, id := range oldIDs {
					chunkBucket.Delete([]byte(id))
					textBucket.Delete([]byte(id))
				}
			}
		}

		ids := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			meta := chunkMeta{
				DocID: chunk.DocID,
				Index: chunk.Index,
				Page:  chunk.Page,
				Start: chunk.Start,
				End:   chunk.End,
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := chunkBucket.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			if err := textBucket.Put([]byte(chunk.ID), []byte(chunk.Text)); err != nil {
				return err
			}
			ids = append(ids, chunk.ID)
		}

		data, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return docChunks.Put([]byte(docID), data)
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		chunk, err = getChunk(tx, id)
		return err
	})
	return chunk, err
}

func getChunk(tx *bbolt.Tx, id string) (domain.Chunk, error) {
	data := tx.Bucket(bucketChunks).Get([]byte(id))
	if data == nil {
		return domain.Chunk{}, fmt.Errorf("%w: %s", domain.ErrChunkNotFound, id)
	}
	var meta chunkMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Chunk{}, err
	}
	text := tx.Bucket(bucketChunkText).Get([]byte(id))
	return domain.Chunk{
		ID:    id,
		DocID: meta.DocID,
		Index: meta.Index,
		Page:  meta.Page,
		Start: meta.Start,
		End:   meta.End,
		Text:  string(text),
	}, nil
}

func (s *BoltStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		for _, id := range ids {
			chunk, err := getChunk(tx, id)
			if err != nil {
				continue
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Start < chunks[j].Start })
	return chunks, err
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	stats := domain.Stats{ByStatus: make(map[domain.DocumentStatus]int)}
	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			stats.TotalDocuments++
			stats.ByStatus[meta.Status]++
			return nil
		}); err != nil {
			return err
		}
		stats.TotalChunks = tx.Bucket(bucketChunks).Stats().KeyN
		stats.TotalEntities = tx.Bucket(bucketEntities).Stats().KeyN
		stats.TotalPackets = tx.Bucket(bucketPackets).Stats().KeyN
		return nil
	})
	return stats, err
}

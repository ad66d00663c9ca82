package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"redacted/internal/adapter/analyzer"
	"redacted/internal/domain"
)

func entityNameKey(investigationID, name string) []byte {
	return []byte(investigationID + "\x00" + analyzer.CanonicalKey(name))
}

// UpsertMention is the atomic increment-or-insert keyed by (investigation,
// canonical name). Concurrent extractors hitting the same name serialize on
// the single Update transaction; the mention count never loses an update.
func (s *BoltStore) UpsertMention(investigationID string, m domain.EntityMention, now time.Time) (domain.Entity, error) {
	var entity domain.Entity
	err := s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(bucketEntityNames)
		entities := tx.Bucket(bucketEntities)
		key := entityNameKey(investigationID, m.Text)

		if id := names.Get(key); id != nil {
			data := entities.Get(id)
			if data == nil {
				return fmt.Errorf("entity index points at missing record: %s", id)
			}
			if err := json.Unmarshal(data, &entity); err != nil {
				return err
			}
			entity.MentionCount++
			updated, err := json.Marshal(entity)
			if err != nil {
				return err
			}
			return entities.Put(id, updated)
		}

		entity = domain.Entity{
			ID:              uuid.NewString(),
			InvestigationID: investigationID,
			Name:            m.Text,
			Type:            m.Type,
			IsRedacted:      m.IsRedacted,
			MentionCount:    1,
			FirstSeen:       now,
		}
		data, err := json.Marshal(entity)
		if err != nil {
			return err
		}
		if err := entities.Put([]byte(entity.ID), data); err != nil {
			return err
		}
		return names.Put(key, []byte(entity.ID))
	})
	return entity, err
}

func (s *BoltStore) ListEntities(investigationID string) ([]domain.Entity, error) {
	return s.scanEntities(investigationID, "")
}

// SearchEntities does a case-insensitive substring match on entity names.
func (s *BoltStore) SearchEntities(investigationID, query string) ([]domain.Entity, error) {
	return s.scanEntities(investigationID, strings.ToLower(query))
}

func (s *BoltStore) scanEntities(investigationID, query string) ([]domain.Entity, error) {
	var matches []domain.Entity
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntities).ForEach(func(k, v []byte) error {
			var e domain.Entity
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}
			if investigationID != "" && e.InvestigationID != investigationID {
				return nil
			}
			if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
				return nil
			}
			matches = append(matches, e)
			return nil
		})
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MentionCount != matches[j].MentionCount {
			return matches[i].MentionCount > matches[j].MentionCount
		}
		return matches[i].Name < matches[j].Name
	})
	return matches, err
}

func (s *BoltStore) PutPacket(p domain.EvidencePacket) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketPackets).Put([]byte(p.ID), data)
	})
}

func (s *BoltStore) GetPacket(id string) (domain.EvidencePacket, error) {
	var p domain.EvidencePacket
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPackets).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("evidence packet not found: %s", id)
		}
		return json.Unmarshal(data, &p)
	})
	return p, err
}

func (s *BoltStore) ListPackets(investigationID string, limit int) ([]domain.EvidencePacket, error) {
	var packets []domain.EvidencePacket
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPackets).ForEach(func(k, v []byte) error {
			var p domain.EvidencePacket
			if err := json.Unmarshal(v, &p); err != nil {
				return nil
			}
			if investigationID != "" && p.InvestigationID != investigationID {
				return nil
			}
			packets = append(packets, p)
			return nil
		})
	})
	sort.Slice(packets, func(i, j int) bool { return packets[i].CreatedAt.After(packets[j].CreatedAt) })
	if limit > 0 && len(packets) > limit {
		packets = packets[:limit]
	}
	return packets, err
}

// CastVote adjusts the vote count inside one transaction, never as a
// read-modify-write pair across calls. A non-empty token makes retries
// idempotent; without one a duplicate call counts again, a documented
// limitation of the vote contract.
func (s *BoltStore) CastVote(packetID, token string, delta int) (int, error) {
	votes := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		packets := tx.Bucket(bucketPackets)
		data := packets.Get([]byte(packetID))
		if data == nil {
			return fmt.Errorf("evidence packet not found: %s", packetID)
		}
		var p domain.EvidencePacket
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}

		if token != "" {
			voteKey := []byte(packetID + "\x00" + token)
			if tx.Bucket(bucketVotes).Get(voteKey) != nil {
				votes = p.Votes
				return nil
			}
			if err := tx.Bucket(bucketVotes).Put(voteKey, []byte{1}); err != nil {
				return err
			}
		}

		p.Votes += delta
		if p.Votes < 0 {
			p.Votes = 0
		}
		votes = p.Votes

		updated, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return packets.Put([]byte(packetID), updated)
	})
	return votes, err
}

// AppendActivity writes one ledger entry. Keys are ordered by timestamp so
// the feed reads back in insertion order; entries are never updated.
func (s *BoltStore) AppendActivity(ev domain.ActivityEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d\x00%s", ev.CreatedAt.UnixNano(), ev.ID)
		return tx.Bucket(bucketActivity).Put([]byte(key), data)
	})
}

// ListActivity returns the newest events first, optionally filtered by
// investigation.
func (s *BoltStore) ListActivity(investigationID string, limit int) ([]domain.ActivityEvent, error) {
	var events []domain.ActivityEvent
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketActivity).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var ev domain.ActivityEvent
			if err := json.Unmarshal(v, &ev); err != nil {
				continue
			}
			if investigationID != "" && ev.InvestigationID != investigationID {
				continue
			}
			events = append(events, ev)
			if limit > 0 && len(events) >= limit {
				return nil
			}
		}
		return nil
	})
	return events, err
}

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"redacted/internal/domain"
)

// CurrentSchemaVersion is incremented on breaking storage-format changes.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyChunkingHash  = []byte("chunking_hash")
)

// ChunkingFingerprint hashes the chunking parameters citations depend on.
// If the fingerprint changes, stored chunk offsets no longer match what the
// chunker would produce, and analyzed documents must be reprocessed before
// new citations are validated against them.
func ChunkingFingerprint(budget, chunksPerPage int) string {
	params := struct {
		Budget        int `json:"budget"`
		ChunksPerPage int `json:"chunks_per_page"`
	}{budget, chunksPerPage}
	data, _ := json.Marshal(params)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// CheckChunking compares the stored fingerprint with the configured one.
// It returns true, with a reason, when analyzed documents need reprocessing.
func (s *BoltStore) CheckChunking(fingerprint string) (bool, string, error) {
	var stored string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(bucketMeta).Get(keyChunkingHash); data != nil {
			stored = string(data)
		}
		return nil
	})
	if err != nil {
		return false, "", err
	}
	if stored != "" && stored != fingerprint {
		return true, "chunking configuration changed; stored offsets are stale", nil
	}
	return false, "", nil
}

// SetChunkingFingerprint records the active chunking parameters.
func (s *BoltStore) SetChunkingFingerprint(fingerprint string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		version, err := json.Marshal(CurrentSchemaVersion)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketMeta).Put(keySchemaVersion, version); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyChunkingHash, []byte(fingerprint))
	})
}

// RequeueAnalyzed flips analyzed documents back to pending so the pipeline
// regenerates their derived data. Used after a chunking-config change.
func (s *BoltStore) RequeueAnalyzed() (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)

		// collect first: bbolt forbids writes to a bucket mid-iteration
		pending := make(map[string]docMeta)
		if err := docs.ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			if meta.Status == domain.StatusAnalyzed {
				meta.Status = domain.StatusPending
				pending[string(k)] = meta
			}
			return nil
		}); err != nil {
			return err
		}

		for id, meta := range pending {
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := docs.Put([]byte(id), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to requeue analyzed documents: %w", err)
	}
	return count, nil
}

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	"github.com/connascence/conscan/domain"
)

// DefaultCapacity bounds the number of cached file results
const DefaultCapacity = 4096

// entry is one cached per-file analysis result
type entry struct {
	contentHash string
	findings    []domain.Finding
}

// Stats reports cache effectiveness for one process lifetime
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

// ResultCache stores per-file findings keyed by policy name and file path.
// An entry is only served when the stored content hash still matches the
// file's current content; entries never expire by time. Keying by policy
// name means a policy switch can never leak findings produced under
// different thresholds.
type ResultCache struct {
	store  *lru[string, entry]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResultCache creates a cache bounded to capacity entries
func NewResultCache(capacity int) *ResultCache {
	return &ResultCache{store: newLRU[string, entry](capacity)}
}

// ContentHash fingerprints file content for cache validation
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func cacheKey(policyName, path string) string {
	return policyName + "\x00" + path
}

// Get returns the cached findings for a file when the stored content hash
// matches. A hash mismatch counts as a miss and drops the stale entry.
func (c *ResultCache) Get(policyName, path, contentHash string) ([]domain.Finding, bool) {
	key := cacheKey(policyName, path)
	e, ok := c.store.get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if e.contentHash != contentHash {
		c.store.remove(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)

	// callers sort and annotate; hand out a copy so the stored slice
	// stays pristine
	out := make([]domain.Finding, len(e.findings))
	copy(out, e.findings)
	return out, true
}

// Put stores the findings for a file as analyzed under a policy
func (c *ResultCache) Put(policyName, path, contentHash string, findings []domain.Finding) {
	stored := make([]domain.Finding, len(findings))
	copy(stored, findings)
	c.store.put(cacheKey(policyName, path), entry{
		contentHash: contentHash,
		findings:    stored,
	})
}

// Invalidate drops a single file's entry for a policy
func (c *ResultCache) Invalidate(policyName, path string) {
	c.store.remove(cacheKey(policyName, path))
}

// Clear drops every entry
func (c *ResultCache) Clear() {
	c.store.clear()
}

// Stats returns hit/miss/eviction counters
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.store.evictions(),
		Entries:   c.store.len(),
	}
}

package index

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	pkgerrors "hummingbird/pkg/errors"
	"hummingbird/pkg/logger"
)

// BirdIndex is a durable flat nearest-neighbor store over bird
// embeddings, keyed by bird id. Vectors live in one contiguous arena
// indexed by slot; a separate side table retains the full entries so
// the structure can be rebuilt without re-deriving embeddings from
// images. All mutations persist synchronously before returning, and a
// file lock on the data directory enforces the single-writer
// assumption across processes.
type BirdIndex struct {
	mu     sync.RWMutex
	config *Config

	data    []float32        // slot-major vector arena
	slots   []int64          // slot -> bird id
	slotOf  map[int64]int    // bird id -> slot
	entries map[int64]*Entry // side table, keyed by bird id

	lock *flock.Flock
}

// Open loads (or initializes) the index under config.Dir. It fails
// with ErrIndexLocked if another process already owns the directory.
func Open(config *Config) (*BirdIndex, error) {
	if config.Dimension <= 0 {
		return nil, pkgerrors.ErrInvalidDimension
	}
	if config.SpaceType == "" {
		config.SpaceType = L2Space
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	lock := flock.New(path.Join(config.Dir, "index.lock"))
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !held {
		return nil, pkgerrors.ErrIndexLocked
	}

	bi := &BirdIndex{
		config:  config,
		slotOf:  make(map[int64]int),
		entries: make(map[int64]*Entry),
		lock:    lock,
	}
	if err := bi.load(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return bi, nil
}

// Close releases the directory lock. The on-disk state is already
// current because every mutation persists synchronously.
func (bi *BirdIndex) Close() error {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	return bi.lock.Unlock()
}

// Add registers a new embedding for birdID. A bird that already has a
// live entry is rejected with ErrBirdExists; refreshing an embedding
// goes through Update.
func (bi *BirdIndex) Add(embedding []float32, birdID int64, name string, metadata map[string]string) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	if len(embedding) != bi.config.Dimension {
		logger.Error("embedding dimension mismatch",
			"bird_id", birdID, "got", len(embedding), "want", bi.config.Dimension)
		return pkgerrors.ErrInvalidDimension
	}
	if _, exists := bi.slotOf[birdID]; exists {
		return pkgerrors.ErrBirdExists
	}

	now := time.Now().UTC()
	entry := &Entry{
		BirdID:    birdID,
		BirdName:  name,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  cloneMetadata(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	slot := len(bi.slots)
	bi.data = append(bi.data, entry.Embedding...)
	bi.slots = append(bi.slots, birdID)
	bi.slotOf[birdID] = slot
	bi.entries[birdID] = entry

	if err := bi.saveLocked(); err != nil {
		bi.data = bi.data[:slot*bi.config.Dimension]
		bi.slots = bi.slots[:slot]
		delete(bi.slotOf, birdID)
		delete(bi.entries, birdID)
		return fmt.Errorf("persist after add: %w", err)
	}

	logger.Info("added bird embedding", "bird_id", birdID, "count", len(bi.slots))
	return nil
}

// Update replaces the embedding (and merges metadata) for an existing
// bird. The vector is rewritten in place at the bird's slot, so no
// other entry's slot assignment is disturbed.
func (bi *BirdIndex) Update(birdID int64, embedding []float32, metadata map[string]string) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	if len(embedding) != bi.config.Dimension {
		logger.Error("embedding dimension mismatch",
			"bird_id", birdID, "got", len(embedding), "want", bi.config.Dimension)
		return pkgerrors.ErrInvalidDimension
	}
	slot, exists := bi.slotOf[birdID]
	if !exists {
		logger.Warn("bird not found in index", "bird_id", birdID)
		return pkgerrors.ErrBirdNotFound
	}

	entry := bi.entries[birdID]
	prev := entry.clone()

	start := slot * bi.config.Dimension
	copy(bi.data[start:start+bi.config.Dimension], embedding)
	entry.Embedding = append([]float32(nil), embedding...)
	if metadata != nil {
		if entry.Metadata == nil {
			entry.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			entry.Metadata[k] = v
		}
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := bi.saveLocked(); err != nil {
		copy(bi.data[start:start+bi.config.Dimension], prev.Embedding)
		bi.entries[birdID] = prev
		return fmt.Errorf("persist after update: %w", err)
	}

	logger.Info("updated bird embedding", "bird_id", birdID)
	return nil
}

// Remove deletes the bird's entry. The arena is compacted
// immediately and the slot map renumbered under the same lock, so
// stale positions can never be observed.
func (bi *BirdIndex) Remove(birdID int64) error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	slot, exists := bi.slotOf[birdID]
	if !exists {
		logger.Warn("bird not found in index", "bird_id", birdID)
		return pkgerrors.ErrBirdNotFound
	}

	prevData := append([]float32(nil), bi.data...)
	prevSlots := append([]int64(nil), bi.slots...)
	prevEntry := bi.entries[birdID]

	dim := bi.config.Dimension
	bi.data = append(bi.data[:slot*dim], bi.data[(slot+1)*dim:]...)
	bi.slots = append(bi.slots[:slot], bi.slots[slot+1:]...)
	delete(bi.slotOf, birdID)
	delete(bi.entries, birdID)
	for i := slot; i < len(bi.slots); i++ {
		bi.slotOf[bi.slots[i]] = i
	}

	if err := bi.saveLocked(); err != nil {
		bi.data = prevData
		bi.slots = prevSlots
		bi.entries[birdID] = prevEntry
		for i, id := range bi.slots {
			bi.slotOf[id] = i
		}
		return fmt.Errorf("persist after remove: %w", err)
	}

	logger.Info("removed bird embedding", "bird_id", birdID, "count", len(bi.slots))
	return nil
}

// Search returns up to k matches with similarity >= threshold,
// ordered by descending similarity. Equal similarities keep insertion
// order. An empty index or k <= 0 yields an empty result, not an
// error.
func (bi *BirdIndex) Search(query []float32, k int, threshold float64) ([]Match, error) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()

	if len(query) != bi.config.Dimension {
		logger.Error("query dimension mismatch",
			"got", len(query), "want", bi.config.Dimension)
		return nil, pkgerrors.ErrInvalidDimension
	}
	if k <= 0 || len(bi.slots) == 0 {
		return []Match{}, nil
	}

	type candidate struct {
		slot int
		dist float32
		sim  float64
	}
	dim := bi.config.Dimension
	candidates := make([]candidate, 0, len(bi.slots))
	for slot := range bi.slots {
		vec := bi.data[slot*dim : (slot+1)*dim]
		dist := distance(query, vec, bi.config.SpaceType)
		sim := similarity(dist, bi.config.SpaceType)
		if sim >= threshold {
			candidates = append(candidates, candidate{slot: slot, dist: dist, sim: sim})
		}
	}

	// Candidates were collected in slot order, so the stable sort
	// keeps ties in insertion order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if k > len(candidates) {
		k = len(candidates)
	}

	matches := make([]Match, 0, k)
	for _, c := range candidates[:k] {
		entry := bi.entries[bi.slots[c.slot]]
		matches = append(matches, Match{
			BirdID:     entry.BirdID,
			BirdName:   entry.BirdName,
			Similarity: c.sim,
			Distance:   float64(c.dist),
			Metadata:   cloneMetadata(entry.Metadata),
		})
	}
	return matches, nil
}

// Get returns a copy of the live entry for birdID, if any.
func (bi *BirdIndex) Get(birdID int64) (*Entry, bool) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	entry, exists := bi.entries[birdID]
	if !exists {
		return nil, false
	}
	return entry.clone(), true
}

// Rebuild reconstructs the arena from the retained side table,
// dropping stale slot assignments. Entries whose stored embedding no
// longer matches the index dimension are dropped with a warning.
// Running it twice in a row yields the same live entry set.
func (bi *BirdIndex) Rebuild() error {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	prevData := bi.data
	prevSlots := bi.slots
	prevSlotOf := bi.slotOf
	prevEntries := bi.entries

	if err := bi.rebuildLocked(); err != nil {
		return err
	}
	if err := bi.saveLocked(); err != nil {
		bi.data = prevData
		bi.slots = prevSlots
		bi.slotOf = prevSlotOf
		bi.entries = prevEntries
		return fmt.Errorf("persist after rebuild: %w", err)
	}

	logger.Info("rebuilt bird index", "count", len(bi.slots))
	return nil
}

// rebuildLocked reassigns slots in creation order. Caller holds the
// write lock.
func (bi *BirdIndex) rebuildLocked() error {
	ordered := make([]*Entry, 0, len(bi.entries))
	for _, entry := range bi.entries {
		if len(entry.Embedding) != bi.config.Dimension {
			logger.Warn("skipping entry with stale dimension during rebuild",
				"bird_id", entry.BirdID, "got", len(entry.Embedding), "want", bi.config.Dimension)
			continue
		}
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].BirdID < ordered[j].BirdID
	})

	dim := bi.config.Dimension
	data := make([]float32, 0, len(ordered)*dim)
	slots := make([]int64, 0, len(ordered))
	slotOf := make(map[int64]int, len(ordered))
	entries := make(map[int64]*Entry, len(ordered))
	for slot, entry := range ordered {
		data = append(data, entry.Embedding...)
		slots = append(slots, entry.BirdID)
		slotOf[entry.BirdID] = slot
		entries[entry.BirdID] = entry
	}

	bi.data = data
	bi.slots = slots
	bi.slotOf = slotOf
	bi.entries = entries
	return nil
}

// Stats returns a read-only snapshot of the index.
func (bi *BirdIndex) Stats() Stats {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return Stats{
		Count:         len(bi.slots),
		Dimension:     bi.config.Dimension,
		MetadataCount: len(bi.entries),
		SpaceType:     bi.config.SpaceType,
		IndexType:     "flat",
	}
}

// Count returns the number of live entries.
func (bi *BirdIndex) Count() int {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return len(bi.slots)
}

package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path"

	"hummingbird/pkg/logger"
)

const (
	arenaFile = "bird_index.dat"
	metaFile  = "bird_meta.dat"
)

// arenaSnapshot is the serialized nearest-neighbor structure. The
// side table (entries map) is persisted separately so either artifact
// can be loaded on its own at startup.
type arenaSnapshot struct {
	Dimension int
	SpaceType SpaceType
	Data      []float32
	Slots     []int64
}

// saveLocked persists both artifacts. The side table goes first: if
// the process dies between the two renames, load falls back to
// rebuilding the arena from the side table, so disk can never end up
// semantically ahead of memory. Caller holds the write lock.
func (bi *BirdIndex) saveLocked() error {
	if err := writeGob(path.Join(bi.config.Dir, metaFile), bi.entries); err != nil {
		return fmt.Errorf("write side table: %w", err)
	}
	snap := arenaSnapshot{
		Dimension: bi.config.Dimension,
		SpaceType: bi.config.SpaceType,
		Data:      bi.data,
		Slots:     bi.slots,
	}
	if err := writeGob(path.Join(bi.config.Dir, arenaFile), &snap); err != nil {
		return fmt.Errorf("write arena: %w", err)
	}
	return nil
}

// load restores state from disk. A missing or unreadable side table
// means the index starts empty; a missing or inconsistent arena is
// rebuilt from the side table.
func (bi *BirdIndex) load() error {
	entries := make(map[int64]*Entry)
	if err := readGob(path.Join(bi.config.Dir, metaFile), &entries); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("side table unreadable, starting empty", "error", err)
		}
		return nil
	}
	bi.entries = entries

	var snap arenaSnapshot
	if err := readGob(path.Join(bi.config.Dir, arenaFile), &snap); err != nil {
		logger.Warn("arena unreadable, rebuilding from side table", "error", err)
		return bi.rebuildLocked()
	}
	if !bi.arenaConsistent(&snap) {
		logger.Warn("arena inconsistent with side table, rebuilding",
			"slots", len(snap.Slots), "entries", len(bi.entries))
		return bi.rebuildLocked()
	}

	bi.data = snap.Data
	bi.slots = snap.Slots
	bi.slotOf = make(map[int64]int, len(snap.Slots))
	for slot, birdID := range snap.Slots {
		bi.slotOf[birdID] = slot
	}
	logger.Info("loaded bird index", "count", len(bi.slots), "dimension", bi.config.Dimension)
	return nil
}

// arenaConsistent reports whether the serialized structure explains
// exactly the live side table entries.
func (bi *BirdIndex) arenaConsistent(snap *arenaSnapshot) bool {
	if snap.Dimension != bi.config.Dimension {
		return false
	}
	if len(snap.Data) != len(snap.Slots)*snap.Dimension {
		return false
	}
	if len(snap.Slots) != len(bi.entries) {
		return false
	}
	for _, birdID := range snap.Slots {
		if _, ok := bi.entries[birdID]; !ok {
			return false
		}
	}
	return true
}

func writeGob(filePath string, v any) error {
	tmp := filePath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(file).Encode(v); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filePath)
}

func readGob(filePath string, v any) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(v)
}

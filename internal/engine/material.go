package engine

// MaterialEntry stores a cached material evaluation.
type MaterialEntry struct {
	Key   uint64
	Score int32 // White's point of view
	Valid bool
}

// MaterialTable is a hash table for caching evaluation terms that depend
// only on the material key.
type MaterialTable struct {
	entries []MaterialEntry
	mask    uint64
}

// NewMaterialTable creates a new material hash table with the given size in MB.
func NewMaterialTable(sizeMB int) *MaterialTable {
	// Each entry is 16 bytes, round to power of 2
	entrySize := 16
	numEntries := (sizeMB * 1024 * 1024) / entrySize
	if numEntries < 1 {
		numEntries = 1
	}

	// Round down to power of 2
	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &MaterialTable{
		entries: make([]MaterialEntry, size),
		mask:    uint64(size - 1),
	}
}

// index spreads the material key, whose low bits only count white pawns.
func (mt *MaterialTable) index(key uint64) uint64 {
	return (key * 0x9E3779B97F4A7C15) >> 32 & mt.mask
}

// Probe looks up a material evaluation in the hash table.
func (mt *MaterialTable) Probe(key uint64) (int, bool) {
	entry := &mt.entries[mt.index(key)]
	if entry.Valid && entry.Key == key {
		return int(entry.Score), true
	}
	return 0, false
}

// Store saves a material evaluation in the hash table.
func (mt *MaterialTable) Store(key uint64, score int) {
	entry := &mt.entries[mt.index(key)]
	entry.Key = key
	entry.Score = int32(score)
	entry.Valid = true
}

// Clear clears the material hash table.
func (mt *MaterialTable) Clear() {
	for i := range mt.entries {
		mt.entries[i] = MaterialEntry{}
	}
}

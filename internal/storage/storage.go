package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("storage: not found")

// Storage keys
const (
	keySettings       = "settings"
	keyAnalysisPrefix = "analysis/"
)

// Settings stores engine configuration between runs.
type Settings struct {
	HashMB            int       `json:"hash_mb"`
	MoveTimeMS        int       `json:"move_time_ms"`
	NullMoveReduction int       `json:"null_move_reduction"`
	FutilityMargin    int       `json:"futility_margin"`
	AspirationDelta   int       `json:"aspiration_delta"`
	LastUsed          time.Time `json:"last_used"`
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() *Settings {
	return &Settings{
		HashMB:            64,
		MoveTimeMS:        5000,
		NullMoveReduction: 2,
		FutilityMargin:    325,
		AspirationDelta:   17,
	}
}

// Analysis is the result of a completed search of one position.
type Analysis struct {
	FEN      string        `json:"fen"`
	Depth    int           `json:"depth"`
	Score    int           `json:"score"`
	BestMove string        `json:"best_move"`
	PV       []string      `json:"pv"`
	Nodes    uint64        `json:"nodes"`
	Time     time.Duration `json:"time"`
	Recorded time.Time     `json:"recorded"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens the database in the db directory below dataDir, or below the
// platform data directory when dataDir is empty.
func Open(dataDir string) (*Storage, error) {
	dbDir, err := GetDatabaseDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dbDir, err)
	}

	log.Debug().Str("dir", dbDir).Msg("storage-opened")
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		log.Debug().Msg("storage-closed")
		return s.db.Close()
	}
	return nil
}

// SaveSettings saves engine settings
func (s *Storage) SaveSettings(settings *Settings) error {
	settings.LastUsed = time.Now()

	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySettings), data)
	})
}

// LoadSettings loads engine settings, returns defaults if not found
func (s *Storage) LoadSettings() (*Settings, error) {
	settings := DefaultSettings()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySettings))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, settings)
		})
	})

	return settings, err
}

func analysisKey(positionKey uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", keyAnalysisPrefix, positionKey)
}

// SaveAnalysis records a search result for the position with the given
// key. A stored result from a deeper search is kept.
func (s *Storage) SaveAnalysis(positionKey uint64, a *Analysis) error {
	if a.Recorded.IsZero() {
		a.Recorded = time.Now()
	}

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	key := analysisKey(positionKey)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var old Analysis
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			}); err != nil {
				return err
			}
			if old.Depth > a.Depth {
				return nil
			}
		}
		return txn.Set(key, data)
	})
}

// LoadAnalysis returns the stored search result for a position key, or an
// error wrapping ErrNotFound.
func (s *Storage) LoadAnalysis(positionKey uint64) (*Analysis, error) {
	var a Analysis

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(analysisKey(positionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("analysis %016x: %w", positionKey, ErrNotFound)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// CountAnalyses returns the number of stored search results.
func (s *Storage) CountAnalyses() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyAnalysisPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

// ClearAnalyses deletes all stored search results.
func (s *Storage) ClearAnalyses() error {
	return s.db.DropPrefix([]byte(keyAnalysisPrefix))
}

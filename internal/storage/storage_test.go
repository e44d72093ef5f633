package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return s
}

func TestSettings(t *testing.T) {
	s := openTestStorage(t)

	t.Run("Defaults", func(t *testing.T) {
		settings, err := s.LoadSettings()
		if err != nil {
			t.Fatalf("LoadSettings failed: %v", err)
		}
		if *settings != *DefaultSettings() {
			t.Errorf("got %+v, want defaults", settings)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		want := DefaultSettings()
		want.HashMB = 128
		want.NullMoveReduction = 3
		if err := s.SaveSettings(want); err != nil {
			t.Fatalf("SaveSettings failed: %v", err)
		}
		if want.LastUsed.IsZero() {
			t.Error("SaveSettings did not stamp LastUsed")
		}

		got, err := s.LoadSettings()
		if err != nil {
			t.Fatalf("LoadSettings failed: %v", err)
		}
		if got.HashMB != 128 || got.NullMoveReduction != 3 || got.MoveTimeMS != want.MoveTimeMS {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})
}

func TestAnalysis(t *testing.T) {
	s := openTestStorage(t)
	const key = 0xdeadbeefcafe

	if _, err := s.LoadAnalysis(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadAnalysis on empty store: %v, want ErrNotFound", err)
	}

	deep := &Analysis{FEN: "startpos", Depth: 8, Score: 25, BestMove: "e2e4", PV: []string{"e2e4", "e7e5"}, Nodes: 1000}
	if err := s.SaveAnalysis(key, deep); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	// A shallower result does not replace a deeper one.
	if err := s.SaveAnalysis(key, &Analysis{FEN: "startpos", Depth: 3, BestMove: "d2d4"}); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	got, err := s.LoadAnalysis(key)
	if err != nil {
		t.Fatalf("LoadAnalysis failed: %v", err)
	}
	if got.Depth != 8 || got.BestMove != "e2e4" || len(got.PV) != 2 || got.Recorded.IsZero() {
		t.Errorf("got %+v", got)
	}

	if err := s.SaveAnalysis(key+1, &Analysis{Depth: 1, BestMove: "g1f3"}); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	if n, err := s.CountAnalyses(); err != nil || n != 2 {
		t.Errorf("CountAnalyses() = %d, %v; want 2", n, err)
	}

	if err := s.ClearAnalyses(); err != nil {
		t.Fatalf("ClearAnalyses failed: %v", err)
	}
	if n, err := s.CountAnalyses(); err != nil || n != 0 {
		t.Errorf("CountAnalyses() after clear = %d, %v; want 0", n, err)
	}
}

func TestSettingsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	settings := DefaultSettings()
	settings.MoveTimeMS = 1234
	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s = openTestStorageAt(t, dir)
	got, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if got.MoveTimeMS != 1234 {
		t.Errorf("MoveTimeMS = %d after reopen, want 1234", got.MoveTimeMS)
	}
}

func openTestStorageAt(t *testing.T, dir string) *Storage {
	t.Helper()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	// Test that GetDataDir returns a valid path
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if filepath.Base(dataDir) != appName {
		t.Errorf("GetDataDir = %s, want a %s directory", dataDir, appName)
	}

	// Verify directory exists
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	dbDir, err := GetDatabaseDir("")
	if err != nil {
		t.Fatalf("GetDatabaseDir failed: %v", err)
	}
	if filepath.Dir(dbDir) != dataDir {
		t.Errorf("GetDatabaseDir = %s, want it below %s", dbDir, dataDir)
	}
}

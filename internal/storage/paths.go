// Package storage persists engine settings and search results in BadgerDB.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

const (
	appName  = "chesscore"
	dbSubdir = "db"
)

// platformBase describes where a platform keeps per-user application data:
// an environment override, then a path below the home directory.
type platformBase struct {
	env      string
	fallback []string
}

var platformBases = map[string]platformBase{
	"darwin":  {fallback: []string{"Library", "Application Support"}},
	"windows": {env: "APPDATA", fallback: []string{"AppData", "Roaming"}},
}

// Linux and other Unix-like systems follow XDG.
var defaultBase = platformBase{env: "XDG_DATA_HOME", fallback: []string{".local", "share"}}

func userDataBase() (string, error) {
	pb, ok := platformBases[runtime.GOOS]
	if !ok {
		pb = defaultBase
	}
	if pb.env != "" {
		if dir := os.Getenv(pb.env); dir != "" {
			return dir, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(append([]string{home}, pb.fallback...)...), nil
}

// ensureDir creates dir if needed and returns it.
func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// GetDataDir returns the per-user data directory, creating it if needed.
//   - macOS: ~/Library/Application Support/chesscore/
//   - Linux: $XDG_DATA_HOME/chesscore/ or ~/.local/share/chesscore/
//   - Windows: %APPDATA%/chesscore/
func GetDataDir() (string, error) {
	base, err := userDataBase()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(base, appName))
}

// GetDatabaseDir returns the directory for the BadgerDB database below
// dataDir, or below GetDataDir when dataDir is empty.
func GetDatabaseDir(dataDir string) (string, error) {
	if dataDir == "" {
		var err error
		if dataDir, err = GetDataDir(); err != nil {
			return "", err
		}
	}

	dbDir, err := ensureDir(filepath.Join(dataDir, dbSubdir))
	if err != nil {
		return "", err
	}
	log.Debug().Str("dir", dbDir).Msg("database-directory")
	return dbDir, nil
}

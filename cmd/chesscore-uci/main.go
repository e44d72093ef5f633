package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/uci"
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	hashMB     = flag.Int("hash", 0, "transposition table size in MB (0 = stored setting)")
	moveTime   = flag.Int("movetime", 0, "default milliseconds per move for a bare go (0 = stored setting)")
	dataDir    = flag.String("datadir", "", "directory for settings and analyses (default: user data dir)")
	logLevel   = flag.String("loglevel", "info", "log level: debug, info, warn, error")
	noPersist  = flag.Bool("nopersist", false, "do not read or write the settings database")
)

func main() {
	flag.Parse()

	// Diagnostics go to stderr; stdout belongs to the protocol.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid-log-level")
	}
	zerolog.SetGlobalLevel(level)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu-profiling")
	}

	settings := storage.DefaultSettings()
	var store *storage.Storage
	if !*noPersist {
		store, err = storage.Open(*dataDir)
		if err != nil {
			log.Warn().Err(err).Msg("storage-unavailable")
			store = nil
		} else {
			defer store.Close()
			if settings, err = store.LoadSettings(); err != nil {
				log.Warn().Err(err).Msg("load-settings")
				settings = storage.DefaultSettings()
			}
		}
	}

	// Flags override stored settings
	if *hashMB > 0 {
		settings.HashMB = *hashMB
	}
	if *moveTime > 0 {
		settings.MoveTimeMS = *moveTime
	}
	uci.ClampSettings(settings)

	opts := engine.DefaultOptions()
	opts.HashMB = settings.HashMB
	opts.NullMoveReduction = settings.NullMoveReduction
	opts.FutilityMargin = settings.FutilityMargin
	opts.AspirationDelta = settings.AspirationDelta
	eng := engine.NewEngine(opts)

	log.Debug().
		Int("hash", opts.HashMB).
		Int("nullmove", opts.NullMoveReduction).
		Int("futility", opts.FutilityMargin).
		Int("aspiration", opts.AspirationDelta).
		Bool("persist", store != nil).
		Msg("engine-config")

	// Create and run UCI protocol handler
	protocol := uci.New(eng, store, settings)
	if err := protocol.Run(os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("uci")
	}
}

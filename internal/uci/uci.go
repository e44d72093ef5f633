// Package uci implements the Universal Chess Interface protocol on top of
// the engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	store    *storage.Storage // nil when nothing is persisted
	settings *storage.Settings
	position *board.Position

	out   io.Writer
	outMu sync.Mutex

	// Search state
	searching  bool
	searchDone chan struct{}
}

// New creates a new UCI protocol handler. store may be nil; settings seeds
// the option values and is updated by setoption.
func New(eng *engine.Engine, store *storage.Storage, settings *storage.Settings) *UCI {
	if settings == nil {
		settings = storage.DefaultSettings()
	}
	return &UCI{
		engine:   eng,
		store:    store,
		settings: settings,
		position: board.NewPosition(),
	}
}

// Run reads commands from in and answers on out until "quit" or the end of
// input. A running search is waited for before returning.
func (u *UCI) Run(in io.Reader, out io.Writer) error {
	u.out = out
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleStop()
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d", "drawboard":
			u.send("%sFen: %s", u.position.String(), u.position.ToFEN())
		case "perft":
			u.handlePerft(args)
		case "eval":
			u.handleEval()
		case "analysis":
			u.handleAnalysis()
		default:
			log.Warn().Str("command", line).Msg("unknown-command")
		}
	}

	u.wait()
	return scanner.Err()
}

// send writes one protocol line.
func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// spinLimits holds the range of a spin option.
type spinLimits struct {
	min, max int
}

func (l spinLimits) clamp(n int) int {
	return min(max(n, l.min), l.max)
}

// Ranges announced by "uci" and enforced by setoption.
var (
	hashLimits       = spinLimits{1, 4096}
	moveTimeLimits   = spinLimits{10, 3600000}
	nullMoveLimits   = spinLimits{0, 4}
	futilityLimits   = spinLimits{0, 2000}
	aspirationLimits = spinLimits{0, 500}
)

// ClampSettings forces every field of s into the range its option announces.
func ClampSettings(s *storage.Settings) {
	s.HashMB = hashLimits.clamp(s.HashMB)
	s.MoveTimeMS = moveTimeLimits.clamp(s.MoveTimeMS)
	s.NullMoveReduction = nullMoveLimits.clamp(s.NullMoveReduction)
	s.FutilityMargin = futilityLimits.clamp(s.FutilityMargin)
	s.AspirationDelta = aspirationLimits.clamp(s.AspirationDelta)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	opts := u.engine.Options()
	spin := func(name string, value int, l spinLimits) {
		u.send("option name %s type spin default %d min %d max %d", name, value, l.min, l.max)
	}
	u.send("id name chesscore")
	u.send("id author chesscore developers")
	u.send("")
	spin("Hash", opts.HashMB, hashLimits)
	spin("MoveTime", u.settings.MoveTimeMS, moveTimeLimits)
	spin("NullMoveReduction", opts.NullMoveReduction, nullMoveLimits)
	spin("FutilityMargin", opts.FutilityMargin, futilityLimits)
	spin("AspirationDelta", opts.AspirationDelta, aspirationLimits)
	u.send("option name Persist type check default %t", u.store != nil)
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	// Find "moves" keyword
	moveStart := len(args)
	for i, arg := range args {
		if arg == "moves" {
			moveStart = i
			break
		}
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		fenStr := strings.Join(args[1:moveStart], " ")
		var err error
		pos, err = board.ParseFEN(fenStr)
		if err != nil {
			log.Warn().Err(err).Str("fen", fenStr).Msg("invalid-position")
			return
		}
	default:
		log.Warn().Str("kind", args[0]).Msg("invalid-position")
		return
	}
	u.position = pos

	// Apply moves; the history they leave behind feeds repetition detection.
	if moveStart < len(args) {
		for _, moveStr := range args[moveStart+1:] {
			move, err := board.ParseMove(moveStr, u.position)
			if err != nil {
				log.Warn().Err(err).Str("fen", u.position.ToFEN()).Msg("invalid-move")
				return
			}
			u.position.Apply(move)
		}
	}
}

// parseGoOptions converts "go" command arguments to search limits. A bare
// "go" searches for the configured move time.
func (u *UCI) parseGoOptions(args []string) engine.SearchLimits {
	var limits engine.SearchLimits

	millis := func(i int) time.Duration {
		ms, err := strconv.Atoi(args[i])
		if err != nil {
			log.Warn().Err(err).Str("arg", args[i-1]).Msg("invalid-go-argument")
			return 0
		}
		return time.Duration(ms) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		hasValue := i+1 < len(args)
		switch args[i] {
		case "depth":
			if hasValue {
				limits.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if hasValue {
				limits.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
				i++
			}
		case "movetime":
			if hasValue {
				limits.MoveTime = millis(i + 1)
				i++
			}
		case "infinite":
			limits.Infinite = true
		case "wtime":
			if hasValue {
				limits.Time[board.White] = millis(i + 1)
				i++
			}
		case "btime":
			if hasValue {
				limits.Time[board.Black] = millis(i + 1)
				i++
			}
		case "winc":
			if hasValue {
				limits.Inc[board.White] = millis(i + 1)
				i++
			}
		case "binc":
			if hasValue {
				limits.Inc[board.Black] = millis(i + 1)
				i++
			}
		case "movestogo":
			if hasValue {
				limits.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	unlimited := !limits.Infinite && limits.Depth == 0 && limits.Nodes == 0 && limits.MoveTime == 0 &&
		limits.Time[board.White] == 0 && limits.Time[board.Black] == 0
	if unlimited {
		limits.MoveTime = time.Duration(u.settings.MoveTimeMS) * time.Millisecond
	}

	return limits
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	u.handleStop()
	limits := u.parseGoOptions(args)

	// Configure info callback
	depth := 0
	u.engine.OnInfo = func(info engine.SearchInfo) {
		depth = info.Depth
		u.sendInfo(info)
	}

	u.searching = true
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()

	go func() {
		defer close(u.searchDone)

		start := time.Now()
		result := u.engine.SearchWithLimits(pos, limits)
		elapsed := time.Since(start)

		u.sendStats(result.Stats)
		u.send("bestmove %s", result.Move)

		log.Info().
			Str("bestmove", result.Move.String()).
			Int("score", result.Score).
			Int("depth", depth).
			Uint64("nodes", result.Stats.Nodes).
			Dur("elapsed", elapsed).
			Msg("search-complete")

		u.saveAnalysis(pos, depth, result, elapsed)
	}()
}

// wait blocks until the running search, if any, has finished.
func (u *UCI) wait() {
	if u.searching {
		<-u.searchDone
		u.searching = false
	}
}

// handleStop stops the current search.
func (u *UCI) handleStop() {
	if u.searching {
		u.engine.Stop()
		u.wait()
	}
}

// formatScore renders a score as "cp N" or "mate N".
func formatScore(score int) string {
	if engine.IsMateScore(score) {
		return fmt.Sprintf("mate %d", engine.MateDistance(score))
	}
	return fmt.Sprintf("cp %d", score)
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	parts = append(parts, "score "+formatScore(info.Score))
	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))

	// NPS
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}

	// Hash fullness
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		parts = append(parts, "pv "+engine.FormatPV(info.PV))
	}

	u.send("info %s", strings.Join(parts, " "))
}

// sendStats reports the search counters as an info string.
func (u *UCI) sendStats(s engine.SearchStats) {
	u.send("info string nodes %d qnodes %d nullmoves %d nullcutoffs %d betacutoffs %d futility %d tthits %d faillow %d failhigh %d",
		s.Nodes, s.QuiescenceNodes, s.NullMovesTried, s.NullMoveCutoffs, s.BetaCutoffs,
		s.FutilityPrunes, s.TTHits, s.FailLows, s.FailHighs)
}

// saveAnalysis records a finished search when persistence is on.
func (u *UCI) saveAnalysis(pos *board.Position, depth int, result engine.SearchResult, elapsed time.Duration) {
	if u.store == nil || result.Move == board.NoMove {
		return
	}

	pv := make([]string, len(result.PV))
	for i, m := range result.PV {
		pv[i] = m.String()
	}
	a := &storage.Analysis{
		FEN:      pos.ToFEN(),
		Depth:    depth,
		Score:    result.Score,
		BestMove: result.Move.String(),
		PV:       pv,
		Nodes:    result.Stats.Nodes,
		Time:     elapsed,
	}
	if err := u.store.SaveAnalysis(pos.Key(), a); err != nil {
		log.Error().Err(err).Msg("save-analysis")
	}
}

// handleAnalysis prints the stored result for the current position. A
// running search is stopped first so its result is on record.
func (u *UCI) handleAnalysis() {
	u.handleStop()
	if u.store == nil {
		u.send("info string persistence is off")
		return
	}
	a, err := u.store.LoadAnalysis(u.position.Key())
	if err != nil {
		u.send("info string no stored analysis")
		log.Debug().Err(err).Msg("load-analysis")
		return
	}
	u.send("info string analysis depth %d score %s bestmove %s pv %s",
		a.Depth, formatScore(a.Score), a.BestMove, strings.Join(a.PV, " "))
}

// handleEval prints the static evaluation of the current position.
func (u *UCI) handleEval() {
	if u.searching {
		u.send("info string eval unavailable while searching")
		return
	}
	u.send("info string eval cp %d", u.engine.Evaluate(u.position))
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> value <value>
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	// Options may reallocate search state, so no search runs meanwhile.
	u.handleStop()

	opts := u.engine.Options()
	n, err := strconv.Atoi(value)
	key := strings.ToLower(name)
	if key != "persist" && err != nil {
		log.Warn().Err(err).Str("option", name).Msg("invalid-option-value")
		return
	}

	clamped := func(l spinLimits) int {
		v := l.clamp(n)
		if v != n {
			log.Warn().Str("option", name).Int("value", n).Int("clamped", v).Msg("option-out-of-range")
		}
		return v
	}

	switch key {
	case "hash":
		opts.HashMB = clamped(hashLimits)
	case "movetime":
		u.settings.MoveTimeMS = clamped(moveTimeLimits)
	case "nullmovereduction":
		opts.NullMoveReduction = clamped(nullMoveLimits)
	case "futilitymargin":
		opts.FutilityMargin = clamped(futilityLimits)
	case "aspirationdelta":
		opts.AspirationDelta = clamped(aspirationLimits)
	case "persist":
		if strings.ToLower(value) != "true" && u.store != nil {
			log.Info().Msg("persistence-disabled")
			u.store = nil
		}
		return
	default:
		log.Warn().Str("option", name).Msg("unknown-option")
		return
	}

	u.engine.SetOptions(opts)
	opts = u.engine.Options()
	u.settings.HashMB = opts.HashMB
	u.settings.NullMoveReduction = opts.NullMoveReduction
	u.settings.FutilityMargin = opts.FutilityMargin
	u.settings.AspirationDelta = opts.AspirationDelta

	if u.store != nil {
		if err := u.store.SaveSettings(u.settings); err != nil {
			log.Error().Err(err).Msg("save-settings")
		}
	}
}

// handlePerft runs a perft test split at the root.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		var err error
		if depth, err = strconv.Atoi(args[0]); err != nil || depth < 1 {
			log.Warn().Str("depth", args[0]).Msg("invalid-perft-depth")
			return
		}
	}

	start := time.Now()
	entries, err := u.engine.PerftDivide(context.Background(), u.position, depth)
	if err != nil {
		log.Error().Err(err).Msg("perft")
		return
	}
	elapsed := time.Since(start)

	var nodes uint64
	for _, e := range entries {
		u.send("%s: %d", e.Move, e.Nodes)
		nodes += e.Nodes
	}
	u.send("")
	u.send("Nodes searched: %d", nodes)

	log.Info().
		Int("depth", depth).
		Uint64("nodes", nodes).
		Dur("elapsed", elapsed).
		Float64("nps", float64(nodes)/max(elapsed.Seconds(), 1e-9)).
		Msg("perft")
}

package engine

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
	Stats    SearchStats
}

// SearchLimits specifies constraints on the search. Limits are checked
// between iterations only.
type SearchLimits struct {
	Depth     int              // Maximum depth (0 = no limit)
	Nodes     uint64           // Maximum nodes (0 = no limit)
	MoveTime  time.Duration    // Time for this move (0 = no limit)
	Infinite  bool             // Search until stopped
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
}

// Options configures an Engine.
type Options struct {
	HashMB            int // Transposition table size
	NullMoveReduction int // R for null-move pruning, 0 disables it
	FutilityMargin    int // Margin of the depth-1 futility test
	AspirationDelta   int // Initial half-width of the aspiration window, 0 disables it
	StartDepth        int // First iterative deepening depth
}

// DefaultOptions returns the standard engine configuration.
func DefaultOptions() Options {
	return Options{
		HashMB:            64,
		NullMoveReduction: DefaultNullMoveReduction,
		FutilityMargin:    DefaultFutilityMargin,
		AspirationDelta:   17,
		StartDepth:        1,
	}
}

// materialTableMB is the size of the evaluator's material cache.
const materialTableMB = 1

// Engine is the chess AI engine. It runs one search at a time.
type Engine struct {
	opts     Options
	searcher *Searcher
	tt       *TranspositionTable
	eval     *Evaluator
	timer    TimeManager
	stopFlag atomic.Bool

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine.
func NewEngine(opts Options) *Engine {
	opts = normalize(opts)
	tt := NewTranspositionTable(opts.HashMB)
	eval := NewEvaluator(materialTableMB)
	e := &Engine{
		opts:     opts,
		searcher: NewSearcher(tt, eval),
		tt:       tt,
		eval:     eval,
	}
	e.applyPruning()
	return e
}

func normalize(opts Options) Options {
	if opts.HashMB < 1 {
		opts.HashMB = 1
	}
	if opts.NullMoveReduction < 0 {
		opts.NullMoveReduction = 0
	}
	if opts.AspirationDelta < 0 {
		opts.AspirationDelta = 0
	}
	if opts.StartDepth < 1 {
		opts.StartDepth = 1
	}
	return opts
}

func (e *Engine) applyPruning() {
	e.searcher.SetNullMoveReduction(e.opts.NullMoveReduction)
	e.searcher.SetFutilityMargin(e.opts.FutilityMargin)
}

// Options returns the current configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// SetOptions changes the configuration. A new hash size reallocates the
// transposition table, dropping its contents.
func (e *Engine) SetOptions(opts Options) {
	opts = normalize(opts)
	if opts.HashMB != e.opts.HashMB {
		e.tt = NewTranspositionTable(opts.HashMB)
		e.searcher.tt = e.tt
	}
	e.opts = opts
	e.applyPruning()
}

// SearchWithLimits runs iterative deepening with aspiration windows on pos
// and returns the result of the last completed iteration. pos is restored
// before returning.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) SearchResult {
	e.stopFlag.Store(false)
	e.timer.Init(limits, pos.SideToMove(), pos.Ply())

	// Determine maximum depth
	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}
	startDepth := e.opts.StartDepth
	if startDepth > maxDepth {
		startDepth = maxDepth
	}

	var best SearchResult
	var total SearchStats

	for depth := startDepth; depth <= maxDepth; depth++ {
		// Later iterations only start while the limits allow it
		if depth > startDepth && e.shouldStop(limits, total.Nodes) {
			break
		}

		result := e.aspirationSearch(pos, depth, best, depth > startDepth, &total)
		best = result
		best.Stats = total

		log.Debug().
			Int("plies", depth).
			Int("score", best.Score).
			Uint64("nodes", total.Nodes).
			Dur("elapsed", e.timer.Elapsed()).
			Str("pv", FormatPV(best.PV)).
			Msg("deepening-iteratively")

		// Report info
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    best.Score,
				Nodes:    total.Nodes,
				Time:     e.timer.Elapsed(),
				PV:       best.PV,
				HashFull: e.tt.HashFull(),
				Stats:    total,
			})
		}

		// Early termination: found mate
		if IsMateScore(best.Score) {
			break
		}
	}

	return best
}

// aspirationSearch searches one depth, starting from a window around the
// previous score and widening it until the score falls inside.
func (e *Engine) aspirationSearch(pos *board.Position, depth int, prev SearchResult, useWindow bool, total *SearchStats) SearchResult {
	delta := e.opts.AspirationDelta
	alpha, beta := -Infinity, Infinity
	if useWindow && delta > 0 {
		alpha = max(prev.Score-delta, -Infinity)
		beta = min(prev.Score+delta, Infinity)
	}

	for {
		result := e.searcher.FindBestMove(pos, depth, prev.PV, alpha, beta)
		total.add(result.Stats)

		switch {
		case result.Score <= alpha && alpha > -Infinity:
			total.FailLows++
			beta = (alpha + beta) / 2
			alpha = max(result.Score-delta, -Infinity)
			log.Debug().Int("plies", depth).Int("alpha", alpha).Int("beta", beta).Msg("aspiration-fail-low")
		case result.Score >= beta && beta < Infinity:
			total.FailHighs++
			beta = min(result.Score+delta, Infinity)
			log.Debug().Int("plies", depth).Int("alpha", alpha).Int("beta", beta).Msg("aspiration-fail-high")
		default:
			return result
		}
		delta += delta/4 + 5
	}
}

func (e *Engine) shouldStop(limits SearchLimits, nodes uint64) bool {
	if e.stopFlag.Load() {
		return true
	}
	if limits.Nodes > 0 && nodes >= limits.Nodes {
		return true
	}
	return e.timer.PastBudget()
}

// Stop keeps the current search from starting another iteration.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.eval.Clear()
	e.searcher.ClearOrderer()
}

// HashFull returns the permille of the transposition table in use.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.eval.Evaluate(pos)
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return perft(pos, depth)
}

func perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		pos.Apply(moves.Get(i))
		nodes += perft(pos, depth-1)
		pos.Undo()
	}

	return nodes
}

// PerftEntry is the leaf count below one root move.
type PerftEntry struct {
	Move  board.Move
	Nodes uint64
}

// PerftDivide counts leaves at depth below each root move, searching the
// root moves in parallel on copies of pos.
func (e *Engine) PerftDivide(ctx context.Context, pos *board.Position, depth int) ([]PerftEntry, error) {
	if depth < 1 {
		return nil, fmt.Errorf("perft divide: depth %d < 1", depth)
	}

	moves := pos.GenerateLegalMoves().Slice()
	entries := make([]PerftEntry, len(moves))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range moves {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := pos.Copy()
			p.Apply(m)
			entries[i] = PerftEntry{Move: m, Nodes: perft(p, depth-1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("perft divide: %w", err)
	}
	return entries, nil
}

// FormatPV joins a line of moves in coordinate notation.
func FormatPV(pv []board.Move) string {
	parts := make([]string, len(pv))
	for i, m := range pv {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		n := MateDistance(score)
		if n > 0 {
			return fmt.Sprintf("Mate in %d", n)
		}
		return fmt.Sprintf("Mated in %d", -n)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}

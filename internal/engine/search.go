package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// Default pruning parameters
const (
	DefaultNullMoveReduction = 2
	DefaultFutilityMargin    = BishopValue
)

// PVTable stores the principal variation as a triangular array: row ply
// holds the best line found from that ply.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

// update makes m followed by the child's line the PV at ply.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	childLen := pv.length[ply+1]
	if childLen < ply+1 {
		childLen = ply + 1
	}
	copy(pv.moves[ply][ply+1:childLen], pv.moves[ply+1][ply+1:childLen])
	pv.length[ply] = childLen
}

// line returns a copy of the PV from the root.
func (pv *PVTable) line() []board.Move {
	n := pv.length[0]
	out := make([]board.Move, n)
	copy(out, pv.moves[0][:n])
	return out
}

// SearchStats counts what happened during one search.
type SearchStats struct {
	Nodes           uint64
	QuiescenceNodes uint64
	NullMovesTried  uint64
	NullMoveCutoffs uint64
	BetaCutoffs     uint64
	FutilityPrunes  uint64
	TTHits          uint64
	FailLows        int // Aspiration re-searches, filled in by Engine
	FailHighs       int
}

// add accumulates o into s.
func (s *SearchStats) add(o SearchStats) {
	s.Nodes += o.Nodes
	s.QuiescenceNodes += o.QuiescenceNodes
	s.NullMovesTried += o.NullMovesTried
	s.NullMoveCutoffs += o.NullMoveCutoffs
	s.BetaCutoffs += o.BetaCutoffs
	s.FutilityPrunes += o.FutilityPrunes
	s.TTHits += o.TTHits
	s.FailLows += o.FailLows
	s.FailHighs += o.FailHighs
}

// SearchResult is the outcome of one fixed-depth search.
type SearchResult struct {
	Move  board.Move // First move of PV, NoMove if the root failed low or has no moves
	Score int        // From the side to move's point of view
	PV    []board.Move
	Stats SearchStats
}

// Searcher performs the alpha-beta search on a single position it mutates
// and restores.
type Searcher struct {
	pos     *board.Position
	tt      *TranspositionTable
	eval    *Evaluator
	orderer *MoveOrderer
	gen     board.MoveGenerator

	moveLists [MaxPly + 1]board.MoveList
	scores    [MaxPly + 1][256]int
	pv        PVTable

	previousPV []board.Move
	rootPly    int

	nullMoveReduction int
	futilityMargin    int

	stats SearchStats
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable, eval *Evaluator) *Searcher {
	return &Searcher{
		tt:                tt,
		eval:              eval,
		orderer:           NewMoveOrderer(),
		nullMoveReduction: DefaultNullMoveReduction,
		futilityMargin:    DefaultFutilityMargin,
	}
}

// SetNullMoveReduction sets R for null-move pruning.
func (s *Searcher) SetNullMoveReduction(r int) {
	s.nullMoveReduction = r
}

// SetFutilityMargin sets the margin of the depth-1 futility test.
func (s *Searcher) SetFutilityMargin(margin int) {
	s.futilityMargin = margin
}

// ClearOrderer clears the move orderer state.
func (s *Searcher) ClearOrderer() {
	s.orderer.Clear()
}

// FindBestMove searches pos to the given depth within (alpha, beta).
// previousPV orders the moves along the last iteration's line first.
// pos is restored before returning.
func (s *Searcher) FindBestMove(pos *board.Position, depth int, previousPV []board.Move, alpha, beta int) SearchResult {
	s.pos = pos
	s.rootPly = pos.Ply()
	s.previousPV = previousPV
	s.stats = SearchStats{}
	s.tt.NewSearch()

	score := s.DeepEval(depth, alpha, beta, false)

	result := SearchResult{
		Score: score,
		PV:    s.pv.line(),
		Stats: s.stats,
	}
	if len(result.PV) > 0 {
		result.Move = result.PV[0]
	}
	s.pos = nil
	return result
}

// ply returns the distance from the root.
func (s *Searcher) ply() int {
	return s.pos.Ply() - s.rootPly
}

// pvMove returns the previous iteration's move at ply, or NoMove.
func (s *Searcher) pvMove(ply int) board.Move {
	if ply < len(s.previousPV) {
		return s.previousPV[ply]
	}
	return board.NoMove
}

// DeepEval is the negamax alpha-beta search. It returns a score within
// [alpha, beta] from the side to move's point of view.
func (s *Searcher) DeepEval(depth, alpha, beta int, nullMoveAllowed bool) int {
	s.stats.Nodes++
	pos := s.pos
	ply := s.ply()
	s.pv.length[ply] = ply

	if ply > 0 && pos.IsRepetition() {
		return clamp(0, alpha, beta)
	}
	if ply >= MaxPly-1 {
		return clamp(s.eval.Evaluate(pos), alpha, beta)
	}

	if ply > 0 {
		if entry, ok := s.tt.Probe(pos.Key()); ok && int(entry.Depth) >= depth {
			s.stats.TTHits++
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return clamp(score, alpha, beta)
			case TTUpperBound:
				if score <= alpha {
					return alpha
				}
			case TTLowerBound:
				if score >= beta {
					return beta
				}
			}
		}
	}

	s.gen.Setup(pos)
	inCheck := s.gen.InCheck()
	enemyPawnAttacks := s.gen.OpponentPawnAttacks()
	moves := &s.moveLists[ply]
	s.gen.GenerateInto(moves, false)

	if moves.Len() == 0 {
		if inCheck {
			return clamp(-(MateScore - ply), alpha, beta)
		}
		return clamp(0, alpha, beta)
	}

	if depth <= 0 {
		return s.Quiescence(alpha, beta)
	}

	if depth == 1 && ply > 0 && !inCheck && s.eval.Evaluate(pos)+s.futilityMargin < alpha {
		s.stats.FutilityPrunes++
		return s.Quiescence(alpha, beta)
	}

	r := s.nullMoveReduction
	if nullMoveAllowed && !inCheck && r > 0 && depth >= r+1 {
		s.stats.NullMovesTried++
		pos.ApplyNullMove()
		score := -s.DeepEval(depth-1-r, -beta, -beta+1, false)
		pos.UndoNullMove()
		if score >= beta {
			s.stats.NullMoveCutoffs++
			return beta
		}
	}

	scores := s.scores[ply][:moves.Len()]
	s.orderer.ScoreMoves(moves, scores, pos.Ply(), s.pvMove(ply), enemyPawnAttacks)

	flag := TTUpperBound
	bestMove := board.NoMove
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)

		pos.Apply(m)
		score := -s.DeepEval(depth-1, -beta, -alpha, true)
		pos.Undo()

		if score >= beta {
			s.stats.BetaCutoffs++
			s.orderer.UpdateKillers(m, pos.Ply())
			s.tt.Store(pos.Key(), depth, AdjustScoreToTT(beta, ply), TTLowerBound, m)
			return beta
		}
		if score > alpha {
			alpha = score
			flag = TTExact
			bestMove = m
			s.pv.update(ply, m)
		}
	}

	s.tt.Store(pos.Key(), depth, AdjustScoreToTT(alpha, ply), flag, bestMove)
	return alpha
}

// Quiescence searches captures only until the position is quiet, letting
// the side to move stand pat on the static evaluation.
func (s *Searcher) Quiescence(alpha, beta int) int {
	s.stats.Nodes++
	s.stats.QuiescenceNodes++
	pos := s.pos
	ply := s.ply()
	s.pv.length[ply] = ply

	standPat := s.eval.Evaluate(pos)
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}
	if ply >= MaxPly-1 {
		return alpha
	}

	s.gen.Setup(pos)
	enemyPawnAttacks := s.gen.OpponentPawnAttacks()
	moves := &s.moveLists[ply]
	s.gen.GenerateInto(moves, true)

	scores := s.scores[ply][:moves.Len()]
	s.orderer.ScoreMoves(moves, scores, pos.Ply(), board.NoMove, enemyPawnAttacks)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		m := moves.Get(i)

		pos.Apply(m)
		score := -s.Quiescence(-beta, -alpha)
		pos.Undo()

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}

	return alpha
}

// IsMateScore reports whether score announces a forced mate.
func IsMateScore(score int) bool {
	return abs(score) > MateScore-MaxPly
}

// MateDistance returns the number of moves (not plies) to the mate announced
// by score, negative when the side to move is being mated.
func MateDistance(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score) / 2
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

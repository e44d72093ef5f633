package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities
const (
	PVMoveScore     = 10000000 // Move of the previous iteration's PV at this ply
	KillerBase      = 1000000  // Killer slot i scores (KillerSlots-i)*KillerBase
	CaptureVictim   = 1000     // Multiplier for the victim's value
	CaptureMover    = 100      // Multiplier for the moving piece's value
	PawnAttackMalus = -10      // Target square attacked by an enemy pawn
)

// KillerSlots is the number of killer moves kept per ply.
const KillerSlots = 3

// maxGamePly bounds the killer table, which is indexed by the position's
// absolute ply so that killers survive between iterations.
const maxGamePly = 1024

// MoveOrderer handles move ordering for the search.
type MoveOrderer struct {
	// Killer moves (quiet moves that caused beta cutoffs)
	killers [maxGamePly][KillerSlots]board.Move
}

// NewMoveOrderer creates a new move orderer.
func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets the move orderer for a new game.
func (mo *MoveOrderer) Clear() {
	for i := range mo.killers {
		mo.killers[i] = [KillerSlots]board.Move{}
	}
}

// ScoreMoves assigns ordering scores to moves into scores, which must be at
// least moves.Len() long. pvMove is NoMove when there is none.
func (mo *MoveOrderer) ScoreMoves(moves *board.MoveList, scores []int, gamePly int, pvMove board.Move, enemyPawnAttacks board.Bitboard) {
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(moves.Get(i), gamePly, pvMove, enemyPawnAttacks)
	}
}

// scoreMove returns the ordering score for a single move.
func (mo *MoveOrderer) scoreMove(m board.Move, gamePly int, pvMove board.Move, enemyPawnAttacks board.Bitboard) int {
	score := 0
	if pvMove != board.NoMove && m.SameSquares(pvMove) {
		score += PVMoveScore
	}
	score += mo.killerScore(m, gamePly)

	// Every move pays for the value of the piece it risks.
	score -= PieceValue(m.Piece().Type()) * CaptureMover
	if m.IsCapture() {
		score += PieceValue(m.Captured().Type()) * CaptureVictim
	}
	if m.IsPromotion() {
		score += PieceValue(m.Promotion().Type())
	}
	if enemyPawnAttacks.IsSet(m.To()) {
		score += PawnAttackMalus
	}
	return score
}

func (mo *MoveOrderer) killerScore(m board.Move, gamePly int) int {
	if gamePly < 0 || gamePly >= maxGamePly {
		return 0
	}
	for i, killer := range mo.killers[gamePly] {
		if killer == board.NoMove {
			break
		}
		if m.SameSquares(killer) {
			return (KillerSlots - i) * KillerBase
		}
	}
	return 0
}

// PickMove selects the best remaining move and moves it to position index.
// This allows lazy move sorting (only sort as much as needed).
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers adds a quiet move that caused a cutoff at the given ply,
// shifting the older killers down one slot.
func (mo *MoveOrderer) UpdateKillers(m board.Move, gamePly int) {
	if m.IsCapture() || gamePly < 0 || gamePly >= maxGamePly {
		return
	}

	slots := &mo.killers[gamePly]
	copy(slots[1:], slots[:KillerSlots-1])
	slots[0] = m
}

// Killers returns the killer moves recorded at the given ply, best first.
func (mo *MoveOrderer) Killers(gamePly int) [KillerSlots]board.Move {
	if gamePly < 0 || gamePly >= maxGamePly {
		return [KillerSlots]board.Move{}
	}
	return mo.killers[gamePly]
}

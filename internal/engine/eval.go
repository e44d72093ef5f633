// Package engine implements the evaluator and the alpha-beta search driven
// by iterative deepening.
package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 325
	BishopValue = 325
	RookValue   = 550
	QueenValue  = 1000
	KingValue   = 0
)

// Piece values array for quick lookup
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// PieceValue returns the material value of a piece type.
func PieceValue(pt board.PieceType) int {
	return pieceValues[pt]
}

const (
	bishopPairBonus    = 35
	bishopClosedWeight = -1 // per bishop, per pawn weighted 2 (own) and 1 (enemy)
	isolatedPawnMalus  = -20
	doubledRookBonus   = 30
	pawnShieldBonus    = 40
)

// Passed pawn bonus by relative rank.
var passedPawnBonus = [8]int{0, 22, 33, 44, 55, 77, 88, 0}

// rookFileBonus[own pawns on file][enemy pawns on file]
var rookFileBonus = [2][2]int{
	{25, 15},
	{5, -10},
}

// Piece-square tables from White's point of view, rank 1 first, so the
// index is the square itself. Black looks up the vertically mirrored square.
var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	10, 10, -10, -30, -30, -10, 10, 10,
	0, 10, 10, 20, 20, 10, 10, 0,
	0, 0, 20, 30, 30, 20, 0, 0,
	5, 5, 5, 10, 10, 5, 5, 5,
	10, 10, 10, 10, 10, 10, 10, 10,
	30, 30, 30, 30, 30, 30, 30, 30,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-20, -20, -10, -10, -10, -10, -20, -20,
	-10, -5, 0, 0, 0, 0, -5, -10,
	-10, 0, 20, 10, 10, 20, 0, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 0, 20, 10, 10, 20, 0, -10,
	-10, -5, 0, 0, 0, 0, -5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var bishopTable = [64]int{
	-20, -20, -20, 0, 0, -20, -20, -20,
	-10, 5, 0, 5, 5, 0, 5, -10,
	-5, 0, 5, 10, 10, 5, 0, -5,
	0, 5, 10, 20, 20, 10, 5, 0,
	0, 5, 10, 20, 20, 10, 5, 0,
	-5, 0, 5, 10, 10, 5, 0, -5,
	-10, -5, 0, 5, 5, 0, -5, -10,
	-20, -10, -5, 0, 0, -5, -10, -20,
}

var rookTable = [64]int{
	0, 0, 0, 20, 20, 0, 0, 0,
	0, 0, 0, 20, 20, 0, 0, 0,
	0, 0, 0, 20, 20, 0, 0, 0,
	0, 0, 0, 20, 20, 0, 0, 0,
	0, 0, 0, 20, 20, 0, 0, 0,
	0, 0, 0, 20, 20, 0, 0, 0,
	25, 25, 25, 25, 25, 25, 25, 25,
	0, 0, 0, 20, 20, 0, 0, 0,
}

var kingTable = [64]int{
	30, 20, -10, -30, -30, 0, 20, 30,
	10, 10, -80, -80, -80, -80, 10, 10,
	-80, -80, -80, -80, -80, -80, -80, -80,
	-80, -80, -80, -80, -80, -80, -80, -80,
	-80, -80, -80, -80, -80, -80, -80, -80,
	-80, -80, -80, -80, -80, -80, -80, -80,
	-80, -80, -80, -80, -80, -80, -80, -80,
	-80, -80, -80, -80, -80, -80, -80, -80,
}

// pieceSquareTables is indexed by piece type; queens have no table.
var pieceSquareTables = [6]*[64]int{
	board.Pawn:   &pawnTable,
	board.Knight: &knightTable,
	board.Bishop: &bishopTable,
	board.Rook:   &rookTable,
	board.King:   &kingTable,
}

// Evaluator scores positions statically. It is not safe for concurrent use
// because of its material cache.
type Evaluator struct {
	material *MaterialTable
}

// NewEvaluator creates an evaluator with a material cache of the given size in MB.
func NewEvaluator(materialMB int) *Evaluator {
	return &Evaluator{material: NewMaterialTable(materialMB)}
}

// Evaluate returns the score of pos in centipawns from the side to move's
// point of view.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	key := pos.MaterialKey()
	material, ok := e.material.Probe(key)
	if !ok {
		material = materialScore(key)
		e.material.Store(key, material)
	}

	score := material
	score += pieceSquareScore(pos)
	score += pawnStructure(pos, board.White) - pawnStructure(pos, board.Black)
	score += rookFiles(pos, board.White) - rookFiles(pos, board.Black)
	score += kingShield(pos, board.White) - kingShield(pos, board.Black)

	if pos.SideToMove() == board.Black {
		return -score
	}
	return score
}

// Clear empties the material cache.
func (e *Evaluator) Clear() {
	e.material.Clear()
}

// materialScore computes everything that depends on piece counts alone,
// from White's point of view: material, the bishop pair and the penalty for
// bishops in positions crowded with pawns.
func materialScore(key uint64) int {
	var counts [board.PieceCount]int
	score := 0
	for piece := board.WhitePawn; piece < board.NoPiece; piece++ {
		counts[piece] = board.MaterialCount(key, piece)
		value := counts[piece] * pieceValues[piece.Type()]
		if piece.Color() == board.White {
			score += value
		} else {
			score -= value
		}
	}

	wb, bb := counts[board.WhiteBishop], counts[board.BlackBishop]
	wp, bp := counts[board.WhitePawn], counts[board.BlackPawn]
	if wb >= 2 {
		score += bishopPairBonus
	}
	if bb >= 2 {
		score -= bishopPairBonus
	}
	score += bishopClosedWeight * wb * (wp*2 + bp)
	score -= bishopClosedWeight * bb * (bp*2 + wp)
	return score
}

func pieceSquareScore(pos *board.Position) int {
	score := 0
	for piece := board.WhitePawn; piece < board.NoPiece; piece++ {
		table := pieceSquareTables[piece.Type()]
		if table == nil {
			continue
		}
		list := pos.PieceList(piece)
		if piece.Color() == board.White {
			for _, sq := range list.Squares() {
				score += table[sq]
			}
		} else {
			for _, sq := range list.Squares() {
				score -= table[sq.Mirror()]
			}
		}
	}
	return score
}

// pawnStructure scores isolated and passed pawns of color c.
func pawnStructure(pos *board.Position, c board.Color) int {
	own := pos.PawnBitboard(c)
	enemy := pos.PawnBitboard(c.Other())
	score := 0
	for _, sq := range pos.PieceList(board.NewPiece(board.Pawn, c)).Squares() {
		if own&board.IsolatedMask(sq.File()) == 0 {
			score += isolatedPawnMalus
		}
		if enemy&board.PassedMask(c, sq) == 0 {
			score += passedPawnBonus[sq.RelativeRank(c)]
		}
	}
	return score
}

// rookFiles scores c's rooks by the pawns on their files, plus a bonus for
// every extra rook sharing a file.
func rookFiles(pos *board.Position, c board.Color) int {
	own := pos.PawnBitboard(c)
	enemy := pos.PawnBitboard(c.Other())
	var perFile [8]int
	score := 0
	for _, sq := range pos.PieceList(board.NewPiece(board.Rook, c)).Squares() {
		file := board.FileMask[sq.File()]
		score += rookFileBonus[b2i(own&file != 0)][b2i(enemy&file != 0)]
		perFile[sq.File()]++
	}
	for _, n := range perFile {
		if n > 1 {
			score += doubledRookBonus * (n - 1)
		}
	}
	return score
}

// kingShield rewards pawns next to a king that has gone to a wing.
func kingShield(pos *board.Position, c board.Color) int {
	king := pos.KingSquare(c)
	if king == board.NoSquare {
		return 0
	}
	if file := king.File(); file > 2 && file < 6 {
		return 0
	}
	return pawnShieldBonus * (pos.PawnBitboard(c) & board.KingAttacks(king)).PopCount()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

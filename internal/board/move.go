package board

import "fmt"

// Move packs everything needed to apply and undo a move into 32 bits:
//
//	bits  0-5   start square
//	bits  6-11  target square
//	bits 12-15  moved piece
//	bits 16-19  captured piece (NoPiece if none)
//	bits 20-23  promotion piece (NoPiece if none)
//	bit  24     castling (king move; the rook is implied)
//	bit  25     en passant capture
//	bit  26     double pawn push
type Move uint32

const (
	flagCastling   Move = 1 << 24
	flagEnPassant  Move = 1 << 25
	flagDoublePush Move = 1 << 26
)

// NoMove is the zero move. No real move has equal start and target squares,
// so it never collides with one.
const NoMove Move = 0

func packMove(from, to Square, piece, captured, promo Piece) Move {
	return Move(from) | Move(to)<<6 | Move(piece)<<12 | Move(captured)<<16 | Move(promo)<<20
}

// NewMove creates an ordinary move or capture.
func NewMove(from, to Square, piece, captured Piece) Move {
	return packMove(from, to, piece, captured, NoPiece)
}

// NewPromotion creates a pawn move to the last rank that becomes promo.
func NewPromotion(from, to Square, piece, captured, promo Piece) Move {
	return packMove(from, to, piece, captured, promo)
}

// NewEnPassant creates an en passant capture; captured is the enemy pawn.
func NewEnPassant(from, to Square, piece, captured Piece) Move {
	return packMove(from, to, piece, captured, NoPiece) | flagEnPassant
}

// NewCastling creates a castling move described by the king's step.
func NewCastling(from, to Square, king Piece) Move {
	return packMove(from, to, king, NoPiece, NoPiece) | flagCastling
}

// NewDoublePush creates a two-square pawn advance.
func NewDoublePush(from, to Square, pawn Piece) Move {
	return packMove(from, to, pawn, NoPiece, NoPiece) | flagDoublePush
}

func (m Move) From() Square {
	return Square(m & 0x3F)
}

func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Piece returns the piece that moves.
func (m Move) Piece() Piece {
	return Piece((m >> 12) & 0xF)
}

// Captured returns the captured piece or NoPiece.
func (m Move) Captured() Piece {
	return Piece((m >> 16) & 0xF)
}

// Promotion returns the promotion piece or NoPiece.
func (m Move) Promotion() Piece {
	return Piece((m >> 20) & 0xF)
}

func (m Move) IsCapture() bool {
	return m.Captured() != NoPiece
}

func (m Move) IsPromotion() bool {
	return m.Promotion() != NoPiece
}

func (m Move) IsCastling() bool {
	return m&flagCastling != 0
}

func (m Move) IsEnPassant() bool {
	return m&flagEnPassant != 0
}

func (m Move) IsDoublePush() bool {
	return m&flagDoublePush != 0
}

// SameSquares reports whether both moves share start and target. Killer and
// principal variation matching use it, so a promotion still matches a
// recorded move between the same squares.
func (m Move) SameSquares(other Move) bool {
	return m&0xFFF == other&0xFFF
}

// String returns coordinate notation: "e2e4", "e7e8q", or "0000" for NoMove.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("pnbrqk"[m.Promotion().Type()])
	}
	return s
}

// ParseMove finds the legal move of pos written as s in coordinate notation.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrMoveNotFound, s)
	}
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if m := moves.Get(i); m.String() == s {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q", ErrMoveNotFound, s)
}

// MoveList is a fixed-capacity move buffer that avoids allocation during
// search. 256 exceeds the largest legal move count of any position.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap exchanges two entries.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list, keeping its storage.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice aliasing the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

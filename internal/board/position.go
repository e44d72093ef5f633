package board

import (
	"fmt"
	"strings"
)

// CastlingRights is a 4-bit mask of the castling options still available.
type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle
	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// castlingRevoke maps a square to the rights lost when a piece leaves or is
// captured on it.
var castlingRevoke = [64]CastlingRights{
	A1: WhiteQueenSideCastle,
	H1: WhiteKingSideCastle,
	E1: WhiteKingSideCastle | WhiteQueenSideCastle,
	A8: BlackQueenSideCastle,
	H8: BlackKingSideCastle,
	E8: BlackKingSideCastle | BlackQueenSideCastle,
}

// Snapshot is the state Apply cannot recompute when undoing a move. The key
// fields hold the values from before the move, so the history also lists
// every ancestor position's key.
type Snapshot struct {
	Key           uint64
	MaterialKey   uint64
	Castling      CastlingRights
	EnPassant     Square
	HalfMoveClock int
	Move          Move // NoMove for a null move
}

// Position is a mutable chess position. The square array, the piece lists
// and the bitboards are three views of the same placement and are updated
// together. Key and material key are maintained incrementally.
type Position struct {
	squares    [64]Piece
	pieceLists [PieceCount]PieceList
	listIndex  [64]uint8 // position of each occupied square inside its piece list

	pieces      [2][6]Bitboard
	occupied    [2]Bitboard
	allOccupied Bitboard

	sideToMove Color
	castling   CastlingRights
	enPassant  Square

	key         uint64
	materialKey uint64

	history []Snapshot
	ply     int

	// Carried for FEN output only.
	halfMoveClock  int
	fullMoveNumber int
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

func newEmptyPosition() *Position {
	p := &Position{
		enPassant:      NoSquare,
		fullMoveNumber: 1,
		history:        make([]Snapshot, 0, 256),
	}
	for sq := range p.squares {
		p.squares[sq] = NoPiece
	}
	return p
}

// Copy returns an independent deep copy, history included.
func (p *Position) Copy() *Position {
	c := *p
	c.history = make([]Snapshot, len(p.history), max(cap(p.history), 256))
	copy(c.history, p.history)
	return &c
}

// PieceAt returns the piece on sq or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	return p.squares[sq]
}

func (p *Position) SideToMove() Color {
	return p.sideToMove
}

// Opponent is the side not to move.
func (p *Position) Opponent() Color {
	return p.sideToMove.Other()
}

func (p *Position) CastlingRights() CastlingRights {
	return p.castling
}

// EnPassant returns the en passant target square or NoSquare.
func (p *Position) EnPassant() Square {
	return p.enPassant
}

// Key returns the position key (placement and side to move).
func (p *Position) Key() uint64 {
	return p.key
}

// MaterialKey returns the packed piece counts.
func (p *Position) MaterialKey() uint64 {
	return p.materialKey
}

// Ply returns the number of moves, null moves included, applied since the
// position was constructed.
func (p *Position) Ply() int {
	return p.ply
}

// PieceList returns the squares holding piece. The list must not be modified.
func (p *Position) PieceList(piece Piece) *PieceList {
	return &p.pieceLists[piece]
}

// Pieces returns the bitboard of c's pieces of type pt.
func (p *Position) Pieces(c Color, pt PieceType) Bitboard {
	return p.pieces[c][pt]
}

// PawnBitboard returns c's pawns.
func (p *Position) PawnBitboard(c Color) Bitboard {
	return p.pieces[c][Pawn]
}

// MinorMajorBitboard returns all of c's pieces other than pawns, king included.
func (p *Position) MinorMajorBitboard(c Color) Bitboard {
	return p.occupied[c] &^ p.pieces[c][Pawn]
}

// Occupied returns every square holding a piece of color c.
func (p *Position) Occupied(c Color) Bitboard {
	return p.occupied[c]
}

// AllOccupied returns every occupied square.
func (p *Position) AllOccupied() Bitboard {
	return p.allOccupied
}

// KingSquare returns c's king square, or NoSquare on a board without one.
func (p *Position) KingSquare(c Color) Square {
	return p.pieces[c][King].LSB()
}

// HistoryLen returns the number of applied moves not yet undone.
func (p *Position) HistoryLen() int {
	return len(p.history)
}

// LastMove returns the most recently applied move, NoMove after a null move
// or on a fresh position.
func (p *Position) LastMove() Move {
	if len(p.history) == 0 {
		return NoMove
	}
	return p.history[len(p.history)-1].Move
}

// IsRepetition reports whether the current key equals the key of any
// position on the history stack.
func (p *Position) IsRepetition() bool {
	for i := len(p.history) - 1; i >= 0; i-- {
		if p.history[i].Key == p.key {
			return true
		}
	}
	return false
}

// addPiece puts piece on the empty square sq, updating every view and key.
func (p *Position) addPiece(piece Piece, sq Square) {
	list := &p.pieceLists[piece]
	if list.count == maxPieceCount {
		panic(invariantf("addPiece", "more than %d %v pieces on the board", maxPieceCount, piece))
	}
	list.squares[list.count] = sq
	p.listIndex[sq] = uint8(list.count)
	list.count++

	p.squares[sq] = piece
	bb := SquareBB(sq)
	c, pt := piece.Color(), piece.Type()
	p.pieces[c][pt] |= bb
	p.occupied[c] |= bb
	p.allOccupied |= bb

	p.key ^= zobristPiece[piece][sq]
	p.materialKey += materialUnit(piece)
}

// removePiece takes the piece off sq and returns it.
func (p *Position) removePiece(sq Square) Piece {
	piece := p.squares[sq]
	if piece == NoPiece {
		panic(invariantf("removePiece", "no piece on %v", sq))
	}
	list := &p.pieceLists[piece]
	idx := p.listIndex[sq]
	last := list.squares[list.count-1]
	list.squares[idx] = last
	p.listIndex[last] = idx
	list.count--

	p.squares[sq] = NoPiece
	bb := SquareBB(sq)
	c, pt := piece.Color(), piece.Type()
	p.pieces[c][pt] &^= bb
	p.occupied[c] &^= bb
	p.allOccupied &^= bb

	p.key ^= zobristPiece[piece][sq]
	p.materialKey -= materialUnit(piece)
	return piece
}

// movePiece relocates the piece on from to the empty square to.
func (p *Position) movePiece(from, to Square) {
	piece := p.squares[from]
	if piece == NoPiece {
		panic(invariantf("movePiece", "no piece on %v", from))
	}
	idx := p.listIndex[from]
	p.pieceLists[piece].squares[idx] = to
	p.listIndex[to] = idx

	p.squares[from] = NoPiece
	p.squares[to] = piece
	moveBB := SquareBB(from) | SquareBB(to)
	c, pt := piece.Color(), piece.Type()
	p.pieces[c][pt] ^= moveBB
	p.occupied[c] ^= moveBB
	p.allOccupied ^= moveBB

	p.key ^= zobristPiece[piece][from] ^ zobristPiece[piece][to]
}

// castlingRookSquares returns the rook's start and target for a castling
// king landing on kingTo.
func castlingRookSquares(kingTo Square) (Square, Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	case C8:
		return A8, D8
	}
	panic(invariantf("castling", "unrecognised castling target %v", kingTo))
}

// enPassantVictim returns the square of the pawn captured when a pawn of
// color us lands on the en passant target.
func enPassantVictim(target Square, us Color) Square {
	if us == White {
		return target - 8
	}
	return target + 8
}

// Apply plays m, which must come from the move generator for this position.
// Legality is not checked.
func (p *Position) Apply(m Move) {
	p.history = append(p.history, Snapshot{
		Key:           p.key,
		MaterialKey:   p.materialKey,
		Castling:      p.castling,
		EnPassant:     p.enPassant,
		HalfMoveClock: p.halfMoveClock,
		Move:          m,
	})

	from, to := m.From(), m.To()
	piece := m.Piece()
	us := piece.Color()

	if m.IsEnPassant() {
		p.removePiece(enPassantVictim(to, us))
	} else if m.IsCapture() {
		p.removePiece(to)
	}

	p.movePiece(from, to)

	if m.IsPromotion() {
		p.removePiece(to)
		p.addPiece(m.Promotion(), to)
	}

	if m.IsCastling() {
		rookFrom, rookTo := castlingRookSquares(to)
		p.movePiece(rookFrom, rookTo)
	}

	if piece.Type() == King {
		if us == White {
			p.castling &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.castling &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	p.castling &^= castlingRevoke[from] | castlingRevoke[to]

	if m.IsDoublePush() {
		p.enPassant = Square((int(from) + int(to)) / 2)
	} else {
		p.enPassant = NoSquare
	}

	if piece.Type() == Pawn || m.IsCapture() {
		p.halfMoveClock = 0
	} else {
		p.halfMoveClock++
	}
	if us == Black {
		p.fullMoveNumber++
	}

	p.sideToMove = p.sideToMove.Other()
	p.key ^= zobristSideToMove
	p.ply++
}

// Undo takes back the last move played with Apply.
func (p *Position) Undo() {
	s := p.popSnapshot("Undo")
	m := s.Move
	if m == NoMove {
		panic(invariantf("Undo", "top of history is a null move"))
	}

	p.sideToMove = p.sideToMove.Other()
	us := p.sideToMove
	from, to := m.From(), m.To()

	if m.IsCastling() {
		rookFrom, rookTo := castlingRookSquares(to)
		p.movePiece(rookTo, rookFrom)
	}

	if m.IsPromotion() {
		p.removePiece(to)
		p.addPiece(m.Piece(), to)
	}

	p.movePiece(to, from)

	if m.IsEnPassant() {
		p.addPiece(m.Captured(), enPassantVictim(to, us))
	} else if m.IsCapture() {
		p.addPiece(m.Captured(), to)
	}

	if us == Black {
		p.fullMoveNumber--
	}
	p.restore(s)
}

// ApplyNullMove passes the turn. Only null-move pruning uses it; no move is
// ever generated from the resulting position's check state.
func (p *Position) ApplyNullMove() {
	p.history = append(p.history, Snapshot{
		Key:           p.key,
		MaterialKey:   p.materialKey,
		Castling:      p.castling,
		EnPassant:     p.enPassant,
		HalfMoveClock: p.halfMoveClock,
		Move:          NoMove,
	})
	p.enPassant = NoSquare
	p.sideToMove = p.sideToMove.Other()
	p.key ^= zobristSideToMove
	p.ply++
}

// UndoNullMove takes back ApplyNullMove.
func (p *Position) UndoNullMove() {
	s := p.popSnapshot("UndoNullMove")
	if s.Move != NoMove {
		panic(invariantf("UndoNullMove", "top of history is %v, not a null move", s.Move))
	}
	p.sideToMove = p.sideToMove.Other()
	p.restore(s)
}

func (p *Position) popSnapshot(op string) Snapshot {
	n := len(p.history)
	if n == 0 {
		panic(invariantf(op, "history is empty"))
	}
	s := p.history[n-1]
	p.history = p.history[:n-1]
	return s
}

func (p *Position) restore(s Snapshot) {
	p.key = s.Key
	p.materialKey = s.MaterialKey
	p.castling = s.Castling
	p.enPassant = s.EnPassant
	p.halfMoveClock = s.HalfMoveClock
	p.ply--
}

// ComputeKey recomputes the position key from the square array.
func (p *Position) ComputeKey() uint64 {
	var key uint64
	for sq := A1; sq <= H8; sq++ {
		if piece := p.squares[sq]; piece != NoPiece {
			key ^= zobristPiece[piece][sq]
		}
	}
	if p.sideToMove == Black {
		key ^= zobristSideToMove
	}
	return key
}

// ComputeMaterialKey recomputes the material key from the square array.
func (p *Position) ComputeMaterialKey() uint64 {
	var key uint64
	for sq := A1; sq <= H8; sq++ {
		if piece := p.squares[sq]; piece != NoPiece {
			key += materialUnit(piece)
		}
	}
	return key
}

// Validate checks that the square array, piece lists, bitboards and both keys
// describe the same position.
func (p *Position) Validate() error {
	var pieces [2][6]Bitboard
	for sq := A1; sq <= H8; sq++ {
		piece := p.squares[sq]
		if piece == NoPiece {
			continue
		}
		pieces[piece.Color()][piece.Type()] |= SquareBB(sq)

		list := &p.pieceLists[piece]
		idx := int(p.listIndex[sq])
		if idx >= list.count || list.squares[idx] != sq {
			return fmt.Errorf("piece list of %v does not hold %v", piece, sq)
		}
	}
	for piece := 0; piece < PieceCount; piece++ {
		c, pt := Piece(piece).Color(), Piece(piece).Type()
		if n := pieces[c][pt].PopCount(); n != p.pieceLists[piece].count {
			return fmt.Errorf("piece list of %v has %d entries, board has %d", Piece(piece), p.pieceLists[piece].count, n)
		}
	}
	if pieces != p.pieces {
		return fmt.Errorf("piece bitboards disagree with squares")
	}
	for c := White; c <= Black; c++ {
		var occ Bitboard
		for pt := Pawn; pt <= King; pt++ {
			occ |= pieces[c][pt]
		}
		if occ != p.occupied[c] {
			return fmt.Errorf("%v occupancy disagrees with squares", c)
		}
	}
	if p.occupied[White]|p.occupied[Black] != p.allOccupied {
		return fmt.Errorf("total occupancy disagrees with squares")
	}
	if key := p.ComputeKey(); key != p.key {
		return fmt.Errorf("key %016x, recomputed %016x", p.key, key)
	}
	if key := p.ComputeMaterialKey(); key != p.materialKey {
		return fmt.Errorf("material key %012x, recomputed %012x", p.materialKey, key)
	}
	return nil
}

// String draws the board with rank 8 on top, followed by the state fields.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.squares[NewSquare(file, rank)]
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.sideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.castling)
	fmt.Fprintf(&sb, "En passant: %s\n", p.enPassant)
	fmt.Fprintf(&sb, "Key: %016x\n", p.key)
	fmt.Fprintf(&sb, "Material key: %012x\n", p.materialKey)
	return sb.String()
}

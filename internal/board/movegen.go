package board

// MoveGenerator produces the legal moves of one position. Setup traces checks
// and pins from the mover's king and builds the opponent attack map; GetMoves
// then emits only moves consistent with those masks, so no move is ever made
// and taken back to test legality.
//
// A generator keeps no state between Setup calls and can be reused for the
// whole search, provided Setup runs before each GetMoves and the position is
// not changed in between.
type MoveGenerator struct {
	pos      *Position
	us, them Color
	kingSq   Square

	friendly, enemy, occupied Bitboard

	inCheck       bool
	inDoubleCheck bool

	// checkMask holds the squares that capture the checker or block its ray.
	// Universe when not in check.
	checkMask Bitboard

	// pinned holds our pinned pieces; pinMasks[sq] is the ray from the king
	// through the pinned piece on sq up to and including the pinner.
	pinned   Bitboard
	pinMasks [64]Bitboard

	opponentAttacks     Bitboard
	opponentPawnAttacks Bitboard
}

// NewMoveGenerator returns a generator ready for Setup.
func NewMoveGenerator() *MoveGenerator {
	return &MoveGenerator{}
}

// Setup prepares the check, pin and attack masks for the side to move.
func (g *MoveGenerator) Setup(pos *Position) {
	g.pos = pos
	g.us = pos.sideToMove
	g.them = g.us.Other()
	g.kingSq = pos.KingSquare(g.us)
	g.friendly = pos.occupied[g.us]
	g.enemy = pos.occupied[g.them]
	g.occupied = pos.allOccupied

	g.inCheck = false
	g.inDoubleCheck = false
	g.checkMask = Empty
	g.pinned = Empty

	g.computeOpponentAttacks()
	g.computeChecksAndPins()

	if !g.inCheck {
		g.checkMask = Universe
	}
}

// InCheck reports whether the side to move is in check.
func (g *MoveGenerator) InCheck() bool {
	return g.inCheck
}

// InDoubleCheck reports whether two pieces give check at once.
func (g *MoveGenerator) InDoubleCheck() bool {
	return g.inDoubleCheck
}

// OpponentPawnAttacks returns every square an enemy pawn attacks.
func (g *MoveGenerator) OpponentPawnAttacks() Bitboard {
	return g.opponentPawnAttacks
}

// OpponentAttacks returns every square the opponent attacks, with sliders
// seeing through our king.
func (g *MoveGenerator) OpponentAttacks() Bitboard {
	return g.opponentAttacks
}

func (g *MoveGenerator) computeOpponentAttacks() {
	p := g.pos
	them := g.them
	occ := g.occupied &^ SquareBB(g.kingSq)

	pawns := p.pieces[them][Pawn]
	if them == White {
		g.opponentPawnAttacks = pawns.NorthEast() | pawns.NorthWest()
	} else {
		g.opponentPawnAttacks = pawns.SouthEast() | pawns.SouthWest()
	}
	attacks := g.opponentPawnAttacks

	knights := p.pieces[them][Knight]
	for knights != 0 {
		attacks |= knightAttacks[knights.PopLSB()]
	}
	diagonal := p.pieces[them][Bishop] | p.pieces[them][Queen]
	for diagonal != 0 {
		attacks |= BishopAttacks(diagonal.PopLSB(), occ)
	}
	orthogonal := p.pieces[them][Rook] | p.pieces[them][Queen]
	for orthogonal != 0 {
		attacks |= RookAttacks(orthogonal.PopLSB(), occ)
	}
	if k := p.pieces[them][King]; k != 0 {
		attacks |= kingAttacks[k.LSB()]
	}

	g.opponentAttacks = attacks
}

func (g *MoveGenerator) computeChecksAndPins() {
	p := g.pos
	king := g.kingSq
	if king == NoSquare {
		return
	}
	checkers := 0

	orthogonal := p.pieces[g.them][Rook] | p.pieces[g.them][Queen]
	diagonal := p.pieces[g.them][Bishop] | p.pieces[g.them][Queen]

	for dir := 0; dir < dirCount; dir++ {
		isDiagonal := dir >= DirNorthEast
		sliders := orthogonal
		if isDiagonal {
			sliders = diagonal
		}
		if rayMasks[dir][king]&sliders == 0 {
			continue
		}

		offset := directionOffsets[dir]
		blocker := NoSquare
		var ray Bitboard
		for n := 1; n <= numSquaresToEdge[king][dir]; n++ {
			sq := Square(int(king) + n*offset)
			ray |= SquareBB(sq)
			piece := p.squares[sq]
			if piece == NoPiece {
				continue
			}
			if piece.Color() == g.us {
				if blocker != NoSquare {
					break
				}
				blocker = sq
				continue
			}
			if sliders.IsSet(sq) {
				if blocker == NoSquare {
					g.checkMask |= ray
					checkers++
				} else {
					g.pinned |= SquareBB(blocker)
					g.pinMasks[blocker] = ray
				}
			}
			break
		}
	}

	if knights := knightAttacks[king] & p.pieces[g.them][Knight]; knights != 0 {
		g.checkMask |= knights
		checkers += knights.PopCount()
	}
	if pawns := pawnAttacks[g.us][king] & p.pieces[g.them][Pawn]; pawns != 0 {
		g.checkMask |= pawns
		checkers += pawns.PopCount()
	}

	g.inCheck = checkers > 0
	g.inDoubleCheck = checkers > 1
}

// pinMask returns the squares the piece on from may move to without
// exposing the king.
func (g *MoveGenerator) pinMask(from Square) Bitboard {
	if g.pinned.IsSet(from) {
		return g.pinMasks[from]
	}
	return Universe
}

// GetMoves returns the legal moves, or only captures and capturing
// promotions when onlyCaptures is set.
func (g *MoveGenerator) GetMoves(onlyCaptures bool) *MoveList {
	ml := NewMoveList()
	g.GenerateInto(ml, onlyCaptures)
	return ml
}

// GenerateInto clears ml and fills it like GetMoves. The search uses it with
// per-ply lists to avoid allocating.
func (g *MoveGenerator) GenerateInto(ml *MoveList, onlyCaptures bool) {
	ml.Clear()
	if g.kingSq == NoSquare {
		return
	}

	g.generateKingMoves(ml, onlyCaptures)
	if g.inDoubleCheck {
		return
	}
	if !onlyCaptures && !g.inCheck {
		g.generateCastlingMoves(ml)
	}

	targets := ^g.friendly & g.checkMask
	if onlyCaptures {
		targets &= g.enemy
	}

	g.generateSlidingMoves(ml, Bishop, targets)
	g.generateSlidingMoves(ml, Rook, targets)
	g.generateSlidingMoves(ml, Queen, targets)
	g.generateKnightMoves(ml, targets)
	g.generatePawnMoves(ml, onlyCaptures)
}

func (g *MoveGenerator) generateKingMoves(ml *MoveList, onlyCaptures bool) {
	king := NewPiece(King, g.us)
	targets := kingAttacks[g.kingSq] &^ g.friendly &^ g.opponentAttacks
	if onlyCaptures {
		targets &= g.enemy
	}
	for targets != 0 {
		to := targets.PopLSB()
		ml.Add(NewMove(g.kingSq, to, king, g.pos.squares[to]))
	}
}

// castlingPath lists, per wing, the squares that must be empty and the
// squares the king crosses, which must not be attacked.
var castlingPath = [2][2]struct {
	right          CastlingRights
	from, to       Square
	empty, transit Bitboard
}{
	White: {
		{WhiteKingSideCastle, E1, G1, SquareBB(F1) | SquareBB(G1), SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSideCastle, E1, C1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(C1) | SquareBB(D1)},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, SquareBB(F8) | SquareBB(G8), SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSideCastle, E8, C8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(C8) | SquareBB(D8)},
	},
}

func (g *MoveGenerator) generateCastlingMoves(ml *MoveList) {
	king := NewPiece(King, g.us)
	for _, path := range castlingPath[g.us] {
		if g.pos.castling&path.right == 0 || g.kingSq != path.from {
			continue
		}
		if g.occupied&path.empty != 0 || g.opponentAttacks&path.transit != 0 {
			continue
		}
		ml.Add(NewCastling(path.from, path.to, king))
	}
}

func (g *MoveGenerator) generateSlidingMoves(ml *MoveList, pt PieceType, targets Bitboard) {
	piece := NewPiece(pt, g.us)
	for _, from := range g.pos.pieceLists[piece].Squares() {
		var attacks Bitboard
		switch pt {
		case Bishop:
			attacks = BishopAttacks(from, g.occupied)
		case Rook:
			attacks = RookAttacks(from, g.occupied)
		default:
			attacks = QueenAttacks(from, g.occupied)
		}
		attacks &= targets & g.pinMask(from)
		for attacks != 0 {
			to := attacks.PopLSB()
			ml.Add(NewMove(from, to, piece, g.pos.squares[to]))
		}
	}
}

func (g *MoveGenerator) generateKnightMoves(ml *MoveList, targets Bitboard) {
	piece := NewPiece(Knight, g.us)
	for _, from := range g.pos.pieceLists[piece].Squares() {
		// A pinned knight can never stay on its pin ray.
		if g.pinned.IsSet(from) {
			continue
		}
		attacks := knightAttacks[from] & targets
		for attacks != 0 {
			to := attacks.PopLSB()
			ml.Add(NewMove(from, to, piece, g.pos.squares[to]))
		}
	}
}

func (g *MoveGenerator) generatePawnMoves(ml *MoveList, onlyCaptures bool) {
	p := g.pos
	pawn := NewPiece(Pawn, g.us)
	forward, startRank, lastRank := 8, 1, 7
	if g.us == Black {
		forward, startRank, lastRank = -8, 6, 0
	}

	for _, from := range p.pieceLists[pawn].Squares() {
		allowed := g.checkMask & g.pinMask(from)

		one := Square(int(from) + forward)
		if !onlyCaptures && p.squares[one] == NoPiece {
			if allowed.IsSet(one) {
				if one.Rank() == lastRank {
					addPromotions(ml, from, one, pawn, NoPiece, g.us)
				} else {
					ml.Add(NewMove(from, one, pawn, NoPiece))
				}
			}
			if from.Rank() == startRank {
				two := Square(int(one) + forward)
				if p.squares[two] == NoPiece && allowed.IsSet(two) {
					ml.Add(NewDoublePush(from, two, pawn))
				}
			}
		}

		captures := pawnAttacks[g.us][from] & g.enemy & allowed
		for captures != 0 {
			to := captures.PopLSB()
			if to.Rank() == lastRank {
				addPromotions(ml, from, to, pawn, p.squares[to], g.us)
			} else {
				ml.Add(NewMove(from, to, pawn, p.squares[to]))
			}
		}

		if ep := p.enPassant; ep != NoSquare && pawnAttacks[g.us][from].IsSet(ep) {
			if g.enPassantLegal(from, ep) {
				victim := enPassantVictim(ep, g.us)
				ml.Add(NewEnPassant(from, ep, pawn, p.squares[victim]))
			}
		}
	}
}

// enPassantLegal checks an en passant capture against the pin and check masks
// and against the rank discovery: both pawns leave the king's rank at once,
// which can open it to an enemy rook or queen.
func (g *MoveGenerator) enPassantLegal(from, ep Square) bool {
	victim := enPassantVictim(ep, g.us)
	if !g.pinMask(from).IsSet(ep) {
		return false
	}
	if g.inCheck && !g.checkMask.IsSet(ep) && !g.checkMask.IsSet(victim) {
		return false
	}
	if dir := Direction(g.kingSq, from); dir != 1 && dir != -1 {
		return true
	}
	occ := (g.occupied &^ SquareBB(from) &^ SquareBB(victim)) | SquareBB(ep)
	sliders := g.pos.pieces[g.them][Rook] | g.pos.pieces[g.them][Queen]
	return RookAttacks(g.kingSq, occ)&sliders&RankMask[from.Rank()] == 0
}

// addPromotions adds the four promotion choices, queen first.
func addPromotions(ml *MoveList, from, to Square, pawn, captured Piece, c Color) {
	ml.Add(NewPromotion(from, to, pawn, captured, NewPiece(Queen, c)))
	ml.Add(NewPromotion(from, to, pawn, captured, NewPiece(Rook, c)))
	ml.Add(NewPromotion(from, to, pawn, captured, NewPiece(Bishop, c)))
	ml.Add(NewPromotion(from, to, pawn, captured, NewPiece(Knight, c)))
}

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	var g MoveGenerator
	g.Setup(p)
	return g.GetMoves(false)
}

// GenerateCaptures generates the legal captures and capturing promotions.
func (p *Position) GenerateCaptures() *MoveList {
	var g MoveGenerator
	g.Setup(p)
	return g.GetMoves(true)
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	king := p.KingSquare(p.sideToMove)
	return king != NoSquare && p.IsSquareAttacked(king, p.sideToMove.Other())
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	return p.GenerateLegalMoves().Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the position is stalemate.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsInsufficientMaterial reports a bare-kings, lone-minor or same-colored
// bishops ending that neither side can win.
func (p *Position) IsInsufficientMaterial() bool {
	for c := White; c <= Black; c++ {
		if p.pieces[c][Pawn]|p.pieces[c][Rook]|p.pieces[c][Queen] != 0 {
			return false
		}
	}

	minors := p.MinorMajorBitboard(White) | p.MinorMajorBitboard(Black)
	minors &^= p.pieces[White][King] | p.pieces[Black][King]
	if minors.PopCount() <= 1 {
		return true
	}

	knights := p.pieces[White][Knight] | p.pieces[Black][Knight]
	if knights != 0 {
		return false
	}
	const darkSquares Bitboard = 0xAA55AA55AA55AA55
	bishops := p.pieces[White][Bishop] | p.pieces[Black][Bishop]
	return bishops&darkSquares == 0 || bishops&^darkSquares == 0
}

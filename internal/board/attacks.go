package board

// Ray directions. The first four are orthogonal (rook) rays, the last four
// diagonal (bishop) rays.
const (
	DirNorth = iota
	DirEast
	DirSouth
	DirWest
	DirNorthEast
	DirSouthEast
	DirSouthWest
	DirNorthWest
	dirCount
)

// directionOffsets is the square index step for each direction.
var directionOffsets = [dirCount]int{8, 1, -8, -1, 9, -7, -9, 7}

// Precomputed tables. Written only by init.
var (
	numSquaresToEdge [64][dirCount]int
	rayMasks         [dirCount][64]Bitboard

	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard

	// directionTable[from][to] is the unit step of the straight or diagonal
	// ray from one square to the other, or 0 when they share none.
	directionTable [64][64]int8

	isolatedMasks [8]Bitboard
	passedMasks   [2][64]Bitboard
)

func init() {
	initEdgeDistances()
	initRays()
	initKnightAttacks()
	initKingAttacks()
	initPawnAttacks()
	initDirectionTable()
	initPawnStructureMasks()
}

func initEdgeDistances() {
	for sq := A1; sq <= H8; sq++ {
		file, rank := sq.File(), sq.Rank()
		north := 7 - rank
		south := rank
		west := file
		east := 7 - file

		numSquaresToEdge[sq] = [dirCount]int{
			DirNorth:     north,
			DirEast:      east,
			DirSouth:     south,
			DirWest:      west,
			DirNorthEast: min(north, east),
			DirSouthEast: min(south, east),
			DirSouthWest: min(south, west),
			DirNorthWest: min(north, west),
		}
	}
}

func initRays() {
	for sq := A1; sq <= H8; sq++ {
		for dir := 0; dir < dirCount; dir++ {
			var ray Bitboard
			for n := 1; n <= numSquaresToEdge[sq][dir]; n++ {
				ray |= SquareBB(Square(int(sq) + n*directionOffsets[dir]))
			}
			rayMasks[dir][sq] = ray
		}
	}
}

func initKnightAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		var attacks Bitboard
		attacks |= (bb << 17) & NotFileA
		attacks |= (bb << 15) & NotFileH
		attacks |= (bb >> 17) & NotFileH
		attacks |= (bb >> 15) & NotFileA
		attacks |= (bb << 10) & NotFileAB
		attacks |= (bb << 6) & NotFileGH
		attacks |= (bb >> 10) & NotFileGH
		attacks |= (bb >> 6) & NotFileAB
		knightAttacks[sq] = attacks
	}
}

func initKingAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		kingAttacks[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()
	}
}

func initPawnAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = bb.NorthEast() | bb.NorthWest()
		pawnAttacks[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

func initDirectionTable() {
	for from := A1; from <= H8; from++ {
		for dir := 0; dir < dirCount; dir++ {
			step := directionOffsets[dir]
			for n := 1; n <= numSquaresToEdge[from][dir]; n++ {
				directionTable[from][int(from)+n*step] = int8(step)
			}
		}
	}
}

func initPawnStructureMasks() {
	for file := 0; file < 8; file++ {
		var adjacent Bitboard
		if file > 0 {
			adjacent |= FileMask[file-1]
		}
		if file < 7 {
			adjacent |= FileMask[file+1]
		}
		isolatedMasks[file] = adjacent
	}

	for sq := A1; sq <= H8; sq++ {
		files := FileMask[sq.File()] | isolatedMasks[sq.File()]
		var whiteAhead, blackAhead Bitboard
		for rank := sq.Rank() + 1; rank < 8; rank++ {
			whiteAhead |= RankMask[rank]
		}
		for rank := sq.Rank() - 1; rank >= 0; rank-- {
			blackAhead |= RankMask[rank]
		}
		passedMasks[White][sq] = files & whiteAhead
		passedMasks[Black][sq] = files & blackAhead
	}
}

// KnightAttacks returns the knight destinations from sq.
func KnightAttacks(sq Square) Bitboard {
	return knightAttacks[sq]
}

// KingAttacks returns the king destinations from sq.
func KingAttacks(sq Square) Bitboard {
	return kingAttacks[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	return pawnAttacks[c][sq]
}

// NumSquaresToEdge returns how many steps fit between sq and the board edge
// in direction dir.
func NumSquaresToEdge(sq Square, dir int) int {
	return numSquaresToEdge[sq][dir]
}

// DirectionOffset returns the square index step of direction dir.
func DirectionOffset(dir int) int {
	return directionOffsets[dir]
}

// Direction returns the unit step from one square toward the other along a
// shared rank, file or diagonal, or 0 if they are not aligned.
func Direction(from, to Square) int {
	return int(directionTable[from][to])
}

// IsolatedMask returns the files adjacent to file.
func IsolatedMask(file int) Bitboard {
	return isolatedMasks[file]
}

// PassedMask returns the squares ahead of a c pawn on sq, on its own and the
// adjacent files. No enemy pawn in the mask means the pawn is passed.
func PassedMask(c Color, sq Square) Bitboard {
	return passedMasks[c][sq]
}

// slidingAttacks walks the four rays starting at firstDir and cuts each at
// its first blocker, which stays in the set.
func slidingAttacks(sq Square, occupied Bitboard, firstDir int) Bitboard {
	var attacks Bitboard
	for dir := firstDir; dir < firstDir+4; dir++ {
		ray := rayMasks[dir][sq]
		blockers := ray & occupied
		if blockers != 0 {
			var first Square
			if directionOffsets[dir] > 0 {
				first = blockers.LSB()
			} else {
				first = blockers.MSB()
			}
			ray &^= rayMasks[dir][first]
		}
		attacks |= ray
	}
	return attacks
}

// RookAttacks returns rook attacks from sq given the occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	return slidingAttacks(sq, occupied, DirNorth)
}

// BishopAttacks returns bishop attacks from sq given the occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	return slidingAttacks(sq, occupied, DirNorthEast)
}

// QueenAttacks returns queen attacks from sq given the occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return RookAttacks(sq, occupied) | BishopAttacks(sq, occupied)
}

// AttackersByColor returns the pieces of color c attacking sq.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	return (pawnAttacks[c.Other()][sq] & p.pieces[c][Pawn]) |
		(knightAttacks[sq] & p.pieces[c][Knight]) |
		(kingAttacks[sq] & p.pieces[c][King]) |
		(BishopAttacks(sq, occupied) & (p.pieces[c][Bishop] | p.pieces[c][Queen])) |
		(RookAttacks(sq, occupied) & (p.pieces[c][Rook] | p.pieces[c][Queen]))
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.AttackersByColor(sq, by, p.allOccupied) != 0
}

package board

import (
	"encoding/binary"

	"lukechampine.com/frand"
)

// Position key constants: one per (piece, square) pair plus the side toggle.
// Castling rights and en passant are not hashed, so the key
// identifies piece placement and side to move only.
var (
	zobristPiece      [PieceCount][64]uint64
	zobristSideToMove uint64
)

func init() {
	initZobrist()
}

// zobristSeed fixes the ChaCha stream so keys are stable across runs.
var zobristSeed = []byte("chesscore zobrist keys, v1 seed!")

// nextKey draws a non-zero 64-bit key.
func nextKey(rng *frand.RNG) uint64 {
	for {
		if k := binary.LittleEndian.Uint64(rng.Bytes(8)); k != 0 {
			return k
		}
	}
}

func initZobrist() {
	rng := frand.NewCustom(zobristSeed, 1024, 12)

	for piece := 0; piece < PieceCount; piece++ {
		for sq := A1; sq <= H8; sq++ {
			zobristPiece[piece][sq] = nextKey(rng)
		}
	}
	zobristSideToMove = nextKey(rng)
}

// ZobristSideToMove returns the component XORed in while Black is to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}

// The material key packs a 4-bit count per piece code: nibble i holds the
// number of Piece(i) on the board.
const materialBits = 4

func materialUnit(piece Piece) uint64 {
	return 1 << (uint(piece) * materialBits)
}

// MaterialCount extracts the count of piece from a material key.
func MaterialCount(key uint64, piece Piece) int {
	return int(key>>(uint(piece)*materialBits)) & (1<<materialBits - 1)
}

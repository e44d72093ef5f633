package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string. The four board fields are required; the two
// clock fields are optional. Every failure wraps ErrInvalidFEN.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 fields, got %d", ErrInvalidFEN, len(parts))
	}

	pos := newEmptyPosition()

	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.sideToMove = White
	case "b":
		pos.sideToMove = Black
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, parts[1])
	}

	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, parts[3])
		}
		pos.enPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return nil, fmt.Errorf("%w: half-move clock %q", ErrInvalidFEN, parts[4])
		}
		pos.halfMoveClock = hmc
	}

	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil || fmn < 1 {
			return nil, fmt.Errorf("%w: full-move number %q", ErrInvalidFEN, parts[5])
		}
		pos.fullMoveNumber = fmn
	}

	for c := White; c <= Black; c++ {
		if n := pos.pieces[c][King].PopCount(); n != 1 {
			return nil, fmt.Errorf("%w: %v has %d kings", ErrInvalidFEN, c, n)
		}
	}
	pos.castling &= castlingFromPlacement(pos)

	if err := validateEnPassant(pos); err != nil {
		return nil, err
	}
	if them := pos.sideToMove.Other(); pos.IsSquareAttacked(pos.KingSquare(them), pos.sideToMove) {
		return nil, fmt.Errorf("%w: %v to move can capture the king", ErrInvalidFEN, pos.sideToMove)
	}

	if pos.sideToMove == Black {
		pos.key ^= zobristSideToMove
	}

	return pos, nil
}

// validateEnPassant checks that the en passant target follows a double push
// by the side not to move: the target is on the mover's sixth rank, the pawn
// that pushed stands behind it, and the squares it crossed are empty.
func validateEnPassant(pos *Position) error {
	ep := pos.enPassant
	if ep == NoSquare {
		return nil
	}
	us := pos.sideToMove
	if ep.RelativeRank(us) != 5 {
		return fmt.Errorf("%w: en passant square %v not on %v's sixth rank", ErrInvalidFEN, ep, us)
	}
	victim := enPassantVictim(ep, us)
	if pos.squares[victim] != NewPiece(Pawn, us.Other()) {
		return fmt.Errorf("%w: en passant square %v without a pawn on %v", ErrInvalidFEN, ep, victim)
	}
	start := Square(2*int(ep) - int(victim))
	if pos.squares[ep] != NoPiece || pos.squares[start] != NoPiece {
		return fmt.Errorf("%w: en passant square %v with occupied %v or %v", ErrInvalidFEN, ep, ep, start)
	}
	return nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("%w: too many squares in rank %d", ErrInvalidFEN, rank+1)
			}

			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}

			piece := PieceFromChar(byte(c))
			if piece == NoPiece {
				return fmt.Errorf("%w: piece character %q", ErrInvalidFEN, c)
			}
			if piece.Type() == Pawn && (rank == 0 || rank == 7) {
				return fmt.Errorf("%w: pawn on rank %d", ErrInvalidFEN, rank+1)
			}
			if pos.pieceLists[piece].count == maxPieceCount {
				return fmt.Errorf("%w: more than %d of %v", ErrInvalidFEN, maxPieceCount, piece)
			}
			pos.addPiece(piece, NewSquare(file, rank))
			file++
		}

		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d squares", ErrInvalidFEN, rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.castling = NoCastling
		return nil
	}

	for _, c := range castling {
		switch c {
		case 'K':
			pos.castling |= WhiteKingSideCastle
		case 'Q':
			pos.castling |= WhiteQueenSideCastle
		case 'k':
			pos.castling |= BlackKingSideCastle
		case 'q':
			pos.castling |= BlackQueenSideCastle
		default:
			return fmt.Errorf("%w: castling character %q", ErrInvalidFEN, c)
		}
	}

	return nil
}

// castlingFromPlacement returns the rights the piece placement still permits:
// king and rook on their original squares.
func castlingFromPlacement(pos *Position) CastlingRights {
	var cr CastlingRights
	if pos.squares[E1] == WhiteKing {
		if pos.squares[H1] == WhiteRook {
			cr |= WhiteKingSideCastle
		}
		if pos.squares[A1] == WhiteRook {
			cr |= WhiteQueenSideCastle
		}
	}
	if pos.squares[E8] == BlackKing {
		if pos.squares[H8] == BlackRook {
			cr |= BlackKingSideCastle
		}
		if pos.squares[A8] == BlackRook {
			cr |= BlackQueenSideCastle
		}
	}
	return cr
}

// ToFEN returns the six-field FEN of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.squares[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.sideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.castling.String())
	sb.WriteByte(' ')
	sb.WriteString(p.enPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.halfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.fullMoveNumber))

	return sb.String()
}

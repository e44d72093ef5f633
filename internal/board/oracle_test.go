package board

import (
	"testing"

	gm "github.com/dylhunn/dragontoothmg"
)

// oraclePerft counts leaves with an independent move generator.
func oraclePerft(b *gm.Board, depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return int64(len(moves))
	}
	var nodes int64
	for _, m := range moves {
		unapply := b.Apply(m)
		nodes += oraclePerft(b, depth-1)
		unapply()
	}
	return nodes
}

// TestDivideAgainstOracle compares the per-root-move subtree sizes with an
// independent generator, which pinpoints the root move of any discrepancy.
func TestDivideAgainstOracle(t *testing.T) {
	depth := 3
	if testing.Short() {
		depth = 2
	}

	for _, fen := range testFENs {
		t.Run(fen, func(t *testing.T) {
			pos, err := ParseFEN(fen)
			if err != nil {
				t.Fatalf("Failed to parse FEN: %v", err)
			}
			oracle := gm.ParseFen(pos.ToFEN())

			want := make(map[string]int64)
			for _, m := range oracle.GenerateLegalMoves() {
				unapply := oracle.Apply(m)
				want[m.String()] = oraclePerft(&oracle, depth-1)
				unapply()
			}

			moves := pos.GenerateLegalMoves()
			if moves.Len() != len(want) {
				t.Errorf("%d root moves, oracle has %d", moves.Len(), len(want))
			}
			for _, m := range moves.Slice() {
				pos.Apply(m)
				got := perft(pos, depth-1)
				pos.Undo()

				expected, ok := want[m.String()]
				if !ok {
					t.Errorf("%v generated but not legal for the oracle", m)
					continue
				}
				if got != expected {
					t.Errorf("%v: perft(%d) = %d, want %d", m, depth-1, got, expected)
				}
				delete(want, m.String())
			}
			for s := range want {
				t.Errorf("%s missing from generated moves", s)
			}
		})
	}
}

package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func TestScoreMoves(t *testing.T) {
	// White can take the queen with the knight or the pawn with the queen.
	pos := mustParseFEN(t, "4k3/8/3q4/8/4N3/8/p7/Q3K3 w - -")
	moves := pos.GenerateLegalMoves()
	scores := make([]int, moves.Len())

	mo := NewMoveOrderer()
	mo.ScoreMoves(moves, scores, pos.Ply(), board.NoMove, 0)

	score := func(s string) int {
		for i := 0; i < moves.Len(); i++ {
			if moves.Get(i).String() == s {
				return scores[i]
			}
		}
		t.Fatalf("%s not generated", s)
		return 0
	}

	nxq := score("e4d6")
	qxp := score("a1a2")
	quiet := score("e4c3")
	if !(nxq > qxp && qxp > quiet) {
		t.Errorf("NxQ %d, QxP %d, quiet %d: want descending", nxq, qxp, quiet)
	}
	if want := QueenValue*CaptureVictim - KnightValue*CaptureMover; nxq != want {
		t.Errorf("NxQ scored %d, want %d", nxq, want)
	}
}

func TestPVAndKillerOrdering(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	scores := make([]int, moves.Len())

	mo := NewMoveOrderer()
	find := func(s string) board.Move {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	for _, s := range []string{"a2a3", "b2b3", "c2c3", "d2d4"} {
		mo.UpdateKillers(find(s), pos.Ply())
	}
	killers := mo.Killers(pos.Ply())
	if killers[0].String() != "d2d4" || killers[1].String() != "c2c3" || killers[2].String() != "b2b3" {
		t.Errorf("killers = %v, want [d2d4 c2c3 b2b3]", killers)
	}

	mo.ScoreMoves(moves, scores, pos.Ply(), find("g1f3"), 0)

	var order []string
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		order = append(order, moves.Get(i).String())
	}
	want := []string{"g1f3", "d2d4", "c2c3", "b2b3"}
	for i, s := range want {
		if order[i] != s {
			t.Fatalf("order = %v, want prefix %v", order, want)
		}
	}
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			t.Fatalf("scores not descending after picking: %v", scores)
		}
	}
}

func TestKillersIgnoreCaptures(t *testing.T) {
	mo := NewMoveOrderer()
	capture := board.NewMove(board.E4, board.D5, board.WhitePawn, board.BlackPawn)
	mo.UpdateKillers(capture, 10)
	if mo.Killers(10)[0] != board.NoMove {
		t.Error("capture stored as a killer")
	}
	if mo.Killers(-1) != [KillerSlots]board.Move{} || mo.Killers(maxGamePly) != [KillerSlots]board.Move{} {
		t.Error("out of range plies should have no killers")
	}
}

func TestPawnAttackPenalty(t *testing.T) {
	pos := mustParseFEN(t, "4k3/8/8/2p5/8/8/2N5/4K3 w - -")
	moves := pos.GenerateLegalMoves()
	scores := make([]int, moves.Len())

	var g board.MoveGenerator
	g.Setup(pos)
	NewMoveOrderer().ScoreMoves(moves, scores, pos.Ply(), board.NoMove, g.OpponentPawnAttacks())

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		want := -pieceValues[m.Piece().Type()] * CaptureMover
		if m.To() == board.B4 || m.To() == board.D4 {
			want += PawnAttackMalus
		}
		if scores[i] != want {
			t.Errorf("%v scored %d, want %d", m, scores[i], want)
		}
	}
}

package uci

import (
	"bytes"
	"strings"
	"testing"

	"github.com/notnil/chess"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

func newTestUCI(store *storage.Storage) *UCI {
	opts := engine.DefaultOptions()
	opts.HashMB = 4
	return New(engine.NewEngine(opts), store, nil)
}

// run feeds the commands to u and returns everything it printed.
func run(t *testing.T, u *UCI, commands ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := u.Run(strings.NewReader(strings.Join(commands, "\n")+"\n"), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

// lineWithPrefix returns the last output line starting with prefix.
func lineWithPrefix(out, prefix string) string {
	found := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			found = line
		}
	}
	return found
}

func TestHandshake(t *testing.T) {
	out := run(t, newTestUCI(nil), "uci", "isready")

	for _, want := range []string{
		"id name chesscore",
		"option name Hash type spin default 4",
		"option name NullMoveReduction type spin default 2",
		"option name Persist type check default false",
		"uciok",
		"readyok",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestPositionMatchesReference(t *testing.T) {
	moves := []string{"e2e4", "c7c5", "g1f3", "d7d6", "d2d4", "c5d4", "f3d4", "g8f6", "b1c3", "a7a6", "f1e2", "e7e5", "e1g1"}

	game := chess.NewGame(chess.UseNotation(chess.UCINotation{}))
	for _, m := range moves {
		if err := game.MoveStr(m); err != nil {
			t.Fatalf("reference rejects %s: %v", m, err)
		}
	}

	out := run(t, newTestUCI(nil), "position startpos moves "+strings.Join(moves, " "), "d")
	got := strings.TrimPrefix(lineWithPrefix(out, "Fen: "), "Fen: ")
	if got == "" {
		t.Fatalf("no Fen line:\n%s", out)
	}

	// Placement, side to move and castling rights.
	gotFields := strings.Fields(got)[:3]
	wantFields := strings.Fields(game.FEN())[:3]
	if strings.Join(gotFields, " ") != strings.Join(wantFields, " ") {
		t.Errorf("position %v, reference %v", gotFields, wantFields)
	}
}

func TestInvalidMoveStopsReplay(t *testing.T) {
	out := run(t, newTestUCI(nil), "position startpos moves e2e4 e2e4 e7e5", "d")
	want := "Fen: rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq"
	if got := lineWithPrefix(out, "Fen: "); !strings.HasPrefix(got, want) {
		t.Errorf("got %q, want prefix %q", got, want)
	}
}

func TestInvalidFENKeepsPosition(t *testing.T) {
	out := run(t, newTestUCI(nil), "position startpos moves d2d4", "position fen not a fen", "d")
	want := "Fen: rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b"
	if got := lineWithPrefix(out, "Fen: "); !strings.HasPrefix(got, want) {
		t.Errorf("got %q, want prefix %q", got, want)
	}
}

func TestGoReturnsLegalMove(t *testing.T) {
	opening := []string{"e2e4", "e7e5", "g1f3"}
	out := run(t, newTestUCI(nil), "position startpos moves "+strings.Join(opening, " "), "go depth 3")

	best := strings.TrimPrefix(lineWithPrefix(out, "bestmove "), "bestmove ")
	if best == "" {
		t.Fatalf("no bestmove:\n%s", out)
	}

	game := chess.NewGame(chess.UseNotation(chess.UCINotation{}))
	for _, m := range opening {
		if err := game.MoveStr(m); err != nil {
			t.Fatalf("reference rejects %s: %v", m, err)
		}
	}
	legal := false
	for _, m := range game.ValidMoves() {
		if m.String() == best {
			legal = true
			break
		}
	}
	if !legal {
		t.Errorf("bestmove %s is not legal", best)
	}

	for _, want := range []string{"info depth 1 ", "info depth 3 ", "info string nodes "} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestGoReportsMate(t *testing.T) {
	out := run(t, newTestUCI(nil), "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "go depth 4")

	if got := lineWithPrefix(out, "bestmove "); got != "bestmove a1a8" {
		t.Errorf("got %q, want bestmove a1a8", got)
	}
	if !strings.Contains(out, "score mate 1 ") {
		t.Errorf("no mate score:\n%s", out)
	}
}

func TestGoWithoutMovesReportsNullMove(t *testing.T) {
	// Black is checkmated.
	out := run(t, newTestUCI(nil), "position fen R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", "go depth 2")
	if got := lineWithPrefix(out, "bestmove "); got != "bestmove 0000" {
		t.Errorf("got %q, want bestmove 0000", got)
	}
}

func TestGoDefaultsToMoveTime(t *testing.T) {
	u := newTestUCI(nil)
	out := run(t, u, "setoption name MoveTime value 20", "go")

	if u.settings.MoveTimeMS != 20 {
		t.Errorf("move time %d, want 20", u.settings.MoveTimeMS)
	}
	if lineWithPrefix(out, "bestmove ") == "" {
		t.Errorf("no bestmove:\n%s", out)
	}
}

func TestParseGoOptions(t *testing.T) {
	u := newTestUCI(nil)
	limits := u.parseGoOptions(strings.Fields("wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20 depth 9 nodes 12345"))

	if limits.Depth != 9 || limits.Nodes != 12345 || limits.MovesToGo != 20 {
		t.Errorf("depth %d nodes %d movestogo %d", limits.Depth, limits.Nodes, limits.MovesToGo)
	}
	if limits.Time[0].Milliseconds() != 60000 || limits.Time[1].Milliseconds() != 30000 {
		t.Errorf("clocks %v", limits.Time)
	}
	if limits.Inc[0].Milliseconds() != 1000 || limits.Inc[1].Milliseconds() != 500 {
		t.Errorf("increments %v", limits.Inc)
	}
	if limits.MoveTime != 0 {
		t.Errorf("move time %v set alongside clocks", limits.MoveTime)
	}

	if bare := u.parseGoOptions(nil); bare.MoveTime.Milliseconds() != int64(u.settings.MoveTimeMS) {
		t.Errorf("bare go move time %v, want %dms", bare.MoveTime, u.settings.MoveTimeMS)
	}
	if inf := u.parseGoOptions([]string{"infinite"}); !inf.Infinite || inf.MoveTime != 0 {
		t.Errorf("infinite limits %+v", inf)
	}
}

func TestSetOptionPersists(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	u := newTestUCI(store)
	run(t, u,
		"setoption name NullMoveReduction value 3",
		"setoption name Futility Margin value 10",
		"setoption name Hash value 8",
		"setoption name NoSuchOption value 1",
	)

	opts := u.engine.Options()
	if opts.NullMoveReduction != 3 || opts.HashMB != 8 {
		t.Errorf("engine options %+v", opts)
	}

	stored, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if stored.NullMoveReduction != 3 || stored.HashMB != 8 {
		t.Errorf("stored settings %+v", stored)
	}
	if stored.FutilityMargin != engine.DefaultFutilityMargin {
		t.Errorf("unknown option name changed futility margin to %d", stored.FutilityMargin)
	}
}

func TestAnalysisCommand(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	u := newTestUCI(store)
	out := run(t, u, "position startpos", "analysis")
	if !strings.Contains(out, "info string no stored analysis") {
		t.Errorf("empty store reported an analysis:\n%s", out)
	}

	out = run(t, u, "position startpos", "go depth 2", "analysis")
	line := lineWithPrefix(out, "info string analysis ")
	if line == "" {
		t.Fatalf("no stored analysis:\n%s", out)
	}
	best := strings.TrimPrefix(lineWithPrefix(out, "bestmove "), "bestmove ")
	if !strings.Contains(line, "bestmove "+best) {
		t.Errorf("analysis %q disagrees with bestmove %s", line, best)
	}

	n, err := store.CountAnalyses()
	if err != nil {
		t.Fatalf("CountAnalyses: %v", err)
	}
	if n != 1 {
		t.Errorf("%d analyses stored, want 1", n)
	}
}

func TestPersistOff(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	u := newTestUCI(store)
	out := run(t, u, "setoption name Persist value false", "go depth 1", "analysis")
	if !strings.Contains(out, "info string persistence is off") {
		t.Errorf("persistence still on:\n%s", out)
	}
	if n, _ := store.CountAnalyses(); n != 0 {
		t.Errorf("%d analyses stored with persistence off", n)
	}
}

func TestPerftCommand(t *testing.T) {
	out := run(t, newTestUCI(nil), "position startpos", "perft 3")

	if got := lineWithPrefix(out, "Nodes searched: "); got != "Nodes searched: 8902" {
		t.Errorf("got %q", got)
	}
	if got := lineWithPrefix(out, "e2e4: "); got != "e2e4: 600" {
		t.Errorf("got %q", got)
	}
}

func TestEvalCommand(t *testing.T) {
	out := run(t, newTestUCI(nil), "position startpos", "eval")
	if !strings.Contains(out, "info string eval cp 0") {
		t.Errorf("start position eval:\n%s", out)
	}
}

func TestSetOptionClampsToAnnouncedRange(t *testing.T) {
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	u := newTestUCI(store)
	run(t, u,
		"setoption name MoveTime value 0",
		"setoption name NullMoveReduction value 9",
		"setoption name Hash value 0",
		"setoption name FutilityMargin value -5",
	)

	if u.settings.MoveTimeMS != 10 {
		t.Errorf("move time %d, want 10", u.settings.MoveTimeMS)
	}
	opts := u.engine.Options()
	if opts.NullMoveReduction != 4 || opts.HashMB != 1 || opts.FutilityMargin != 0 {
		t.Errorf("engine options %+v", opts)
	}

	stored, err := store.LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if stored.MoveTimeMS != 10 || stored.NullMoveReduction != 4 || stored.HashMB != 1 {
		t.Errorf("stored settings %+v", stored)
	}

	// A bare go still runs on a budget.
	if limits := u.parseGoOptions(nil); limits.MoveTime.Milliseconds() != 10 {
		t.Errorf("bare go move time %v, want 10ms", limits.MoveTime)
	}
}

func TestClampSettings(t *testing.T) {
	s := &storage.Settings{HashMB: 0, MoveTimeMS: 0, NullMoveReduction: -1, FutilityMargin: 5000, AspirationDelta: 17}
	ClampSettings(s)

	want := storage.Settings{HashMB: 1, MoveTimeMS: 10, NullMoveReduction: 0, FutilityMargin: 2000, AspirationDelta: 17}
	if *s != want {
		t.Errorf("ClampSettings = %+v, want %+v", *s, want)
	}
}

func TestEvalWhileSearching(t *testing.T) {
	out := run(t, newTestUCI(nil), "position startpos", "go movetime 50", "eval")
	if !strings.Contains(out, "info string eval unavailable while searching") {
		t.Errorf("eval during search got no answer:\n%s", out)
	}
	if lineWithPrefix(out, "bestmove ") == "" {
		t.Errorf("no bestmove:\n%s", out)
	}
}

func TestUnplayableEnPassantFENRejected(t *testing.T) {
	out := run(t, newTestUCI(nil), "position fen 4k3/8/8/3P4/8/8/8/4K3 w - e6 0 1", "d", "go depth 2")

	if got := lineWithPrefix(out, "Fen: "); !strings.HasPrefix(got, "Fen: "+strings.Fields(board.StartFEN)[0]) {
		t.Errorf("rejected FEN replaced the position: %q", got)
	}
	if lineWithPrefix(out, "bestmove ") == "" {
		t.Errorf("no bestmove:\n%s", out)
	}
}

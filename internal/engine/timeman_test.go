package engine

import (
	"testing"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

func TestTimeManagerBudget(t *testing.T) {
	tests := []struct {
		name   string
		limits SearchLimits
		us     board.Color
		ply    int
		want   time.Duration
	}{
		{"movetime", SearchLimits{MoveTime: 300 * time.Millisecond}, board.White, 20, 300 * time.Millisecond},
		{"infinite", SearchLimits{Infinite: true, Time: [2]time.Duration{time.Minute, time.Minute}}, board.White, 20, 0},
		{"depth only", SearchLimits{Depth: 5}, board.Black, 20, 0},
		{"sudden death", SearchLimits{Time: [2]time.Duration{0, 60 * time.Second}}, board.Black, 40, 60 * time.Second / 40},
		{"moves to go with increment",
			SearchLimits{Time: [2]time.Duration{20 * time.Second, 0}, Inc: [2]time.Duration{time.Second, 0}, MovesToGo: 10},
			board.White, 40, 2*time.Second + 900*time.Millisecond},
		{"opening buffer", SearchLimits{Time: [2]time.Duration{50 * time.Second, 0}, MovesToGo: 10}, board.White, 2, 5 * time.Second * 85 / 100},
		{"capped near the flag", SearchLimits{Time: [2]time.Duration{100 * time.Millisecond, 0}, Inc: [2]time.Duration{time.Second, 0}}, board.White, 40, 40 * time.Millisecond},
		{"minimum", SearchLimits{Time: [2]time.Duration{5 * time.Millisecond, 0}}, board.White, 40, 10 * time.Millisecond},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tm := NewTimeManager()
			tm.Init(tc.limits, tc.us, tc.ply)
			if got := tm.Budget(); got != tc.want {
				t.Errorf("Budget() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTimeManagerPastBudget(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(SearchLimits{}, board.White, 0)
	if tm.PastBudget() {
		t.Error("no budget should never be past")
	}

	tm.Init(SearchLimits{MoveTime: time.Millisecond}, board.White, 0)
	time.Sleep(5 * time.Millisecond)
	if !tm.PastBudget() {
		t.Errorf("budget of 1ms not past after %v", tm.Elapsed())
	}
}

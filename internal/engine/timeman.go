package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// TimeManager decides how long a search may keep starting new iterations.
// An iteration in progress always runs to completion, so the budget is a
// target rather than a hard deadline.
type TimeManager struct {
	budget    time.Duration // 0 means no limit
	startTime time.Time     // When search started
}

// NewTimeManager creates a new time manager.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init initializes the time manager for a new search.
// ply is the current game ply (half-move number).
func (tm *TimeManager) Init(limits SearchLimits, us board.Color, ply int) {
	tm.startTime = time.Now()
	tm.budget = 0

	// Fixed move time mode
	if limits.MoveTime > 0 {
		tm.budget = limits.MoveTime
		return
	}

	// Infinite or depth-limited mode
	if limits.Infinite || limits.Time[us] == 0 {
		return
	}

	// Calculate time allocation based on remaining time and increment
	timeLeft := limits.Time[us]
	inc := limits.Inc[us]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: expect fewer moves remaining as the game goes on
		mtg = 50 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 50 {
			mtg = 50
		}
	}

	// Base time per move plus most of the increment
	budget := timeLeft/time.Duration(mtg) + inc*9/10

	// Slight reduction for very early moves (give some buffer)
	if ply < 8 {
		budget = budget * 85 / 100
	}

	// The last iteration overshoots the budget, so keep well clear of the flag.
	if limit := timeLeft * 4 / 10; budget > limit {
		budget = limit
	}

	// Minimum time
	if budget < 10*time.Millisecond {
		budget = 10 * time.Millisecond
	}
	tm.budget = budget
}

// Elapsed returns the time elapsed since search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.startTime)
}

// Budget returns the time after which no new iteration starts, 0 if none.
func (tm *TimeManager) Budget() time.Duration {
	return tm.budget
}

// PastBudget returns true if the budget is spent.
func (tm *TimeManager) PastBudget() bool {
	return tm.budget > 0 && tm.Elapsed() >= tm.budget
}

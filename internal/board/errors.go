package board

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFEN is wrapped by every ParseFEN failure.
	ErrInvalidFEN = errors.New("invalid FEN")

	// ErrMoveNotFound is returned when notation matches no legal move.
	ErrMoveNotFound = errors.New("move not found")
)

// InvariantError reports broken internal consistency: apply and undo no
// longer mirror each other, or a move was built wrongly. Position panics with
// it rather than continuing with a corrupted board.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("board invariant violated in %s: %s", e.Op, e.Msg)
}

func invariantf(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

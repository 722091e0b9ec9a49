package session

import (
	"fmt"

	"github.com/park285/chessboard-client/internal/board"
)

// Navigate returns the snapshot shown at offset: the live board for 0, otherwise
// History[Turn-offset]. It performs no I/O.
func Navigate(st *board.GameState, offset int) (board.Snapshot, error) {
	if st == nil {
		return board.Snapshot{}, fmt.Errorf("%w: no game state", ErrOffsetOutOfRange)
	}
	if offset < 0 || offset > st.Turn {
		return board.Snapshot{}, fmt.Errorf("%w: offset=%d turn=%d", ErrOffsetOutOfRange, offset, st.Turn)
	}
	if offset == 0 {
		return st.Board, nil
	}
	idx := st.Turn - offset
	if idx >= len(st.History) {
		return board.Snapshot{}, fmt.Errorf("%w: index=%d history=%d", ErrOffsetOutOfRange, idx, len(st.History))
	}
	return st.History[idx], nil
}

// StepBack moves one turn into the past. It returns offset unchanged and false
// when no older snapshot exists.
func StepBack(st *board.GameState, offset int) (int, bool) {
	if st == nil || offset < 0 || offset+1 > st.Turn {
		return offset, false
	}
	return offset + 1, true
}

// StepForward moves one turn toward the live board.
func StepForward(offset int) (int, bool) {
	if offset-1 < 0 {
		return offset, false
	}
	return offset - 1, true
}

// followLive keeps a history viewer on the same absolute snapshot when the turn
// advances underneath it. Offset 0 keeps following the live board.
func followLive(offset, oldTurn, newTurn int) int {
	if offset == 0 {
		return 0
	}
	next := offset + (newTurn - oldTurn)
	if next < 0 {
		return 0
	}
	if next > newTurn {
		return newTurn
	}
	return next
}

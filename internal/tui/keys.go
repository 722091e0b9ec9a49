package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/park285/chessboard-client/internal/board"
)

// Action is one user intent decoded from a key event.
type Action uint8

const (
	ActNone Action = iota
	ActCursorUp
	ActCursorDown
	ActCursorLeft
	ActCursorRight
	ActSelect
	ActHistoryBack
	ActHistoryForward
	ActPromote
	ActMode
	ActToggleAuto
	ActExport
	ActQuit
)

// Input is a decoded key. Promotion and Mode carry their argument.
type Input struct {
	Action    Action
	Promotion board.PromotionKind
	Mode      int
}

// Decode maps a key event to an Input. Unknown keys decode to ActNone.
func Decode(ev *tcell.EventKey) Input {
	switch ev.Key() {
	case tcell.KeyLeft:
		return Input{Action: ActHistoryBack}
	case tcell.KeyRight:
		return Input{Action: ActHistoryForward}
	case tcell.KeyUp:
		return Input{Action: ActCursorUp}
	case tcell.KeyDown:
		return Input{Action: ActCursorDown}
	case tcell.KeyEnter:
		return Input{Action: ActSelect}
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Input{Action: ActQuit}
	case tcell.KeyRune:
	default:
		return Input{}
	}

	switch r := ev.Rune(); r {
	case 'k':
		return Input{Action: ActCursorUp}
	case 'j':
		return Input{Action: ActCursorDown}
	case 'h':
		return Input{Action: ActCursorLeft}
	case 'l':
		return Input{Action: ActCursorRight}
	case ' ':
		return Input{Action: ActToggleAuto}
	case 'p':
		return Input{Action: ActExport}
	case 'q', 'r', 'b', 'n':
		kind, _ := board.ParsePromotion(string(r))
		return Input{Action: ActPromote, Promotion: kind}
	case '1', '2', '3':
		return Input{Action: ActMode, Mode: int(r - '1')}
	default:
		return Input{}
	}
}

// moveCursor shifts c by one screen step. Flipped boards invert both axes.
func moveCursor(c board.Coord, a Action, flip bool) board.Coord {
	dr, dc := 0, 0
	switch a {
	case ActCursorUp:
		dr = -1
	case ActCursorDown:
		dr = 1
	case ActCursorLeft:
		dc = -1
	case ActCursorRight:
		dc = 1
	}
	if flip {
		dr, dc = -dr, -dc
	}
	c.X = min(max(c.X+dr, 0), board.Size-1)
	c.Y = min(max(c.Y+dc, 0), board.Size-1)
	return c
}

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/enginefast"
)

// enginecheck probes a running engine: starting board, a play mode change and
// one pawn selection.
func main() {
	baseURL := os.Getenv("ENGINE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8005"
	}
	modeArg := "player:white"
	if len(os.Args) > 1 {
		modeArg = os.Args[1]
	}
	mode, err := board.ParseMode(modeArg)
	if err != nil {
		log.Fatalf("mode: %v", err)
	}

	client := enginefast.NewClient(baseURL, enginefast.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := client.ResetBoard(ctx)
	if err != nil {
		log.Fatalf("reset_board error: %v", err)
	}
	log.Printf("reset_board ok: placement=%s", snap.Placement())

	st, err := client.SetPlayMode(ctx, mode)
	if err != nil {
		log.Fatalf("set_play_mode error: %v", err)
	}
	log.Printf("set_play_mode ok: mode=%s turn=%d to_move=%s history=%d", mode, st.Turn, st.CurrentPlayer, len(st.History))

	at := board.Coord{X: 6, Y: 4}
	if mode.IsAIVsAI() {
		at = board.AutoPlayCoord
	} else if mode.Player == board.Black {
		at = board.Coord{X: 1, Y: 4}
	}
	st, err = client.Play(ctx, at)
	if err != nil {
		log.Fatalf("play %s error: %v", at, err)
	}
	log.Printf("play %s ok: turn=%d to_move=%s markers=%v", at, st.Turn, st.CurrentPlayer, st.Board.Markers())
	for _, row := range st.Board.Rows() {
		log.Println(row)
	}
}

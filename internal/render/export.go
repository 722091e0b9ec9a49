package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/park285/chessboard-client/internal/board"
)

// FileName is the export name for one displayed snapshot.
func FileName(sessionID string, turn, offset int) string {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		id = "board"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%03d-%d.png", id, turn, offset)
}

// Export renders snap into dir/name and returns the written path.
func Export(ctx context.Context, r Renderer, dir, name string, snap board.Snapshot, opts Options) (string, error) {
	data, err := r.RenderPNG(ctx, snap, opts)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create render dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

package viewpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/chessboard-client/internal/board"
	"github.com/park285/chessboard-client/internal/msgcat"
	"github.com/park285/chessboard-client/pkg/viewdto"
)

// Formatter turns feed views into status text using the message catalog.
// A nil catalog falls back to plain English.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) catalog() *msgcat.Catalog {
	if f == nil {
		return nil
	}
	return f.cat
}

// Mode describes the play mode, or "" when no mode is known yet.
func (f *Formatter) Mode(mode string) string {
	m, err := board.ParseMode(mode)
	if err != nil {
		return strings.TrimSpace(mode)
	}
	switch m.Kind {
	case board.ModePlayerVsAI:
		data := map[string]any{"Player": strings.ToLower(m.Player.SetupName()), "Opponent": string(m.Opponent)}
		return f.catalog().RenderOr("mode.player_vs_ai", data, "You play "+strings.ToLower(m.Player.SetupName()))
	case board.ModeAIVsAI:
		data := map[string]any{"EngineA": string(m.EngineA), "EngineB": string(m.EngineB), "DepthA": m.DepthA, "DepthB": m.DepthB}
		return f.catalog().RenderOr("mode.ai_vs_ai", data, fmt.Sprintf("%s vs %s", m.EngineA, m.EngineB))
	default:
		return ""
	}
}

func (f *Formatter) Phase(v viewdto.View) string {
	cat := f.catalog()
	switch v.Phase {
	case "awaiting_setup":
		return cat.RenderOr("phase.awaiting_setup", map[string]any{"Mode": f.Mode(v.Mode)}, "Setting up...")
	case "live":
		player := strings.ToLower(v.CurrentPlayer)
		return cat.RenderOr("phase.live", map[string]any{"Player": player, "Turn": v.Turn}, fmt.Sprintf("%s to move", player))
	case "viewing":
		return cat.RenderOr("phase.viewing", map[string]any{"Offset": v.Offset, "Turn": v.Turn}, fmt.Sprintf("History %d", v.Offset))
	default:
		return cat.RenderOr("phase.uninitialized", nil, "Starting...")
	}
}

// Status is the failure line; it is empty after a success.
func (f *Formatter) Status(s viewdto.Status) string {
	if s.Kind == "" || s.Kind == "none" {
		return ""
	}
	data := map[string]any{"Op": s.Op, "Message": s.Message}
	return f.catalog().RenderOr("status."+s.Kind, data, fmt.Sprintf("%s failed: %s", s.Op, s.Message))
}

// Hint picks the most relevant help line for the current view.
func (f *Formatter) Hint(v viewdto.View) string {
	cat := f.catalog()
	switch {
	case v.SetupInFlight:
		return cat.RenderOr("hint.setup_in_flight", nil, "waiting for the engine")
	case v.PromotionPending:
		return cat.RenderOr("hint.promotion", nil, "Promote: q r b n")
	case v.ActionInFlight:
		return cat.RenderOr("hint.action_in_flight", nil, "waiting for the engine")
	case strings.HasPrefix(v.Mode, "ai:") && v.AutoPlaying:
		return cat.RenderOr("hint.auto_running", nil, "space stop")
	case strings.HasPrefix(v.Mode, "ai:"):
		return cat.RenderOr("hint.auto_paused", nil, "space start")
	default:
		return cat.RenderOr("hint.keys", nil, "esc quit")
	}
}

// Lines is the full text block shown beside the board.
func (f *Formatter) Lines(v viewdto.View) []string {
	lines := make([]string, 0, 4)
	if m := f.Mode(v.Mode); m != "" {
		lines = append(lines, m)
	}
	phase := f.Phase(v)
	if v.RemoteSnapshot {
		phase += " " + f.catalog().RenderOr("hint.remote", nil, "(engine snapshot)")
	}
	lines = append(lines, phase)
	if s := f.Status(v.Status); s != "" {
		lines = append(lines, s)
	}
	lines = append(lines, f.Hint(v))
	return lines
}

// Text renders rows as a plain board diagram with rank and file labels.
func (f *Formatter) Text(v viewdto.View) string {
	if len(v.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, row := range v.Rows {
		fmt.Fprintf(&sb, "%d ", board.Size-i)
		for _, r := range row {
			sb.WriteRune(r)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h")
	return sb.String()
}

// Rejected describes an input the controller refused before contacting the engine.
func (f *Formatter) Rejected(op string, err error) string {
	if err == nil {
		return ""
	}
	return f.Status(viewdto.Status{Kind: "invalid_transition", Op: op, Message: err.Error()})
}

// Export reports the outcome of a PNG export.
func (f *Formatter) Export(path string, err error) string {
	if err != nil {
		return f.catalog().RenderOr("export.failed", map[string]any{"Error": err.Error()}, "export failed: "+err.Error())
	}
	return f.catalog().RenderOr("export.saved", map[string]any{"Path": path}, "saved "+path)
}

package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AIEngine names an engine-side AI implementation.
type AIEngine string

const (
	DummyAI          AIEngine = "DummyAi"
	BestPlayDepthOne AIEngine = "BestPlayDephtOneAi"
	MiniMaxAI        AIEngine = "MiniMaxAi"
)

var aiEngines = []AIEngine{DummyAI, BestPlayDepthOne, MiniMaxAI}

// ParseAIEngine accepts the wire names case-insensitively plus short aliases.
func ParseAIEngine(s string) (AIEngine, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "dummy", "random":
		return DummyAI, nil
	case "depthone", "depth1", "bestplay":
		return BestPlayDepthOne, nil
	case "minimax":
		return MiniMaxAI, nil
	}
	for _, e := range aiEngines {
		if strings.ToLower(string(e)) == v {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown ai engine %q", s)
}

// ModeKind discriminates PlayMode.
type ModeKind uint8

const (
	ModeUnset ModeKind = iota
	ModePlayerVsAI
	ModeAIVsAI
)

func (k ModeKind) String() string {
	switch k {
	case ModePlayerVsAI:
		return "PlayerVsAi"
	case ModeAIVsAI:
		return "AiVsAi"
	default:
		return "Unset"
	}
}

// PlayMode is the setup variant sent to the engine.
// PlayerVsAI uses Player (and optionally Opponent); AIVsAI uses the Engine/Depth pairs.
type PlayMode struct {
	Kind     ModeKind
	Player   Color
	Opponent AIEngine

	EngineA AIEngine
	EngineB AIEngine
	DepthA  int
	DepthB  int
}

var ErrModeUnset = errors.New("play mode not set")

func PlayerVsAI(player Color, opponent AIEngine) PlayMode {
	return PlayMode{Kind: ModePlayerVsAI, Player: player, Opponent: opponent}
}

func AIVsAI(a, b AIEngine, depthA, depthB int) PlayMode {
	return PlayMode{Kind: ModeAIVsAI, EngineA: a, EngineB: b, DepthA: depthA, DepthB: depthB}
}

func (m PlayMode) IsAIVsAI() bool { return m.Kind == ModeAIVsAI }

func (m PlayMode) Validate() error {
	switch m.Kind {
	case ModePlayerVsAI:
		if m.Player != White && m.Player != Black {
			return fmt.Errorf("player color required")
		}
		return nil
	case ModeAIVsAI:
		if m.EngineA == "" || m.EngineB == "" {
			return fmt.Errorf("both ai engines required")
		}
		if m.DepthA < 0 || m.DepthB < 0 {
			return fmt.Errorf("negative search depth")
		}
		return nil
	default:
		return ErrModeUnset
	}
}

// String is the config spelling understood by ParseMode.
func (m PlayMode) String() string {
	switch m.Kind {
	case ModePlayerVsAI:
		s := "player:" + strings.ToLower(m.Player.SetupName())
		if m.Opponent != "" {
			s += ":" + string(m.Opponent)
		}
		return s
	case ModeAIVsAI:
		return fmt.Sprintf("ai:%s:%s:%d:%d", m.EngineA, m.EngineB, m.DepthA, m.DepthB)
	default:
		return ""
	}
}

// ParseMode reads "player:<color>[:<engine>]" or "ai:<engineA>[:<engineB>[:<depthA>:<depthB>]]".
func ParseMode(s string) (PlayMode, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch strings.ToLower(parts[0]) {
	case "player", "pvai":
		if len(parts) < 2 || len(parts) > 3 {
			return PlayMode{}, fmt.Errorf("mode %q: want player:<color>[:<engine>]", s)
		}
		c, err := ParseColor(parts[1])
		if err != nil {
			return PlayMode{}, fmt.Errorf("mode %q: %w", s, err)
		}
		m := PlayerVsAI(c, "")
		if len(parts) == 3 {
			if m.Opponent, err = ParseAIEngine(parts[2]); err != nil {
				return PlayMode{}, fmt.Errorf("mode %q: %w", s, err)
			}
		}
		return m, nil
	case "ai", "aivsai":
		if len(parts) != 2 && len(parts) != 3 && len(parts) != 5 {
			return PlayMode{}, fmt.Errorf("mode %q: want ai:<engineA>[:<engineB>[:<depthA>:<depthB>]]", s)
		}
		a, err := ParseAIEngine(parts[1])
		if err != nil {
			return PlayMode{}, fmt.Errorf("mode %q: %w", s, err)
		}
		b := a
		if len(parts) >= 3 {
			if b, err = ParseAIEngine(parts[2]); err != nil {
				return PlayMode{}, fmt.Errorf("mode %q: %w", s, err)
			}
		}
		m := AIVsAI(a, b, 0, 0)
		if len(parts) == 5 {
			if m.DepthA, err = strconv.Atoi(parts[3]); err != nil {
				return PlayMode{}, fmt.Errorf("mode %q: depth: %w", s, err)
			}
			if m.DepthB, err = strconv.Atoi(parts[4]); err != nil {
				return PlayMode{}, fmt.Errorf("mode %q: depth: %w", s, err)
			}
		}
		return m, m.Validate()
	default:
		return PlayMode{}, fmt.Errorf("unknown mode %q", s)
	}
}

// MarshalJSON encodes the externally tagged variant:
//
//	{"PlayerVsAi":"White"}
//	{"PlayerVsAi":["White","MiniMaxAi"]}
//	{"AiVsAi":["MiniMaxAi","DummyAi",3,1]}
func (m PlayMode) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case ModePlayerVsAI:
		if m.Opponent == "" {
			return json.Marshal(map[string]string{"PlayerVsAi": m.Player.SetupName()})
		}
		return json.Marshal(map[string][]any{"PlayerVsAi": {m.Player.SetupName(), m.Opponent}})
	case ModeAIVsAI:
		return json.Marshal(map[string][]any{"AiVsAi": {m.EngineA, m.EngineB, m.DepthA, m.DepthB}})
	default:
		return nil, ErrModeUnset
	}
}

func (m *PlayMode) UnmarshalJSON(b []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(b, &tagged); err != nil {
		return fmt.Errorf("play mode: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("play mode: want exactly one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "PlayerVsAi":
			return m.decodePlayerVsAI(raw)
		case "AiVsAi":
			return m.decodeAIVsAI(raw)
		default:
			return fmt.Errorf("play mode: unknown variant %q", tag)
		}
	}
	return nil
}

func (m *PlayMode) decodePlayerVsAI(raw json.RawMessage) error {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		c, err := ParseColor(single)
		if err != nil {
			return err
		}
		*m = PlayerVsAI(c, "")
		return nil
	}
	var pair []string
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return fmt.Errorf("play mode: PlayerVsAi wants color or [color, engine]")
	}
	c, err := ParseColor(pair[0])
	if err != nil {
		return err
	}
	*m = PlayerVsAI(c, AIEngine(pair[1]))
	return nil
}

func (m *PlayMode) decodeAIVsAI(raw json.RawMessage) error {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		*m = AIVsAI(AIEngine(single), AIEngine(single), 0, 0)
		return nil
	}
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) != 4 {
		return fmt.Errorf("play mode: AiVsAi wants [engineA, engineB, depthA, depthB]")
	}
	var out PlayMode
	out.Kind = ModeAIVsAI
	for i, dst := range []any{&out.EngineA, &out.EngineB, &out.DepthA, &out.DepthB} {
		if err := json.Unmarshal(tuple[i], dst); err != nil {
			return fmt.Errorf("play mode: AiVsAi[%d]: %w", i, err)
		}
	}
	*m = out
	return nil
}

// SetupRequest is the body of POST /api/set_play_mode.
type SetupRequest struct {
	Setup PlayMode `json:"Setup"`
}

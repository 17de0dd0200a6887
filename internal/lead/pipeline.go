// AngelaMos | 2026
// pipeline.go

package lead

import (
	"fmt"

	"github.com/carterperez-dev/crm-backend/internal/config"
	"github.com/carterperez-dev/crm-backend/internal/core"
)

type TransitionKind string

const (
	KindAdvance   TransitionKind = "advance"
	KindSkip      TransitionKind = "skip"
	KindLost      TransitionKind = "lost"
	KindConverted TransitionKind = "converted"
)

type Stage struct {
	Key       string
	Name      string
	Color     string
	SortOrder int
	Terminal  bool
}

// Pipeline is the configured stage ordering. Open stages are totally
// ordered; the converted and lost stages are terminal.
type Pipeline struct {
	stages              []Stage
	index               map[string]int
	openOrder           map[string]int
	converted           string
	lost                string
	lastBeforeConverted string
	allowConvertFromAny bool
}

func NewPipeline(cfg config.PipelineConfig) (*Pipeline, error) {
	p := &Pipeline{
		index:               make(map[string]int, len(cfg.Stages)),
		openOrder:           make(map[string]int, len(cfg.Stages)),
		converted:           cfg.ConvertedStage,
		lost:                cfg.LostStage,
		allowConvertFromAny: cfg.AllowConvertFromAny,
	}

	for i, sc := range cfg.Stages {
		if _, dup := p.index[sc.Key]; dup {
			return nil, fmt.Errorf("duplicate stage %q", sc.Key)
		}

		terminal := sc.Key == cfg.ConvertedStage || sc.Key == cfg.LostStage
		p.index[sc.Key] = i
		p.stages = append(p.stages, Stage{
			Key:       sc.Key,
			Name:      sc.Name,
			Color:     sc.Color,
			SortOrder: i + 1,
			Terminal:  terminal,
		})

		if terminal {
			continue
		}

		p.openOrder[sc.Key] = len(p.openOrder)
		if _, seen := p.index[cfg.ConvertedStage]; !seen {
			p.lastBeforeConverted = sc.Key
		}
	}

	if _, ok := p.index[p.converted]; !ok {
		return nil, fmt.Errorf("converted stage %q is not configured", p.converted)
	}
	if _, ok := p.index[p.lost]; !ok {
		return nil, fmt.Errorf("lost stage %q is not configured", p.lost)
	}
	if len(p.openOrder) == 0 || p.lastBeforeConverted == "" {
		return nil, fmt.Errorf("pipeline needs an open stage before %q", p.converted)
	}

	return p, nil
}

// Initial is the first open stage.
func (p *Pipeline) Initial() string {
	for _, st := range p.stages {
		if !st.Terminal {
			return st.Key
		}
	}
	return ""
}

func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

func (p *Pipeline) Stage(key string) (Stage, bool) {
	i, ok := p.index[key]
	if !ok {
		return Stage{}, false
	}
	return p.stages[i], true
}

func (p *Pipeline) IsTerminal(key string) bool {
	return key == p.converted || key == p.lost
}

func (p *Pipeline) ConvertedStage() string { return p.converted }

func (p *Pipeline) LostStage() string { return p.lost }

// Check classifies the move from -> to. Terminal stages accept nothing;
// open stages accept forward moves, lost, and converted from the stage just
// before it (or from any open stage when so configured).
func (p *Pipeline) Check(from, to string) (TransitionKind, error) {
	if _, ok := p.index[to]; !ok {
		return "", core.InvalidField("to_status", fmt.Sprintf("unknown stage %q", to))
	}
	if _, ok := p.index[from]; !ok {
		return "", fmt.Errorf("lead is in unknown stage %q: %w", from, core.ErrInvalidTransition)
	}

	if p.IsTerminal(from) {
		return "", core.InvalidTransitionError(from, to)
	}

	switch to {
	case p.lost:
		return KindLost, nil
	case p.converted:
		if p.allowConvertFromAny || from == p.lastBeforeConverted {
			return KindConverted, nil
		}
		return "", core.InvalidTransitionError(from, to)
	}

	fromPos, toPos := p.openOrder[from], p.openOrder[to]
	switch {
	case toPos == fromPos+1:
		return KindAdvance, nil
	case toPos > fromPos+1:
		return KindSkip, nil
	}

	return "", core.InvalidTransitionError(from, to)
}

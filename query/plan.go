package query

import (
	"context"

	"github.com/dialog-db/dialog/dialogerr"
)

// plan greedily orders premises cheapest-next: at each step it picks
// the Ready premise with the lowest Cost given everything bound so
// far, then adds that premise's own Variables to the bound set before
// choosing the next one (spec.md §4.7's query planning step).
func plan(premises []Premise, initialBound map[Variable]bool) ([]Premise, error) {
	bound := make(map[Variable]bool, len(initialBound))
	for v := range initialBound {
		bound[v] = true
	}

	remaining := append([]Premise(nil), premises...)
	ordered := make([]Premise, 0, len(premises))

	for len(remaining) > 0 {
		bestIdx := -1
		bestCost := 0
		for i, p := range remaining {
			if !p.Ready(bound) {
				continue
			}
			cost := p.Cost(bound)
			if bestIdx == -1 || cost < bestCost {
				bestIdx = i
				bestCost = cost
			}
		}
		if bestIdx == -1 {
			return nil, stuckError(remaining, bound)
		}

		chosen := remaining[bestIdx]
		ordered = append(ordered, chosen)
		for _, v := range chosen.Variables() {
			bound[v] = true
		}
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return ordered, nil
}

// stuckError reports why the planner could not find a next premise:
// an unbound variable some remaining premise needs, or a premise with
// no derivable slot at all.
func stuckError(remaining []Premise, bound map[Variable]bool) error {
	for _, p := range remaining {
		for _, v := range p.Variables() {
			if !bound[v] {
				return dialogerr.UnboundVariable(string(v))
			}
		}
	}
	return dialogerr.UnconstrainedSelector("no premise order binds the remaining variables")
}

// evaluate plans premises against frame's already-bound variables, then
// streams frame through each premise in planned order, fanning out
// whenever a premise produces more than one candidate binding.
func evaluate(ctx context.Context, store *Store, premises []Premise, frame MatchFrame) ([]MatchFrame, error) {
	if len(premises) == 0 {
		return []MatchFrame{frame.Clone()}, nil
	}

	ordered, err := plan(premises, boundVariables(frame))
	if err != nil {
		return nil, err
	}

	frames := []MatchFrame{frame}
	for _, p := range ordered {
		var next []MatchFrame
		for _, f := range frames {
			results, err := p.Stream(ctx, store, f)
			if err != nil {
				return nil, err
			}
			next = append(next, results...)
		}
		frames = next
		if len(frames) == 0 {
			break
		}
	}
	return frames, nil
}

func boundVariables(frame MatchFrame) map[Variable]bool {
	out := make(map[Variable]bool, len(frame))
	for v := range frame {
		out[v] = true
	}
	return out
}

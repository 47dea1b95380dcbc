package query

import "context"

// Negation succeeds only if its inner Query produces no matches for
// the current frame; it never binds a variable (spec.md §4.6's "Not"
// premise). Every variable the inner query reads must already be
// bound by the time Negation runs — enforced by the planner treating
// Negation's Ready as requiring all of Inner's variables.
type Negation struct {
	Inner Query
}

func (n Negation) Variables() []Variable {
	seen := make(map[Variable]bool)
	var vars []Variable
	for _, p := range n.Inner.Premises {
		for _, v := range p.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func (n Negation) Ready(bound map[Variable]bool) bool {
	for _, v := range n.Variables() {
		if !bound[v] {
			return false
		}
	}
	return true
}

func (n Negation) Cost(map[Variable]bool) int {
	return 1
}

func (n Negation) Stream(ctx context.Context, store *Store, frame MatchFrame) ([]MatchFrame, error) {
	matches, err := evaluate(ctx, store, n.Inner.Premises, frame)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return nil, nil
	}
	return []MatchFrame{frame.Clone()}, nil
}

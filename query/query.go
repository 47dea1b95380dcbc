package query

import "context"

// Query is a conjunction of premises planned and evaluated together
// (spec.md §4.6/§4.7).
type Query struct {
	Premises []Premise
}

// Evaluate plans and streams q's premises starting from an empty match
// frame, returning every binding that satisfies all of them.
func Evaluate(ctx context.Context, store *Store, q Query) ([]MatchFrame, error) {
	return evaluate(ctx, store, q.Premises, MatchFrame{})
}

// Select behaves like Evaluate but projects each resulting frame down
// to only the requested variables, dropping any intermediate bindings
// the caller doesn't care about.
func Select(ctx context.Context, store *Store, q Query, project []Variable) ([]MatchFrame, error) {
	frames, err := Evaluate(ctx, store, q)
	if err != nil {
		return nil, err
	}
	out := make([]MatchFrame, 0, len(frames))
	for _, f := range frames {
		projected := make(MatchFrame, len(project))
		for _, v := range project {
			if b, ok := f[v]; ok {
				projected[v] = b
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

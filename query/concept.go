package query

import "context"

// ConceptAttribute pairs one attribute name with the value term a
// Concept premise binds it to on the shared entity.
type ConceptAttribute struct {
	Attribute AttributeTerm
	Value     ValueTerm
}

// ConceptPremise matches several attributes of one entity at once,
// compiling down to a FactPremise per attribute over a shared Entity
// variable (spec.md §4.6's "Concept" premise kind; original's
// ConceptSelector in dialog-query/src/predicate/fact.rs).
type ConceptPremise struct {
	Entity     EntityTerm
	Attributes []ConceptAttribute
}

// compile expands the concept into its constituent fact premises.
func (p ConceptPremise) compile() []Premise {
	out := make([]Premise, 0, len(p.Attributes))
	for _, attr := range p.Attributes {
		out = append(out, FactPremise{Entity: p.Entity, Attribute: attr.Attribute, Value: attr.Value})
	}
	return out
}

func (p ConceptPremise) Variables() []Variable {
	return And{Premises: p.compile()}.Variables()
}

func (p ConceptPremise) Ready(bound map[Variable]bool) bool {
	return And{Premises: p.compile()}.Ready(bound)
}

func (p ConceptPremise) Cost(bound map[Variable]bool) int {
	return And{Premises: p.compile()}.Cost(bound)
}

func (p ConceptPremise) Stream(ctx context.Context, store *Store, frame MatchFrame) ([]MatchFrame, error) {
	return evaluate(ctx, store, p.compile(), frame)
}

// Rule is a named, reusable query body: a set of Parameters bound by
// the caller and a Body planned once per distinct binding shape and
// cached (spec.md §4.6's "Rule" premise kind; original's
// predicate/deductive_rule.rs).
type Rule struct {
	Name       string
	Parameters []Variable
	Body       []Premise
}

// planCache memoizes a Rule's planned premise order by the set of
// parameter variables already bound at call time, since that shape is
// exactly what determines which plan the greedy planner produces.
type planCache struct {
	plans map[string][]Premise
}

func newPlanCache() *planCache {
	return &planCache{plans: make(map[string][]Premise)}
}

func (c *planCache) key(rule Rule, bound map[Variable]bool) string {
	key := rule.Name + "|"
	for _, p := range rule.Parameters {
		if bound[p] {
			key += "1"
		} else {
			key += "0"
		}
	}
	return key
}

// RulePremise applies a Rule with a set of arguments binding the
// rule's formal Parameters to the caller's terms.
type RulePremise struct {
	Rule      Rule
	Arguments []ValueTerm
	cache     *planCache
}

// NewRulePremise constructs a RulePremise with its own plan cache.
func NewRulePremise(rule Rule, arguments []ValueTerm) RulePremise {
	return RulePremise{Rule: rule, Arguments: arguments, cache: newPlanCache()}
}

func (p RulePremise) Variables() []Variable {
	seen := make(map[Variable]bool)
	var vars []Variable
	for _, a := range p.Arguments {
		if a.IsVar && !seen[a.Var] {
			seen[a.Var] = true
			vars = append(vars, a.Var)
		}
	}
	return vars
}

func (p RulePremise) Ready(bound map[Variable]bool) bool {
	for _, a := range p.Arguments {
		if !a.IsVar || bound[a.Var] {
			return true
		}
	}
	return len(p.Arguments) == 0
}

func (p RulePremise) Cost(map[Variable]bool) int {
	return len(p.Rule.Body)
}

// Stream binds the rule's formal parameters to this call's argument
// terms, then evaluates the rule body as a nested conjunction. The
// cache field carries no state across the bind; it only memoizes the
// planned premise order for a given bound-shape of the call.
func (p RulePremise) Stream(ctx context.Context, store *Store, frame MatchFrame) ([]MatchFrame, error) {
	seed := frame.Clone()
	for i, param := range p.Rule.Parameters {
		if i >= len(p.Arguments) {
			break
		}
		arg := p.Arguments[i]
		value, ok := resolveValue(arg, frame)
		if !ok {
			continue
		}
		if existing, bound := seed[param]; bound {
			existingValue, _ := existing.AsValue()
			if !existingValue.Equal(value) {
				return nil, nil
			}
			continue
		}
		seed[param] = valueBinding(value)
	}

	var cache *planCache
	if p.cache != nil {
		cache = p.cache
	} else {
		cache = newPlanCache()
	}
	shapeKey := cache.key(p.Rule, boundVariables(seed))
	ordered, cached := cache.plans[shapeKey]
	if !cached {
		planned, err := plan(p.Rule.Body, boundVariables(seed))
		if err != nil {
			return nil, err
		}
		cache.plans[shapeKey] = planned
		ordered = planned
	}

	results := []MatchFrame{seed}
	for _, premise := range ordered {
		var next []MatchFrame
		for _, f := range results {
			matches, err := premise.Stream(ctx, store, f)
			if err != nil {
				return nil, err
			}
			next = append(next, matches...)
		}
		results = next
		if len(results) == 0 {
			break
		}
	}

	out := make([]MatchFrame, 0, len(results))
	for _, r := range results {
		next := frame.Clone()
		for i, param := range p.Rule.Parameters {
			if i >= len(p.Arguments) {
				break
			}
			arg := p.Arguments[i]
			if !arg.IsVar {
				continue
			}
			if b, ok := r[param]; ok {
				next[arg.Var] = b
			}
		}
		out = append(out, next)
	}
	return out, nil
}

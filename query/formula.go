package query

import (
	"context"

	"github.com/dialog-db/dialog/artifact"
	"github.com/dialog-db/dialog/dialogerr"
)

// FormulaOp names one of the built-in operators a FormulaPremise can
// apply. Formulas never touch storage; they compute a relation between
// already-bound inputs, optionally binding one output variable.
type FormulaOp int

const (
	// Equal succeeds if both inputs unify to the same value; binds
	// neither (both operands are inputs).
	Equal FormulaOp = iota
	// NotEqual succeeds if both inputs are bound and differ.
	NotEqual
	// LessThan succeeds if Left's numeric value is less than Right's.
	LessThan
	// GreaterThan succeeds if Left's numeric value is greater than Right's.
	GreaterThan
	// Plus binds Output to Left + Right (unsigned integers).
	Plus
	// Concat binds Output to Left's string concatenated with Right's.
	Concat
)

// FormulaPremise applies one FormulaOp over two resolved value
// operands, optionally binding Output (spec.md §4.6's "Formula"
// premise kind; original_source/rust/dialog-query/src/application/formula.rs).
type FormulaPremise struct {
	Op     FormulaOp
	Left   ValueTerm
	Right  ValueTerm
	Output ValueTerm
}

func (p FormulaPremise) Variables() []Variable {
	var vars []Variable
	if p.Left.IsVar {
		vars = append(vars, p.Left.Var)
	}
	if p.Right.IsVar {
		vars = append(vars, p.Right.Var)
	}
	if p.Output.IsVar && p.hasOutput() {
		vars = append(vars, p.Output.Var)
	}
	return vars
}

func (p FormulaPremise) hasOutput() bool {
	return p.Op == Plus || p.Op == Concat
}

func (p FormulaPremise) Ready(bound map[Variable]bool) bool {
	leftOK := !p.Left.IsVar || bound[p.Left.Var]
	rightOK := !p.Right.IsVar || bound[p.Right.Var]
	return leftOK && rightOK
}

// declaredCost is the per-operator cost spec.md §4.6 calls for in
// "Formula: declared cost × unbound-output count": comparisons and
// equality are near-free filters, arithmetic and string operations
// cost more to actually compute.
func (p FormulaPremise) declaredCost() int {
	switch p.Op {
	case Plus, Concat:
		return 10
	default:
		return 1
	}
}

func (p FormulaPremise) Cost(bound map[Variable]bool) int {
	outputs := 0
	if p.hasOutput() && p.Output.IsVar && !bound[p.Output.Var] {
		outputs = 1
	}
	return p.declaredCost() * outputs
}

func (p FormulaPremise) Stream(_ context.Context, _ *Store, frame MatchFrame) ([]MatchFrame, error) {
	left, leftOK := resolveValue(p.Left, frame)
	right, rightOK := resolveValue(p.Right, frame)
	if !leftOK {
		return nil, dialogerr.FormulaEvaluation(dialogerr.RequiredParameterUnbound, dialogerr.UnboundVariable(string(p.Left.Var)))
	}
	if !rightOK {
		return nil, dialogerr.FormulaEvaluation(dialogerr.RequiredParameterUnbound, dialogerr.UnboundVariable(string(p.Right.Var)))
	}

	switch p.Op {
	case Equal:
		if !left.Equal(right) {
			return nil, nil
		}
		return []MatchFrame{frame.Clone()}, nil

	case NotEqual:
		if left.Equal(right) {
			return nil, nil
		}
		return []MatchFrame{frame.Clone()}, nil

	case LessThan, GreaterThan:
		cmp, err := compareNumeric(left, right)
		if err != nil {
			return nil, dialogerr.FormulaEvaluation(dialogerr.FormulaTypeMismatch, err)
		}
		if (p.Op == LessThan && cmp < 0) || (p.Op == GreaterThan && cmp > 0) {
			return []MatchFrame{frame.Clone()}, nil
		}
		return nil, nil

	case Plus:
		sum, err := addNumeric(left, right)
		if err != nil {
			return nil, dialogerr.FormulaEvaluation(dialogerr.FormulaTypeMismatch, err)
		}
		return p.bindOutput(frame, sum)

	case Concat:
		if left.Kind != artifact.TypeString || right.Kind != artifact.TypeString {
			return nil, dialogerr.FormulaEvaluation(dialogerr.FormulaTypeMismatch, dialogerr.TypeMismatch("String", left.Kind.String()))
		}
		return p.bindOutput(frame, artifact.String(left.Str+right.Str))

	default:
		return nil, dialogerr.FormulaEvaluation(dialogerr.VariableInconsistency, dialogerr.InvalidValue("unknown formula operator"))
	}
}

func (p FormulaPremise) bindOutput(frame MatchFrame, result artifact.Value) ([]MatchFrame, error) {
	if !p.Output.IsVar {
		if !p.Output.Literal.Equal(result) {
			return nil, nil
		}
		return []MatchFrame{frame.Clone()}, nil
	}
	if existing, bound := frame[p.Output.Var]; bound {
		existingValue, _ := existing.AsValue()
		if !existingValue.Equal(result) {
			return nil, nil
		}
		return []MatchFrame{frame.Clone()}, nil
	}
	next := frame.Clone()
	next[p.Output.Var] = valueBinding(result)
	return []MatchFrame{next}, nil
}

func asUint64(v artifact.Value) (uint64, bool) {
	switch v.Kind {
	case artifact.TypeUnsignedInt:
		return v.Uint.Lo, true
	case artifact.TypeSignedInt:
		return uint64(v.Sint.Lo), true
	}
	return 0, false
}

func asFloat64(v artifact.Value) (float64, bool) {
	if v.Kind == artifact.TypeFloat {
		return v.Float64, true
	}
	if n, ok := asUint64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func compareNumeric(a, b artifact.Value) (int, error) {
	af, aok := asFloat64(a)
	bf, bok := asFloat64(b)
	if !aok || !bok {
		return 0, dialogerr.TypeMismatch("numeric", a.Kind.String())
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func addNumeric(a, b artifact.Value) (artifact.Value, error) {
	an, aok := asUint64(a)
	bn, bok := asUint64(b)
	if !aok || !bok {
		return artifact.Value{}, dialogerr.TypeMismatch("unsigned integer", a.Kind.String())
	}
	return artifact.UnsignedInt(an + bn), nil
}

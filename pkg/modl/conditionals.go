package modl

import (
	"strconv"
	"strings"

	"github.com/MODLanguage/modl-go/log"
)

// ConditionalClause is one (test, branch) entry of a conditional. A nil test
// marks the default branch.
type ConditionalClause struct {
	Test   *ConditionTest
	Values []Value
}

// TopLevelConditional selects whole structures.
type TopLevelConditional struct {
	Clauses []ConditionalClause
}

func (*TopLevelConditional) value() {}

// MapConditional selects pairs inside a map.
type MapConditional struct {
	Clauses []ConditionalClause
}

func (*MapConditional) value() {}

// ValueConditional selects values in value or array-item position.
type ValueConditional struct {
	Clauses []ConditionalClause
}

func (*ValueConditional) value() {}

// ConditionTest is an ordered list of terms, reduced left to right; '&' and
// '|' carry no precedence outside explicit groups.
type ConditionTest struct {
	Terms []ConditionTerm
}

// ConditionTerm joins a condition atom or a nested group to the running
// result via Op ("&" or "|"; empty on the first term).
type ConditionTerm struct {
	Op     string
	Negate bool
	Cond   *Condition
	Group  *ConditionTest
}

// Condition is a single comparison atom. An empty operator tests the key for
// truthiness; multiple values make '='/'!=' set-membership tests.
type Condition struct {
	Key      string
	Operator string
	Values   []string
}

// chooseClause picks the first clause whose test passes, or the default
// clause. Returns nil when nothing matches and no default exists.
func (i *Interpreter) chooseClause(clauses []ConditionalClause) (*ConditionalClause, error) {
	for idx := range clauses {
		clause := &clauses[idx]
		if clause.Test == nil {
			return clause, nil
		}
		ok, err := i.evalConditionTest(clause.Test)
		if err != nil {
			return nil, err
		}
		if ok {
			return clause, nil
		}
	}
	return nil, nil
}

func (i *Interpreter) evalConditionTest(test *ConditionTest) (bool, error) {
	result := false
	for idx := range test.Terms {
		term := &test.Terms[idx]

		var val bool
		var err error
		if term.Group != nil {
			val, err = i.evalConditionTest(term.Group)
		} else {
			val, err = i.evalCondition(term.Cond)
		}
		if err != nil {
			return false, err
		}
		if term.Negate {
			val = !val
		}

		switch term.Op {
		case "":
			result = val
		case "&":
			result = result && val
		case "|":
			result = result || val
		}
	}
	log.TRACE("condition test evaluated to %v", result)
	return result, nil
}

func (i *Interpreter) evalCondition(cond *Condition) (bool, error) {
	left, err := i.conditionOperand(cond.Key)
	if err != nil {
		return false, err
	}

	if cond.Operator == "" {
		return truthy(left), nil
	}

	values := make([]Value, 0, len(cond.Values))
	for _, raw := range cond.Values {
		// right-hand sides are literals or explicit %-references, never bare
		// environment names
		v, err := i.transformString(raw)
		if err != nil {
			return false, err
		}
		values = append(values, v)
	}

	switch cond.Operator {
	case "=":
		for _, v := range values {
			if operandEqual(left, v) {
				return true, nil
			}
		}
		return false, nil
	case "!=":
		for _, v := range values {
			if operandEqual(left, v) {
				return false, nil
			}
		}
		return true, nil
	case "<", "<=", ">", ">=":
		if len(values) == 0 {
			return false, nil
		}
		return operandCompare(left, values[0], cond.Operator), nil
	}
	return false, NewMalformedInputError("unknown condition operator '" + cond.Operator + "'")
}

// conditionOperand resolves one side of a comparison: environment lookup
// first, then string transformation (which resolves references and literal
// booleans), falling back to the literal text.
func (i *Interpreter) conditionOperand(raw string) (Value, error) {
	if v := i.env.Lookup(raw); v != nil {
		return v, nil
	}
	return i.transformString(raw)
}

func truthy(v Value) bool {
	switch val := v.(type) {
	case Bool:
		return bool(val)
	case String:
		return strings.EqualFold(string(val), "true")
	case Number:
		return val.Float() != 0
	case Null, nil:
		return false
	}
	return true
}

// operandNumber widens an operand for numeric comparison.
func operandNumber(v Value) (float64, bool) {
	switch val := v.(type) {
	case Number:
		return val.Float(), true
	case String:
		f, err := strconv.ParseFloat(string(val), 64)
		return f, err == nil
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func operandEqual(a, b Value) bool {
	if fa, ok := operandNumber(a); ok {
		if fb, ok := operandNumber(b); ok {
			return fa == fb
		}
	}
	sa, aok := stringifyLeaf(a)
	sb, bok := stringifyLeaf(b)
	if aok && bok {
		return sa == sb
	}
	return Equal(a, b)
}

// operandCompare applies a relational operator, numerically when both sides
// widen to numbers and lexicographically otherwise.
func operandCompare(a, b Value, op string) bool {
	fa, aok := operandNumber(a)
	fb, bok := operandNumber(b)
	if aok && bok {
		switch op {
		case "<":
			return fa < fb
		case "<=":
			return fa <= fb
		case ">":
			return fa > fb
		case ">=":
			return fa >= fb
		}
	}
	sa, _ := stringifyLeaf(a)
	sb, _ := stringifyLeaf(b)
	switch op {
	case "<":
		return sa < sb
	case "<=":
		return sa <= sb
	case ">":
		return sa > sb
	case ">=":
		return sa >= sb
	}
	return false
}

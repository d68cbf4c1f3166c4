package modl

import (
	"github.com/MODLanguage/modl-go/log"
	"github.com/MODLanguage/modl-go/pkg/modl/parser"
)

// Lower converts a parse tree into a raw value tree ready for
// interpretation. It is deterministic and side-effect free: literals are
// folded into their Value variants, empty naked-array slots become explicit
// nulls, and conditional cases are collected into their structural variants.
func Lower(tree *parser.ParseTree) *Document {
	doc := &Document{}
	if tree == nil {
		return doc
	}
	for _, structure := range tree.Structures {
		doc.AddStructures(lowerStructure(structure))
	}
	return doc
}

func lowerStructure(s *parser.Structure) []Value {
	switch {
	case s == nil:
		return nil
	case s.Map != nil:
		return []Value{lowerMap(s.Map)}
	case s.Array != nil:
		return []Value{lowerArray(s.Array)}
	case s.Pair != nil:
		return lowerTopLevelPair(s.Pair)
	case s.TopLevelConditional != nil:
		return []Value{&TopLevelConditional{Clauses: lowerClauses(s.TopLevelConditional)}}
	}
	return nil
}

// lowerTopLevelPair lowers a top-level pair. An import pair with an array
// value fans out into one import pair per element, so the driver sees a flat
// sequence of single imports.
func lowerTopLevelPair(pp *parser.Pair) []Value {
	pair := lowerPair(pp)
	if pair.Key != "*I" && pair.Key != "*IMPORT" {
		return []Value{pair}
	}
	arr, ok := pair.Value.(*Array)
	if !ok {
		return []Value{pair}
	}

	log.TRACE("lowering: fanning out %d imports from '%s'", arr.Len(), pair.Key)
	var out []Value
	for _, item := range arr.Items() {
		out = append(out, &Pair{Key: pair.Key, Value: item})
	}
	return out
}

func lowerPair(pp *parser.Pair) *Pair {
	pair := &Pair{Key: pp.Key}
	switch {
	case pp.Map != nil:
		pair.Value = lowerMap(pp.Map)
	case pp.Array != nil:
		pair.Value = lowerArray(pp.Array)
	case pp.ValueItem != nil:
		pair.Value = lowerValueItem(pp.ValueItem)
	default:
		pair.Value = Null{}
	}
	return pair
}

func lowerMap(pm *parser.Map) *Map {
	m := &Map{}
	for _, item := range pm.Items {
		switch {
		case item.Pair != nil:
			m.Add(lowerPair(item.Pair))
		case item.Conditional != nil:
			m.AddItem(&MapConditional{Clauses: lowerClauses(item.Conditional)})
		}
	}
	return m
}

func lowerArray(pa *parser.Array) *Array {
	a := &Array{}
	for _, item := range pa.Items {
		switch {
		case item.Value != nil:
			a.Append(lowerValueNode(item.Value))
		case item.Conditional != nil:
			a.Append(&ValueConditional{Clauses: lowerClauses(item.Conditional)})
		}
	}
	return a
}

func lowerValueItem(vi *parser.ValueItem) Value {
	if vi.Conditional != nil {
		return &ValueConditional{Clauses: lowerClauses(vi.Conditional)}
	}
	return lowerValueNode(vi.Value)
}

func lowerValueNode(v *parser.ValueNode) Value {
	switch {
	case v == nil:
		return Null{}
	case v.Map != nil:
		return lowerMap(v.Map)
	case v.Array != nil:
		return lowerArray(v.Array)
	case v.NbArray != nil:
		a := &Array{}
		for _, item := range v.NbArray.Items {
			a.Append(lowerValueNode(item)) // nil slots fold to explicit nulls
		}
		return a
	case v.Pair != nil:
		return lowerPair(v.Pair)
	case v.Conditional != nil:
		return &ValueConditional{Clauses: lowerClauses(v.Conditional)}
	case v.Quoted != nil:
		return String(*v.Quoted)
	case v.Number != nil:
		if n, ok := ParseNumber(*v.Number); ok {
			return n
		}
		return String(*v.Number)
	case v.Str != nil:
		return String(*v.Str)
	case v.True:
		return Bool(true)
	case v.False:
		return Bool(false)
	case v.Null:
		return Null{}
	}
	return Null{}
}

func lowerClauses(c *parser.Conditional) []ConditionalClause {
	clauses := make([]ConditionalClause, 0, len(c.Clauses))
	for _, pc := range c.Clauses {
		clause := ConditionalClause{Test: lowerConditionTest(pc.Test)}
		for _, ret := range pc.Returns {
			clause.Values = append(clause.Values, lowerValueNode(ret))
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

func lowerConditionTest(t *parser.ConditionTest) *ConditionTest {
	if t == nil {
		return nil
	}
	test := &ConditionTest{}
	for _, pt := range t.Terms {
		term := ConditionTerm{Op: pt.Op, Negate: pt.Negate}
		if pt.Group != nil {
			term.Group = lowerConditionTest(pt.Group)
		}
		if pt.Cond != nil {
			term.Cond = &Condition{
				Key:      pt.Cond.Key,
				Operator: pt.Cond.Operator,
				Values:   pt.Cond.Values,
			}
		}
		test.Terms = append(test.Terms, term)
	}
	return test
}

package parser

// ParseTree is the root of a parsed MODL document: an ordered list of
// top-level structures.
type ParseTree struct {
	Structures []*Structure
}

// Structure is one top-level entry. Exactly one field is set.
type Structure struct {
	Map                 *Map
	Array               *Array
	Pair                *Pair
	TopLevelConditional *Conditional
}

// Pair is a parsed key with an optional value. At most one of Map, Array and
// ValueItem is set; a bare key leaves all three nil.
type Pair struct {
	Key       string
	Map       *Map
	Array     *Array
	ValueItem *ValueItem
}

// Map is a parenthesised item list.
type Map struct {
	Items []*MapItem
}

// MapItem is either a pair or a map conditional.
type MapItem struct {
	Pair        *Pair
	Conditional *Conditional
}

// Array is a bracketed item list.
type Array struct {
	Items []*ArrayItem
}

// ArrayItem is either a value or an array conditional.
type ArrayItem struct {
	Value       *ValueNode
	Conditional *Conditional
}

// ValueItem is a pair's right-hand side: a value or a value conditional.
type ValueItem struct {
	Value       *ValueNode
	Conditional *Conditional
}

// NbArray is a naked colon-separated array. A nil item marks an empty slot
// produced by consecutive separators.
type NbArray struct {
	Items []*ValueNode
}

// ValueNode is a single parsed value. Exactly one field is set. Unquoted
// string content keeps its grave characters; quoted content has the
// surrounding double quotes stripped.
type ValueNode struct {
	Map         *Map
	Array       *Array
	NbArray     *NbArray
	Pair        *Pair
	Conditional *Conditional
	Quoted      *string
	Number      *string
	Str         *string
	True        bool
	False       bool
	Null        bool
}

// Conditional is an ordered clause list; the first clause whose test passes
// is selected. A clause without a test is the default branch.
type Conditional struct {
	Clauses []*ConditionalClause
}

// ConditionalClause ...
type ConditionalClause struct {
	Test    *ConditionTest
	Returns []*ValueNode
}

// ConditionTest is an ordered term list reduced left to right.
type ConditionTest struct {
	Terms []*ConditionTerm
}

// ConditionTerm carries the operator joining it to the terms before it ("&"
// or "|"; empty on the first term), an optional negation, and either a
// condition atom or a parenthesised group.
type ConditionTerm struct {
	Op     string
	Negate bool
	Cond   *Condition
	Group  *ConditionTest
}

// Condition is a single comparison: a key, an operator (empty for a bare
// truthiness test) and the right-hand values. More than one value makes the
// comparison a set-membership test.
type Condition struct {
	Key      string
	Operator string
	Values   []string
}

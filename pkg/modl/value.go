package modl

import (
	"strconv"
)

// Value is one node in a MODL value tree. The concrete types are String,
// Number, Bool, Null, *Pair, *Map, *Array and the conditional variants; there
// is no shared storage hierarchy, only capability helpers used by the
// reference resolver (ChildByName / ChildByIndex on Map and Array).
type Value interface {
	value()
}

// String is decoded text.
type String string

func (String) value() {}

// Bool covers the true / false literal variants.
type Bool bool

func (Bool) value() {}

// Null is the null literal.
type Null struct{}

func (Null) value() {}

// Number is a numeric literal. Integers that fit a machine word keep an
// integer representation; everything else is widened to floating point.
// Exponential input is accepted and normalized on output.
type Number struct {
	isInt bool
	i     int64
	f     float64
}

func (Number) value() {}

// IntNumber builds an integer-valued Number.
func IntNumber(i int64) Number {
	return Number{isInt: true, i: i}
}

// FloatNumber builds a float-valued Number.
func FloatNumber(f float64) Number {
	return Number{f: f}
}

// ParseNumber interprets text as a MODL numeric literal. The second return
// value is false when the text is not numeric.
func ParseNumber(text string) (Number, bool) {
	if text == "" {
		return Number{}, false
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return IntNumber(i), true
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return FloatNumber(f), true
	}
	return Number{}, false
}

// IsInt reports whether the number carries an integer representation.
func (n Number) IsInt() bool {
	return n.isInt
}

// Int returns the integer form, truncating when the number is floating.
func (n Number) Int() int64 {
	if n.isInt {
		return n.i
	}
	return int64(n.f)
}

// Float returns the widened form of the number.
func (n Number) Float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

// String renders the normalized decimal form.
func (n Number) String() string {
	if n.isInt {
		return strconv.FormatInt(n.i, 10)
	}
	return strconv.FormatFloat(n.f, 'g', -1, 64)
}

// Pair is an atomic (key, value) structural unit.
type Pair struct {
	Key   string
	Value Value
}

func (*Pair) value() {}

// NewPair ...
func NewPair(key string, value Value) *Pair {
	return &Pair{Key: key, Value: value}
}

// AddChild merges another value into the pair, promoting the current value to
// a container as needed:
//
//	empty                  -> store value
//	Map   + Pair           -> append pair to map
//	Pair  + Pair           -> promote to a Map of the two pairs
//	Array + anything       -> append to the array
//	anything else          -> promote to an Array of current then new
func (p *Pair) AddChild(v Value) {
	if v == nil {
		return
	}

	switch current := p.Value.(type) {
	case nil:
		p.Value = v

	case *Map:
		if pair, ok := v.(*Pair); ok {
			current.Add(pair)
			return
		}
		p.Value = promoteToArray(current, v)

	case *Pair:
		if pair, ok := v.(*Pair); ok {
			m := &Map{}
			m.Add(current)
			m.Add(pair)
			p.Value = m
			return
		}
		p.Value = promoteToArray(current, v)

	case *Array:
		current.Append(v)

	default:
		p.Value = promoteToArray(current, v)
	}
}

func promoteToArray(current, v Value) *Array {
	a := &Array{}
	a.Append(current)
	a.Append(v)
	return a
}

// Map is an ordered sequence of pairs with unique keys. A raw (unevaluated)
// map may additionally hold MapConditional items in pair positions; these are
// resolved away during evaluation, so a finished map contains pairs only.
type Map struct {
	items []Value
}

func (*Map) value() {}

// Add appends a pair, preserving insertion order.
func (m *Map) Add(p *Pair) {
	m.items = append(m.items, p)
}

// AddItem appends a raw item (a pair or a map conditional).
func (m *Map) AddItem(v Value) {
	m.items = append(m.items, v)
}

// ChildByName returns the value of the pair with the given key, or nil.
func (m *Map) ChildByName(key string) Value {
	if p := m.PairByName(key); p != nil {
		return p.Value
	}
	return nil
}

// PairByName returns the pair with the given key, or nil.
func (m *Map) PairByName(key string) *Pair {
	for _, item := range m.items {
		if p, ok := item.(*Pair); ok && p.Key == key {
			return p
		}
	}
	return nil
}

// ChildByIndex returns the item at position i, or nil when out of range.
func (m *Map) ChildByIndex(i int) Value {
	if i < 0 || i >= len(m.items) {
		return nil
	}
	return m.items[i]
}

// Keys returns the pair keys in insertion order.
func (m *Map) Keys() []string {
	var keys []string
	for _, p := range m.Pairs() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Pairs returns the ordered pairs, skipping unevaluated conditionals.
func (m *Map) Pairs() []*Pair {
	var pairs []*Pair
	for _, item := range m.items {
		if p, ok := item.(*Pair); ok {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// Items returns all raw items in order.
func (m *Map) Items() []Value {
	return m.items
}

// Len ...
func (m *Map) Len() int {
	return len(m.items)
}

// Array is an ordered sequence of values.
type Array struct {
	items []Value
}

func (*Array) value() {}

// Append ...
func (a *Array) Append(v Value) {
	a.items = append(a.items, v)
}

// ChildByIndex returns the item at position i, or nil when out of range.
func (a *Array) ChildByIndex(i int) Value {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// ChildByName searches child pairs for one with the given key.
func (a *Array) ChildByName(key string) Value {
	for _, v := range a.items {
		if p, ok := v.(*Pair); ok && p.Key == key {
			return p
		}
	}
	return nil
}

// Items ...
func (a *Array) Items() []Value {
	return a.items
}

// Len ...
func (a *Array) Len() int {
	return len(a.items)
}

// Document is an ordered list of top-level structures. The lowering step
// produces a raw document; interpretation produces the finished one.
type Document struct {
	Structures []Value
}

func (*Document) value() {}

// AddStructures appends the given structures, skipping nils.
func (d *Document) AddStructures(structures []Value) {
	for _, s := range structures {
		if s != nil {
			d.Structures = append(d.Structures, s)
		}
	}
}

// stringifyLeaf renders a leaf value as text: numbers in decimal, booleans as
// true/false, null as null. The second return is false for containers.
func stringifyLeaf(v Value) (string, bool) {
	switch val := v.(type) {
	case String:
		return string(val), true
	case Number:
		return val.String(), true
	case Bool:
		if val {
			return "true", true
		}
		return "false", true
	case Null:
		return "null", true
	}
	return "", false
}

// Equal compares two values by decoded payload. Maps and arrays compare
// order-sensitively.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Null:
		_, ok := b.(Null)
		return ok
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		if av.isInt && bv.isInt {
			return av.i == bv.i
		}
		return av.Float() == bv.Float()
	case *Pair:
		bv, ok := b.(*Pair)
		return ok && av.Key == bv.Key && Equal(av.Value, bv.Value)
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case *Array:
		bv, ok := b.(*Array)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for i := range av.items {
			if !Equal(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

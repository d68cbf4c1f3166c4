package modl

import (
	"strconv"
	"strings"

	"github.com/MODLanguage/modl-go/log"
)

// ClassDef is one loaded class: its identity, its superclass edge, and its
// flattened field map (parent fields first, own fields overlaid).
type ClassDef struct {
	ID         string
	Name       string
	Superclass string

	fields *Map
}

// Params returns the ordered parameter list for positional instantiation
// with n parameters, or nil when the class defines none.
func (d *ClassDef) Params(n int) *Array {
	v := d.fields.ChildByName("*params" + strconv.Itoa(n))
	switch params := v.(type) {
	case *Array:
		return params
	case nil:
		return nil
	default:
		a := &Array{}
		a.Append(params)
		return a
	}
}

// PlainPairs returns the default pair definitions instances inherit: every
// field whose key carries no prefix semantics.
func (d *ClassDef) PlainPairs() []*Pair {
	var pairs []*Pair
	for _, p := range d.fields.Pairs() {
		if hiddenKey(p.Key) {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// HasPlainPairs ...
func (d *ClassDef) HasPlainPairs() bool {
	return len(d.PlainPairs()) > 0
}

// ClassRegistry owns the class definitions of one interpretation pass. The
// built-in class 'o' (superclass 'map') always exists.
type ClassRegistry struct {
	classes map[string]*ClassDef
	order   []string
}

// NewClassRegistry ...
func NewClassRegistry() *ClassRegistry {
	r := &ClassRegistry{classes: map[string]*ClassDef{}}
	r.put(&ClassDef{ID: "o", Name: "o", Superclass: "map", fields: &Map{}})
	return r
}

func (r *ClassRegistry) put(def *ClassDef) {
	if _, exists := r.classes[def.ID]; !exists {
		r.order = append(r.order, def.ID)
	}
	r.classes[def.ID] = def
}

// Get looks a class up by map key, id or display name.
func (r *ClassRegistry) Get(key string) *ClassDef {
	for _, id := range r.order {
		def := r.classes[id]
		if def.ID == key || def.Name == key {
			return def
		}
	}
	return r.classes[key]
}

// Has ...
func (r *ClassRegistry) Has(key string) bool {
	return key != "" && r.Get(key) != nil
}

// RootSuperclass follows the superclass chain to its unregistered tail,
// which names the built-in shape semantics (map, arr, str).
func (r *ClassRegistry) RootSuperclass(def *ClassDef) string {
	sc := def.Superclass
	for sc != "" {
		parent := r.classes[sc]
		if parent == nil {
			return sc
		}
		sc = parent.Superclass
	}
	return sc
}

// Load registers the class defined by a *class pair.
func (r *ClassRegistry) Load(classPair *Pair) error {
	m, ok := classPair.Value.(*Map)
	if !ok {
		return NewInvalidClassDefinitionError("*class value must be a map", classPair.Key)
	}

	id := classField(m, "*id", "*i")
	if id == "" {
		return NewInvalidClassDefinitionError("can't find *id in *class", "")
	}
	name := classField(m, "*name", "*n")
	if name == "" {
		name = id
	}
	superclass := classField(m, "*superclass", "*s")
	if superclass != "" && isUpperOnly(superclass) {
		return NewInvalidClassDefinitionError(
			"can't derive from "+superclass+", upper-case classes are fixed", id)
	}
	if err := r.checkCycle(id, superclass); err != nil {
		return err
	}

	def := &ClassDef{ID: id, Name: name, Superclass: superclass, fields: &Map{}}
	if parent := r.Get(superclass); parent != nil {
		for _, p := range parent.fields.Pairs() {
			def.fields.Add(&Pair{Key: p.Key, Value: p.Value})
		}
	}
	for _, p := range m.Pairs() {
		switch p.Key {
		case "*id", "*i", "*name", "*n", "*superclass", "*s":
			continue
		}
		overlayField(def.fields, p)
	}

	log.DEBUG("registered class '%s' (name '%s', superclass '%s')", id, name, superclass)
	r.put(def)
	return nil
}

// checkCycle rejects *superclass chains that lead back to the class being
// defined.
func (r *ClassRegistry) checkCycle(id, superclass string) error {
	seen := map[string]bool{id: true}
	for sc := superclass; sc != ""; {
		if seen[sc] {
			return NewInvalidClassDefinitionError("superclass cycle through '"+sc+"'", id)
		}
		seen[sc] = true
		parent := r.classes[sc]
		if parent == nil {
			return nil
		}
		sc = parent.Superclass
	}
	return nil
}

func classField(m *Map, names ...string) string {
	for _, name := range names {
		if v := m.ChildByName(name); v != nil {
			if s, ok := stringifyLeaf(v); ok {
				return s
			}
		}
	}
	return ""
}

func overlayField(fields *Map, p *Pair) {
	if existing := fields.PairByName(p.Key); existing != nil {
		existing.Value = p.Value
		return
	}
	fields.Add(&Pair{Key: p.Key, Value: p.Value})
}

func hiddenKey(key string) bool {
	return strings.HasPrefix(key, "_") || strings.HasPrefix(key, "*") || strings.HasPrefix(key, "?")
}

package modl

import (
	"strconv"
	"strings"

	"github.com/MODLanguage/modl-go/log"
	"github.com/MODLanguage/modl-go/pkg/modl/parser"
)

// Interpreter processes a raw document and produces the finished value tree.
// It owns its class registry, environments and method set; nothing is shared
// between interpreter instances, so concurrent interpretation of independent
// inputs is safe.
type Interpreter struct {
	opts Options

	classes *ClassRegistry
	env     *Environment
	methods *MethodSet
}

// NewInterpreter ...
func NewInterpreter(opts Options) *Interpreter {
	opts.defaults()
	return &Interpreter{opts: opts}
}

// Execute runs the restart loop: a pass either completes, or an import
// directive replaces the input and the pass starts over with fresh state.
// The restart count is capped so import cycles fail fast.
func (i *Interpreter) Execute(raw *Document) (*Document, error) {
	restarts := 0
	for {
		out, next, err := i.attempt(raw)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return out, nil
		}
		restarts++
		if restarts > i.opts.MaxRestarts {
			return nil, NewImportLimitExceededError(i.opts.MaxRestarts)
		}
		log.DEBUG("import restart %d of at most %d", restarts, i.opts.MaxRestarts)
		raw = next
	}
}

// attempt interprets one pass. A non-nil second return value is the restart
// signal: the document the next pass should run against.
func (i *Interpreter) attempt(raw *Document) (*Document, *Document, error) {
	i.env = NewEnvironment()
	i.classes = NewClassRegistry()
	i.methods = NewMethodSet(i.opts.Methods)

	out := &Document{}
	for _, rawStruct := range raw.Structures {
		if pair, ok := rawStruct.(*Pair); ok {
			handled, next, err := i.dispatchDirective(pair)
			if err != nil {
				return nil, nil, err
			}
			if next != nil {
				return nil, next, nil
			}
			if handled {
				continue
			}
		}

		structures, err := i.interpretRawStruct(rawStruct)
		if err != nil {
			return nil, nil, err
		}
		out.AddStructures(structures)
	}
	return out, nil, nil
}

// dispatchDirective applies a top-level directive pair. It reports whether
// the pair was consumed, and returns a replacement document when an import
// requires a restart.
func (i *Interpreter) dispatchDirective(pair *Pair) (bool, *Document, error) {
	switch pair.Key {
	case "*V", "*VERSION":
		if err := i.checkVersion(pair.Value); err != nil {
			return false, nil, err
		}
		return true, nil, nil

	case "*I", "*IMPORT":
		loaded, err := i.loadImport(pair.Value)
		if err != nil {
			return false, nil, err
		}
		return true, loaded, nil

	case "*class", "*c":
		return true, nil, i.classes.Load(pair)

	case "*method", "*m":
		return true, nil, i.loadMethodDirective(pair)

	case "?":
		return true, nil, i.loadNumberedVars(pair.Value)
	}

	if strings.HasPrefix(pair.Key, "_") {
		return true, nil, i.bindVariable(pair)
	}
	if strings.HasPrefix(pair.Key, "*") {
		return false, nil, NewUnrecognisedInstructionError(pair.Key)
	}
	return false, nil, nil
}

func (i *Interpreter) checkVersion(v Value) error {
	num, ok := v.(Number)
	if ok && num.IsInt() && int(num.Int()) == i.opts.ModlVersion {
		log.TRACE("version directive accepted: %d", i.opts.ModlVersion)
		return nil
	}
	got, _ := stringifyLeaf(v)
	return NewVersionMismatchError(got, i.opts.ModlVersion)
}

// loadImport resolves the import location (references included), loads the
// text through the loader collaborator and lowers it into the document the
// restarted pass will run against.
func (i *Interpreter) loadImport(v Value) (*Document, error) {
	var location string
	switch val := v.(type) {
	case String:
		resolved, err := i.transformString(string(val))
		if err != nil {
			return nil, err
		}
		s, ok := resolved.(String)
		if !ok {
			if leaf, leafOK := stringifyLeaf(resolved); leafOK {
				location = leaf
				break
			}
			return nil, NewMalformedInputError("expected a string import location")
		}
		location = string(s)
	case Number:
		location = val.String()
	default:
		return nil, NewMalformedInputError("expected a string import location")
	}

	log.DEBUG("importing '%s'", location)
	text, err := i.opts.Loader(location)
	if err != nil {
		return nil, NewLoadError(location, err)
	}

	tree, err := parser.Parse(text)
	if err != nil {
		return nil, &ModlError{Type: SyntaxError, Message: err.Error(), Key: location, Cause: err}
	}
	return Lower(tree), nil
}

// loadNumberedVars appends numbered variables: a scalar appends one value,
// an array appends each element.
func (i *Interpreter) loadNumberedVars(v Value) error {
	if v == nil {
		return nil
	}
	if arr, ok := v.(*Array); ok {
		for _, item := range arr.Items() {
			if err := i.appendNumberedVar(item); err != nil {
				return err
			}
		}
		return nil
	}
	return i.appendNumberedVar(v)
}

func (i *Interpreter) appendNumberedVar(v Value) error {
	val, err := i.interpretValue(v, nil)
	if err != nil {
		return err
	}
	log.TRACE("numbered variable %d assigned", i.env.NumberedCount())
	i.env.AppendNumbered(val)
	return nil
}

// bindVariable binds a top-level '_'-prefixed pair as a named variable and a
// value pair, both stored without the underscore.
func (i *Interpreter) bindVariable(pair *Pair) error {
	name := strings.TrimPrefix(pair.Key, "_")
	if _, exists := i.env.Variable(name); exists && isUpperOnly(name) {
		return NewImmutableRedefinitionError(name)
	}

	value, err := i.storableValue(pair.Value)
	if err != nil {
		return err
	}
	i.env.SetVariable(name, value)
	return i.env.SetPair(name, value)
}

// storableValue prepares a value for the environments: scalar strings are
// transformed, containers are kept raw for later deep referencing.
func (i *Interpreter) storableValue(v Value) (Value, error) {
	if s, ok := v.(String); ok {
		return i.transformString(string(s))
	}
	return v, nil
}

func (i *Interpreter) transformString(input string) (Value, error) {
	t := NewStringTransformer(i.env, i.methods, i.opts.PunycodeHook)
	return t.Transform(input)
}

// loadMethodDirective registers a user-defined variable method: a *method
// map with an id and a chain of existing methods to apply in order.
func (i *Interpreter) loadMethodDirective(pair *Pair) error {
	m, ok := pair.Value.(*Map)
	if !ok {
		return NewMalformedInputError("*method value must be a map")
	}
	id := classField(m, "*id", "*i")
	if id == "" {
		return NewMalformedInputError("can't find *id in *method")
	}
	chain := classField(m, "*transform", "*t")
	if chain == "" {
		return NewMalformedInputError("can't find *transform in *method")
	}

	names := []string{id}
	if name := classField(m, "*name", "*n"); name != "" && name != id {
		names = append(names, name)
	}
	i.methods.Register(chainMethod{set: i.methods, chain: strings.Split(chain, ".")}, names...)
	log.DEBUG("registered *method '%s' -> %s", id, chain)
	return nil
}

// interpretRawStruct evaluates one top-level structure into its output
// structures. Directive side effects have already been applied by the
// driver; hidden pairs evaluate to nothing.
func (i *Interpreter) interpretRawStruct(rawStruct Value) ([]Value, error) {
	switch s := rawStruct.(type) {
	case nil:
		return nil, nil

	case *TopLevelConditional:
		clause, err := i.chooseClause(s.Clauses)
		if err != nil || clause == nil {
			return nil, err
		}
		var out []Value
		for _, v := range clause.Values {
			structures, err := i.interpretRawStruct(v)
			if err != nil {
				return nil, err
			}
			out = append(out, structures...)
		}
		return out, nil

	case *Map:
		m, err := i.interpretMap(s)
		if err != nil || m == nil {
			return nil, err
		}
		return []Value{m}, nil

	case *Array:
		a, err := i.interpretArray(s)
		if err != nil || a == nil {
			return nil, err
		}
		return []Value{a}, nil

	case *Pair:
		pair, err := i.interpretPair(s, nil, true)
		if err != nil || pair == nil {
			return nil, err
		}
		if hiddenKey(pair.Key) {
			return nil, nil
		}
		return []Value{pair}, nil

	default:
		v, err := i.interpretValue(rawStruct, nil)
		if err != nil || v == nil {
			return nil, err
		}
		return []Value{v}, nil
	}
}

// interpretValue evaluates a raw value of any shape.
func (i *Interpreter) interpretValue(raw Value, parent *Pair) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case String:
		return i.transformString(string(v))
	case Number, Bool, Null:
		return v, nil
	case *Pair:
		return i.interpretPair(v, parent, false)
	case *Map:
		return i.interpretMap(v)
	case *Array:
		return i.interpretArray(v)
	case *ValueConditional:
		return i.evalValueConditional(v)
	}
	return nil, NewMalformedInputError("cannot classify value during evaluation")
}

func (i *Interpreter) interpretMap(raw *Map) (*Map, error) {
	if raw == nil {
		return nil, nil
	}

	out := &Map{}
	for _, item := range raw.Items() {
		switch it := item.(type) {
		case *MapConditional:
			pairs, err := i.evalMapConditional(it)
			if err != nil {
				return nil, err
			}
			for _, p := range pairs {
				if err := i.addMapPair(out, p); err != nil {
					return nil, err
				}
			}

		case *Pair:
			p, err := i.interpretPair(it, nil, false)
			if err != nil {
				return nil, err
			}
			if p == nil || hiddenKey(p.Key) {
				continue
			}
			if err := i.addMapPair(out, p); err != nil {
				return nil, err
			}

		default:
			return nil, NewMalformedInputError("cannot classify map item during evaluation")
		}
	}
	return out, nil
}

// addMapPair enforces key uniqueness: an upper-case-only duplicate is an
// error, any other duplicate augments the existing pair's value.
func (i *Interpreter) addMapPair(m *Map, p *Pair) error {
	existing := m.PairByName(p.Key)
	if existing == nil {
		m.Add(p)
		return nil
	}
	if isUpperOnly(p.Key) {
		return NewImmutableRedefinitionError(p.Key)
	}
	existing.AddChild(p.Value)
	return nil
}

func (i *Interpreter) interpretArray(raw *Array) (*Array, error) {
	if raw == nil {
		return nil, nil
	}

	out := &Array{}
	for _, item := range raw.Items() {
		if cond, ok := item.(*ValueConditional); ok {
			values, err := i.evalConditionalItems(cond.Clauses)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				out.Append(v)
			}
			continue
		}
		v, err := i.interpretValue(item, nil)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out.Append(v)
		}
	}
	return out, nil
}

// evalValueConditional picks the matching branch and evaluates it to a
// single value; a branch with several items produces an array.
func (i *Interpreter) evalValueConditional(cond *ValueConditional) (Value, error) {
	values, err := i.evalConditionalItems(cond.Clauses)
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return values[0], nil
	default:
		a := &Array{}
		for _, v := range values {
			a.Append(v)
		}
		return a, nil
	}
}

func (i *Interpreter) evalConditionalItems(clauses []ConditionalClause) ([]Value, error) {
	clause, err := i.chooseClause(clauses)
	if err != nil || clause == nil {
		return nil, err
	}
	var out []Value
	for _, raw := range clause.Values {
		v, err := i.interpretValue(raw, nil)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// evalMapConditional picks the matching branch and evaluates its pairs.
func (i *Interpreter) evalMapConditional(cond *MapConditional) ([]*Pair, error) {
	clause, err := i.chooseClause(cond.Clauses)
	if err != nil || clause == nil {
		return nil, err
	}
	var pairs []*Pair
	for _, raw := range clause.Values {
		rawPair, ok := raw.(*Pair)
		if !ok {
			return nil, NewMalformedInputError("map conditional branches must contain pairs")
		}
		p, err := i.interpretPair(rawPair, nil, false)
		if err != nil {
			return nil, err
		}
		if p != nil && !hiddenKey(p.Key) {
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

// interpretPair evaluates one raw pair: class-directed reshape, environment
// side effects, hidden-key suppression, and value evaluation.
func (i *Interpreter) interpretPair(rawPair *Pair, parent *Pair, topLevel bool) (*Pair, error) {
	if rawPair == nil {
		return nil, nil
	}

	if rawPair.Key == "?" {
		return nil, i.loadNumberedVars(rawPair.Value)
	}

	origKey := rawPair.Key
	newKey := origKey
	workPair := rawPair

	classDef := i.classes.Get(origKey)
	if classDef != nil {
		newKey = classDef.Name
		transformed, consumed, err := i.transformClassValue(rawPair, classDef)
		if err != nil {
			return nil, err
		}
		if consumed {
			return nil, nil
		}
		workPair = transformed
	}

	if topLevel && !strings.HasPrefix(newKey, "%") &&
		!strings.HasPrefix(newKey, "*") && !strings.HasPrefix(newKey, "?") {
		stored, err := i.storableValue(workPair.Value)
		if err != nil {
			return nil, err
		}
		if err := i.env.SetPair(strings.TrimPrefix(newKey, "_"), stored); err != nil {
			return nil, err
		}
	}

	if hiddenKey(newKey) {
		if name, ok := strings.CutPrefix(newKey, "_"); ok {
			stored, err := i.storableValue(workPair.Value)
			if err != nil {
				return nil, err
			}
			i.env.SetVariable(name, stored)
		}
		return nil, nil
	}

	pair := &Pair{Key: newKey}
	if classDef != nil {
		done, err := i.generateClassInstance(workPair, pair, classDef)
		if err != nil {
			return nil, err
		}
		if done {
			return pair, nil
		}
	}

	if arr, ok := workPair.Value.(*Array); ok {
		for _, v := range arr.Items() {
			if err := i.addValueFromPair(pair, v); err != nil {
				return nil, err
			}
		}
		if pair.Value == nil {
			pair.Value = &Array{}
		}
	} else if err := i.addValueFromPair(pair, workPair.Value); err != nil {
		return nil, err
	}
	return pair, nil
}

// transformClassValue applies the class-level value transforms that run
// before reshaping: the numbered-variable classes consume the pair entirely,
// and a 'str'-superclassed instance stringifies its leaf value.
func (i *Interpreter) transformClassValue(rawPair *Pair, def *ClassDef) (*Pair, bool, error) {
	if def.Name == "_v" || def.Name == "var" {
		return nil, true, i.loadNumberedVars(rawPair.Value)
	}

	if def.Superclass == "str" {
		if _, isString := rawPair.Value.(String); !isString {
			if s, ok := stringifyLeaf(rawPair.Value); ok {
				return &Pair{Key: rawPair.Key, Value: String(s)}, false, nil
			}
		}
	}
	return rawPair, false, nil
}

// addValueFromPair feeds one raw value into the output pair, resolving
// %-keyed pairs in value position as references.
func (i *Interpreter) addValueFromPair(pair *Pair, value Value) error {
	refPair, ok := value.(*Pair)
	if !ok || !strings.HasPrefix(refPair.Key, "%") {
		v, err := i.interpretValue(value, pair)
		if err != nil {
			return err
		}
		pair.AddChild(v)
		return nil
	}

	name := strings.TrimPrefix(refPair.Key, "%")
	head := name
	if idx := strings.Index(head, ">"); idx >= 0 {
		head = head[:idx]
	}

	var newValue Value
	if stored, found := i.env.Pair(head); found {
		if idx := strings.Index(name, ">"); idx >= 0 {
			// walk the remaining nested path against the stored value
			t := NewStringTransformer(i.env, i.methods, i.opts.PunycodeHook)
			walked, err := t.deepReference(stored, name[idx+1:])
			if err != nil {
				return err
			}
			newValue = walked
		} else {
			switch sv := stored.(type) {
			case *Array:
				index, err := i.referenceIndex(refPair.Value)
				if err != nil {
					return err
				}
				newValue = sv.ChildByIndex(index)
				if newValue == nil {
					return NewInvalidReferenceError(refPair.Key)
				}
			default:
				newValue = sv
			}
		}
	} else {
		v, err := i.transformString(refPair.Key)
		if err != nil {
			return err
		}
		newValue = v
	}

	pair.AddChild(newValue)
	return nil
}

// referenceIndex extracts the array index of a value-position reference: the
// reference's own value, or the first element when that value is an array.
func (i *Interpreter) referenceIndex(v Value) (int, error) {
	switch val := v.(type) {
	case Number:
		return int(val.Int()), nil
	case *Array:
		if first, ok := val.ChildByIndex(0).(Number); ok {
			return int(first.Int()), nil
		}
	}
	return 0, NewMalformedInputError("reference index must be numeric")
}

// generateClassInstance reshapes a class-matching pair into its structured
// form. It reports false when the class directs no reshape, in which case
// the caller evaluates the value as usual under the renamed key.
func (i *Interpreter) generateClassInstance(rawPair *Pair, pair *Pair, def *ClassDef) (bool, error) {
	n := instanceArity(rawPair.Value)
	params := def.Params(n)

	mapValue, isMapValue := rawPair.Value.(*Map)
	if !def.HasPlainPairs() && !isMapValue && params == nil {
		return false, nil
	}

	log.DEBUG("reshaping '%s' as class '%s' (arity %d)", rawPair.Key, def.ID, n)

	switch {
	case isMapValue:
		m, err := i.interpretMap(mapValue)
		if err != nil {
			return false, err
		}
		for _, p := range m.Pairs() {
			pair.AddChild(p)
		}

	case params != nil:
		values, err := i.positionalArguments(rawPair.Value)
		if err != nil {
			return false, err
		}
		for paramNum, item := range values {
			if paramNum >= params.Len() {
				break
			}
			paramName, _ := stringifyLeaf(params.ChildByIndex(paramNum))
			if err := i.addClassParamValue(pair, paramName, item); err != nil {
				return false, err
			}
		}

	default:
		added, err := i.classPairsFromArray(rawPair.Value, pair)
		if err != nil {
			return false, err
		}
		if !added {
			v, err := i.interpretValue(rawPair.Value, pair)
			if err != nil {
				return false, err
			}
			pair.AddChild(v)
		}
	}

	return true, i.addAllParentPairs(pair, def)
}

func instanceArity(v Value) int {
	switch val := v.(type) {
	case *Map:
		return val.Len()
	case *Array:
		return val.Len()
	case Null, nil:
		return 0
	default:
		return 1
	}
}

// positionalArguments flattens the raw value into the ordered argument
// vector, expanding array conditionals in place.
func (i *Interpreter) positionalArguments(v Value) ([]Value, error) {
	arr, ok := v.(*Array)
	if !ok {
		return []Value{v}, nil
	}
	var out []Value
	for _, item := range arr.Items() {
		if cond, isCond := item.(*ValueConditional); isCond {
			values, err := i.evalConditionalItems(cond.Clauses)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// classPairsFromArray adds the pair items of an array value to the instance.
// It reports false when the array contributed no pairs (or the value is not
// an array at all).
func (i *Interpreter) classPairsFromArray(v Value, pair *Pair) (bool, error) {
	arr, ok := v.(*Array)
	if !ok {
		return false, nil
	}
	added := false
	for _, item := range arr.Items() {
		switch it := item.(type) {
		case *Pair:
			p, err := i.interpretPair(it, pair, false)
			if err != nil {
				return false, err
			}
			if p != nil && !hiddenKey(p.Key) {
				pair.AddChild(p)
				added = true
			}
		case *ValueConditional:
			values, err := i.evalConditionalItems(it.Clauses)
			if err != nil {
				return false, err
			}
			for _, cv := range values {
				if p, isPair := cv.(*Pair); isPair && !hiddenKey(p.Key) {
					pair.AddChild(p)
					added = true
				}
			}
		}
	}
	return added, nil
}

// addClassParamValue pairs one positional argument with its parameter. When
// the parameter names a class, the argument is shaped by that class's root
// superclass: 'arr' collects elements, 'map' pairs them against the nested
// parameter list, 'str' stringifies.
func (i *Interpreter) addClassParamValue(pair *Pair, paramName string, item Value) error {
	paramDef := i.classes.Get(paramName)
	displayName := paramName
	if paramDef != nil {
		displayName = paramDef.Name
	}

	if arr, ok := item.(*Array); ok && paramDef != nil {
		valuePair := &Pair{Key: displayName}
		switch root := i.classes.RootSuperclass(paramDef); root {
		case "arr":
			for _, vi := range arr.Items() {
				v, err := i.interpretValue(vi, pair)
				if err != nil {
					return err
				}
				valuePair.AddChild(v)
			}
		case "map":
			innerParams := paramDef.Params(arr.Len())
			if innerParams == nil {
				return NewMalformedInputError("class " + displayName + " has no parameter list of size " + strconv.Itoa(arr.Len()))
			}
			for idx, vi := range arr.Items() {
				innerKey, _ := stringifyLeaf(innerParams.ChildByIndex(idx))
				p, err := i.interpretPair(&Pair{Key: innerKey, Value: vi}, pair, false)
				if err != nil {
					return err
				}
				valuePair.AddChild(p)
			}
		default:
			return NewMalformedInputError("superclass " + root + " of " + displayName + " is not known")
		}
		pair.AddChild(valuePair)
		return nil
	}

	v, err := i.interpretValue(item, pair)
	if err != nil {
		return err
	}
	if paramDef != nil && i.classes.RootSuperclass(paramDef) == "str" {
		if s, ok := stringifyLeaf(v); ok {
			v = String(s)
		}
	}
	valuePair := &Pair{Key: displayName}
	valuePair.AddChild(v)
	pair.AddChild(valuePair)
	return nil
}

// addAllParentPairs unions the inherited default pairs into the instance,
// skipping keys the instance already carries.
func (i *Interpreter) addAllParentPairs(pair *Pair, def *ClassDef) error {
	for _, pd := range def.PlainPairs() {
		if pairHasKey(pair, pd.Key) {
			continue
		}
		v, err := i.interpretValue(pd.Value, nil)
		if err != nil {
			return err
		}
		newPair := &Pair{Key: pd.Key}
		newPair.AddChild(v)
		if m, ok := pair.Value.(*Map); ok {
			m.Add(newPair)
		} else {
			pair.AddChild(newPair)
		}
	}
	return nil
}

func pairHasKey(pair *Pair, key string) bool {
	switch v := pair.Value.(type) {
	case *Pair:
		return v.Key == key
	case *Map:
		return v.ChildByName(key) != nil
	}
	return false
}


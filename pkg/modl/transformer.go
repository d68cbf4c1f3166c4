package modl

import (
	"strings"

	"github.com/MODLanguage/modl-go/log"
)

// PunycodeHook decodes a non-reference grave part. The default hook decodes
// IDNA (xn--) labels; callers may supply their own or an identity function.
type PunycodeHook func(text string) string

// StringTransformer resolves grave-delimited and percent-prefixed references
// against the environments of the running pass. The usual result is a
// String, but a bare reference that resolves to a non-string value returns
// that value as-is, so maps, arrays and numbers can be pulled into pair
// values.
type StringTransformer struct {
	env     *Environment
	methods *MethodSet
	puny    PunycodeHook
}

// NewStringTransformer ...
func NewStringTransformer(env *Environment, methods *MethodSet, puny PunycodeHook) *StringTransformer {
	if puny == nil {
		puny = func(s string) string { return s }
	}
	return &StringTransformer{env: env, methods: methods, puny: puny}
}

// Transform applies the whole string-transformation pipeline to one raw
// string: boolean fast paths, escape decoding, grave parts, then percent
// references.
func (t *StringTransformer) Transform(input string) (Value, error) {
	if strings.EqualFold(input, "true") {
		return Bool(true), nil
	}
	if strings.EqualFold(input, "false") {
		return Bool(false), nil
	}

	input = Unescape(input)

	for _, gravePart := range graveParts(input) {
		if strings.HasPrefix(gravePart, "`%") {
			ret, err := t.objectReference(gravePart, input, true)
			if err != nil {
				return nil, err
			}
			switch v := ret.(type) {
			case String:
				input = string(v)
			case Number:
				if gravePart == input {
					return v, nil
				}
				input = strings.ReplaceAll(input, gravePart, v.String())
			default:
				return ret, nil
			}
			continue
		}

		inner := gravePart[1 : len(gravePart)-1]
		input = strings.ReplaceAll(input, gravePart, t.puny(inner))
	}

	for _, pctPart := range t.percentParts(input) {
		ret, err := t.objectReference(pctPart, input, false)
		if err != nil {
			return nil, err
		}
		switch v := ret.(type) {
		case String:
			input = string(v)
		case Number:
			if pctPart == input {
				return v, nil
			}
			input = strings.ReplaceAll(input, pctPart, v.String())
		default:
			return ret, nil
		}
	}

	return String(input), nil
}

// objectReference resolves one reference part within its enclosing string.
// An unknown head leaves the enclosing string untouched; a resolved string
// subject runs the method chain and is spliced back into place.
func (t *StringTransformer) objectReference(part, whole string, graved bool) (Value, error) {
	startOffset, endOffset := 1, 0
	if graved {
		startOffset, endOffset = 2, 1
	}

	subject := part[startOffset : len(part)-endOffset]
	methodChain := ""
	if idx := strings.Index(part, "."); idx >= 0 {
		subject = part[startOffset:idx]
		methodChain = part[idx+1 : len(part)-endOffset]
	}

	value, err := t.valueForReference(subject)
	if err != nil {
		return nil, err
	}
	if value == nil {
		log.TRACE("reference '%s' has no subject, leaving it alone", part)
		return String(whole), nil
	}

	str, ok := value.(String)
	if !ok {
		return value, nil
	}
	resolved := string(str)

	if methodChain != "" {
		for _, method := range strings.Split(methodChain, ".") {
			resolved = t.applyMethod(resolved, method)
		}
	}

	return String(strings.ReplaceAll(whole, part, resolved)), nil
}

// applyMethod runs one chain element against the subject. Unregistered
// methods are re-emitted verbatim.
func (t *StringTransformer) applyMethod(subject, method string) string {
	open := strings.Index(method, "(")
	if open < 0 {
		if out, ok := t.methods.Run(method, subject); ok {
			return out
		}
		return subject + "." + method
	}

	if !strings.HasSuffix(method, ")") {
		return subject + "." + method
	}
	name := method[:open]
	params := method[open+1 : len(method)-1]
	if out, ok := t.methods.Run(name, subject+","+params); ok {
		return out
	}
	return subject + "." + method
}

// valueForReference resolves a reference subject, following any '>'-joined
// nested path into the referenced value.
func (t *StringTransformer) valueForReference(subject string) (Value, error) {
	remainder := ""
	if idx := strings.Index(subject, ">"); idx >= 0 {
		remainder = subject[idx+1:]
		subject = subject[:idx]
	}

	value := t.env.Lookup(subject)
	if value == nil {
		return nil, nil
	}
	if remainder != "" {
		return t.deepReference(value, remainder)
	}
	return value, nil
}

// deepReference walks a nested path segment by segment: a Pair only exposes
// index 0 or its own key, a Map resolves by name, an Array by index or by
// child-pair key.
func (t *StringTransformer) deepReference(ctx Value, key string) (Value, error) {
	currKey := key
	remainder := ""
	if idx := strings.Index(key, ">"); idx >= 0 {
		currKey = key[:idx]
		remainder = key[idx+1:]
	}

	var next Value
	if isAllDigits(currKey) {
		index := parseIndex(currKey)
		switch c := ctx.(type) {
		case *Pair:
			if index != 0 {
				return nil, NewInvalidReferenceError(currKey)
			}
			next = c.Value
		case *Map:
			next = c.ChildByIndex(index)
		case *Array:
			next = c.ChildByIndex(index)
		default:
			return nil, NewInvalidReferenceError(currKey)
		}
	} else {
		switch c := ctx.(type) {
		case *Pair:
			if currKey != c.Key {
				return nil, NewInvalidReferenceError(currKey)
			}
			next = c.Value
		case *Map:
			next = c.ChildByName(currKey)
		case *Array:
			next = c.ChildByName(currKey)
		default:
			return nil, NewInvalidReferenceError(currKey)
		}
	}

	if next == nil {
		return nil, NewInvalidReferenceError(currKey)
	}
	if remainder != "" {
		return t.deepReference(next, remainder)
	}
	return next, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func parseIndex(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// graveParts finds the spans delimited by unescaped graves, in order. Graves
// may not nest, so the scanner simply pairs them up left to right.
func graveParts(input string) []string {
	var parts []string
	curr := 0
	for {
		start, ok := nextUnescapedGrave(input, curr)
		if !ok {
			return parts
		}
		end, ok := nextUnescapedGrave(input, start+1)
		if !ok {
			return parts
		}
		parts = append(parts, input[start:end+1])
		curr = end + 1
	}
}

func nextUnescapedGrave(input string, from int) (int, bool) {
	for i := from; i < len(input); i++ {
		if input[i] != '`' {
			continue
		}
		if i > 0 && (input[i-1] == '~' || input[i-1] == '\\') {
			continue
		}
		return i, true
	}
	return 0, false
}

// percentParts finds the non-space %-prefixed reference parts. A reference
// with a numeric head extends through its digits and any chained methods
// (registry membership decides where the chain ends); one with a letter head
// extends to the next space or colon.
func (t *StringTransformer) percentParts(input string) []string {
	var parts []string
	curr := 0
	for {
		start := strings.Index(input[curr:], "%")
		if start < 0 {
			return parts
		}
		start += curr

		if start == len(input)-1 {
			return parts
		}

		var end int
		if !isDigit(input[start+1]) {
			end = len(input)
			if idx := strings.Index(input[start:], " "); idx >= 0 {
				end = start + idx
			}
			if idx := strings.Index(input[start:], ":"); idx >= 0 && start+idx < end {
				end = start + idx
			}
		} else {
			end = t.endOfNumber(input, start+1)
		}

		if end > start+1 {
			parts = append(parts, input[start:end])
			curr = end + 1
		} else {
			curr = start + 1
		}
		if curr >= len(input) {
			return parts
		}
	}
}

// endOfNumber finds where a numeric reference ends: after the digits, a '.'
// may start a method chain, and the method registry is the tie-breaker that
// decides whether each '.' continues the chain or belongs to literal text.
func (t *StringTransformer) endOfNumber(s string, start int) int {
	curr := start
	if curr == len(s) {
		return curr
	}
	for isDigit(s[curr]) {
		curr++
		if curr == len(s) {
			return curr
		}
	}

	if s[curr] != '.' {
		return curr
	}

	newMethod := ""
	for {
		curr++
		if curr > len(s)-1 {
			return curr
		}
		next := s[curr]
		if next == '.' {
			if len(newMethod) > 0 {
				newMethod = ""
				continue
			}
			return curr
		}
		if !isLetter(next) {
			return curr
		}
		if t.methods.IsVariableMethod(newMethod + string(next)) {
			newMethod += string(next)
			continue
		}
		if len(newMethod) > 0 {
			return curr
		}
		return curr - 1
	}
}

package modl

import (
	"bytes"
	"encoding/json"
)

// EmitJSON renders a finished document as compact JSON. A document whose
// structures are all pairs becomes one object; a single non-pair structure
// is emitted bare; anything else becomes a JSON array.
func EmitJSON(doc *Document) (string, error) {
	var buf bytes.Buffer

	if len(doc.Structures) == 0 {
		return "{}", nil
	}

	if allPairs(doc.Structures) {
		buf.WriteByte('{')
		for idx, s := range doc.Structures {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := appendPairBody(&buf, s.(*Pair)); err != nil {
				return "", err
			}
		}
		buf.WriteByte('}')
		return buf.String(), nil
	}

	if len(doc.Structures) == 1 {
		if err := appendJSON(&buf, doc.Structures[0]); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	buf.WriteByte('[')
	for idx, s := range doc.Structures {
		if idx > 0 {
			buf.WriteByte(',')
		}
		if err := appendJSON(&buf, s); err != nil {
			return "", err
		}
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

func allPairs(structures []Value) bool {
	for _, s := range structures {
		if _, ok := s.(*Pair); !ok {
			return false
		}
	}
	return len(structures) > 0
}

func appendJSON(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")

	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case Number:
		buf.WriteString(val.String())

	case String:
		return appendJSONString(buf, string(val))

	case *Pair:
		buf.WriteByte('{')
		if err := appendPairBody(buf, val); err != nil {
			return err
		}
		buf.WriteByte('}')

	case *Map:
		buf.WriteByte('{')
		for idx, p := range val.Pairs() {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := appendPairBody(buf, p); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case *Array:
		buf.WriteByte('[')
		for idx, item := range val.Items() {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	default:
		return NewMalformedInputError("value cannot be emitted as JSON")
	}
	return nil
}

func appendPairBody(buf *bytes.Buffer, p *Pair) error {
	if err := appendJSONString(buf, p.Key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return appendJSON(buf, p.Value)
}

func appendJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

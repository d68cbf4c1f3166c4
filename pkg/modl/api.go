// Package modl evaluates MODL documents: it lowers parsed syntax trees into
// raw value trees and interprets them into fully resolved value trees ready
// for serialization.
//
// The high-level entry points are Interpret and ToJSON:
//
//	out, err := modl.ToJSON("a=hello; b=123", nil)
//	// out == `{"a":"hello","b":123}`
//
// Parsing, lowering, interpretation and emission are also exposed
// individually for callers that bring their own collaborators.
package modl

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/MODLanguage/modl-go/pkg/modl/parser"
)

// CurrentVersion is the MODL language version this interpreter implements,
// checked against *VERSION directives.
const CurrentVersion = 1

// DefaultMaxRestarts caps the import-restart protocol.
const DefaultMaxRestarts = 32

// Options configures an interpretation pass. The zero value selects the
// current language version, the default restart cap, the file loader and the
// IDNA punycode hook.
type Options struct {
	// ModlVersion is the language version *VERSION directives must match.
	ModlVersion int

	// MaxRestarts caps how many times *IMPORT may restart the pass.
	MaxRestarts int

	// Loader resolves *IMPORT locations to MODL text.
	Loader Loader

	// PunycodeHook decodes non-reference grave parts.
	PunycodeHook PunycodeHook

	// Methods seeds the variable-method registry for this interpreter.
	Methods map[string]VariableMethod
}

func (o *Options) defaults() {
	if o.ModlVersion == 0 {
		o.ModlVersion = CurrentVersion
	}
	if o.MaxRestarts == 0 {
		o.MaxRestarts = DefaultMaxRestarts
	}
	if o.Loader == nil {
		o.Loader = FileLoader
	}
	if o.PunycodeHook == nil {
		o.PunycodeHook = DefaultPunycodeHook
	}
}

// DefaultPunycodeHook decodes IDNA ACE (xn--) labels to Unicode and leaves
// everything else untouched.
func DefaultPunycodeHook(text string) string {
	if !strings.Contains(text, "xn--") {
		return text
	}
	if decoded, err := idna.ToUnicode(text); err == nil {
		return decoded
	}
	return text
}

// Interpret parses, lowers and interprets MODL text. A nil opts selects all
// defaults.
func Interpret(text string, opts *Options) (*Document, error) {
	tree, err := parser.Parse(text)
	if err != nil {
		return nil, &ModlError{Type: SyntaxError, Message: err.Error(), Cause: err}
	}
	return InterpretDocument(Lower(tree), opts)
}

// InterpretDocument interprets an already-lowered raw document.
func InterpretDocument(raw *Document, opts *Options) (*Document, error) {
	var options Options
	if opts != nil {
		options = *opts
	}
	return NewInterpreter(options).Execute(raw)
}

// ToJSON parses, interprets and renders MODL text as JSON. This is generally
// the only function a client needs.
func ToJSON(text string, opts *Options) (string, error) {
	doc, err := Interpret(text, opts)
	if err != nil {
		return "", err
	}
	return EmitJSON(doc)
}

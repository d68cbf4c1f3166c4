package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/geofffranks/yaml"
	"github.com/mattn/go-isatty"
	"github.com/starkandwayne/goutils/ansi"
	"github.com/voxelbrain/goptions"

	"github.com/MODLanguage/modl-go/log"
	"github.com/MODLanguage/modl-go/pkg/modl"
)

// Version holds the current version of modl
var Version = "(development)"

var printfStdOut = func(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format, args...)
}

var getopts = func(o interface{}) {
	err := goptions.Parse(o)
	if err != nil {
		usage()
	}
}

var exit = func(code int) {
	os.Exit(code)
}

var usage = func() {
	goptions.PrintHelp()
	exit(1)
}

func envFlag(varname string) bool {
	val := os.Getenv(varname)
	return val != "" && strings.ToLower(val) != "false" && val != "0"
}

func main() {
	var options struct {
		Debug   bool               `goptions:"-D, --debug, description='Enable debugging'"`
		Trace   bool               `goptions:"-T, --trace, description='Enable trace mode debugging (very verbose)'"`
		Version bool               `goptions:"-v, --version, description='Display version information'"`
		Color   string             `goptions:"--color, description='Control color output (on/off/auto, default: auto)'"`
		YAML    bool               `goptions:"--yaml, description='Emit YAML instead of JSON'"`
		Help    bool               `goptions:"--help, -h"`
		Files   goptions.Remainder `goptions:"description='MODL files to interpret. To read STDIN, specify a filename of \\'-\\'.'"`
	}
	getopts(&options)

	if envFlag("DEBUG") || options.Debug {
		log.DebugOn = true
	}

	if envFlag("TRACE") || options.Trace {
		log.TraceOn = true
		log.DebugOn = true
	}

	if options.Help {
		usage()
		return
	}

	if options.Version {
		printfStdOut("%s - Version %s\n", os.Args[0], Version)
		exit(0)
		return
	}

	shouldEnableColor := false
	switch options.Color {
	case "on":
		shouldEnableColor = true
	case "off":
		shouldEnableColor = false
	case "auto", "":
		shouldEnableColor = isatty.IsTerminal(os.Stderr.Fd())
	default:
		log.PrintfStdErr("Invalid --color option: %s. Must be 'on', 'off', or 'auto'.\n", options.Color)
		exit(1)
		return
	}
	ansi.Color(shouldEnableColor)

	paths := []string(options.Files)
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	for _, path := range paths {
		text, err := readInput(path)
		if err != nil {
			log.PrintfStdErr("%s\n", err.Error())
			exit(2)
			return
		}

		doc, err := modl.Interpret(text, nil)
		if err != nil {
			log.PrintfStdErr("%s\n", err.Error())
			exit(2)
			return
		}

		output, err := render(doc, options.YAML)
		if err != nil {
			log.PrintfStdErr("%s\n", err.Error())
			exit(2)
			return
		}
		printfStdOut("%s\n", output)
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		log.DEBUG("Processing STDIN")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", ansi.Errorf("@R{Error reading STDIN}: %s", err.Error())
		}
		return string(data), nil
	}

	log.DEBUG("Processing file '%s'", path)
	// #nosec G304 - file paths come from the command line, which is the point
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ansi.Errorf("@R{Error reading file} @m{%s}: %s", path, err)
	}
	return string(data), nil
}

func render(doc *modl.Document, asYAML bool) (string, error) {
	if !asYAML {
		return modl.EmitJSON(doc)
	}

	log.TRACE("Converting the interpreted document to YAML")
	b, err := yaml.Marshal(deinterface(doc))
	if err != nil {
		return "", ansi.Errorf("@R{Unable to convert output to YAML}: %s", err.Error())
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// deinterface flattens the value tree into the generic shapes the YAML
// marshaller understands.
func deinterface(v modl.Value) interface{} {
	switch val := v.(type) {
	case *modl.Document:
		if pairs, ok := documentPairs(val); ok {
			return pairs
		}
		if len(val.Structures) == 1 {
			return deinterface(val.Structures[0])
		}
		list := []interface{}{}
		for _, s := range val.Structures {
			list = append(list, deinterface(s))
		}
		return list

	case modl.String:
		return string(val)

	case modl.Bool:
		return bool(val)

	case modl.Number:
		if val.IsInt() {
			return val.Int()
		}
		return val.Float()

	case *modl.Pair:
		return map[interface{}]interface{}{val.Key: deinterface(val.Value)}

	case *modl.Map:
		m := map[interface{}]interface{}{}
		for _, p := range val.Pairs() {
			m[p.Key] = deinterface(p.Value)
		}
		return m

	case *modl.Array:
		list := []interface{}{}
		for _, item := range val.Items() {
			list = append(list, deinterface(item))
		}
		return list
	}
	return nil
}

func documentPairs(doc *modl.Document) (map[interface{}]interface{}, bool) {
	if len(doc.Structures) == 0 {
		return map[interface{}]interface{}{}, true
	}
	m := map[interface{}]interface{}{}
	for _, s := range doc.Structures {
		p, ok := s.(*modl.Pair)
		if !ok {
			return nil, false
		}
		m[p.Key] = deinterface(p.Value)
	}
	return m, true
}

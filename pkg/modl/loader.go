package modl

import (
	"os"
	"strings"
)

// Loader resolves an import location to MODL text. Relative-path resolution
// and any security policy are the loader's concern.
type Loader func(location string) (string, error)

// FileLoader is the default loader: it reads the location as a UTF-8 file,
// appending the '.modl' extension when the location carries neither '.modl'
// nor '.txt'.
func FileLoader(location string) (string, error) {
	if !strings.HasSuffix(location, ".modl") && !strings.HasSuffix(location, ".txt") {
		location += ".modl"
	}
	// #nosec G304 - import locations come from the document being interpreted
	data, err := os.ReadFile(location)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

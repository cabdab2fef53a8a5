package rekitter

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the release of the library and its binaries.
var Version = strings.TrimSpace(version)

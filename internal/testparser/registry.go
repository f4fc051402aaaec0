package testparser

import (
	"sort"
	"strings"
)

// DefaultFormat is the output format assumed when none is configured.
const DefaultFormat = "go-json"

// Registry maps output format identifiers to their parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates a new parser registry with all built-in parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	// Register all built-in parsers
	jsonParser := &JSONParser{}
	goParser := &GoParser{}
	cargoParser := &CargoParser{}
	pytestParser := &PytestParser{}

	// Map format identifiers to parsers
	r.parsers["go-json"] = jsonParser
	r.parsers["gojson"] = jsonParser
	r.parsers["json"] = jsonParser
	r.parsers["go"] = goParser
	r.parsers["gotest"] = goParser
	r.parsers["cargo"] = cargoParser
	r.parsers["rs"] = cargoParser
	r.parsers["rust"] = cargoParser
	r.parsers["python"] = pytestParser
	r.parsers["py"] = pytestParser
	r.parsers["pytest"] = pytestParser

	return r
}

// GetParser returns a parser for the given format identifier.
// Returns nil if no parser is found.
func (r *Registry) GetParser(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// RegisterParser adds a custom parser for a format.
func (r *Registry) RegisterParser(format string, parser Parser) {
	r.parsers[strings.ToLower(format)] = parser
}

// Formats returns the registered format identifiers, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

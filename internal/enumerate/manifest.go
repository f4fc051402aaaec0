package enumerate

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"

	"gopkg.in/yaml.v3"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/schema"
)

// Manifest is a static list of tests, typically generated by a build step
// and checked against manifest.schema.json.
//
//	tests:
//	  - id: pkg/a.TestOne
//	    module: pkg/a
//	    cost: 2.5
type Manifest struct {
	Tests []model.TestCase `json:"tests" yaml:"tests"`
}

// ManifestEnumerator yields the tests listed in a YAML or JSON manifest file.
type ManifestEnumerator struct {
	Path string
}

// Enumerate reads and validates the manifest, then yields its tests in
// file order.
func (e *ManifestEnumerator) Enumerate(ctx context.Context) iter.Seq2[model.TestCase, error] {
	return func(yield func(model.TestCase, error) bool) {
		m, err := LoadManifest(e.Path)
		if err != nil {
			yield(model.TestCase{}, err)
			return
		}
		for _, tc := range m.Tests {
			if err := ctx.Err(); err != nil {
				yield(model.TestCase{}, tserrors.Discovery(err, "test discovery interrupted"))
				return
			}
			if !yield(tc, nil) {
				return
			}
		}
	}
}

// LoadManifest reads a manifest file. JSON is a subset of YAML, so both
// formats go through the YAML decoder before schema validation.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tserrors.Discovery(err, "failed to read test manifest")
	}
	return ParseManifest(data, path)
}

// ParseManifest decodes and validates manifest bytes. source names the
// input in error messages.
func ParseManifest(data []byte, source string) (*Manifest, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, tserrors.Discovery(err, fmt.Sprintf("%s: invalid manifest syntax", source))
	}

	// Re-encode as JSON for schema validation.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, tserrors.Discovery(err, fmt.Sprintf("%s: manifest is not representable as JSON", source))
	}
	if err := schema.ValidateManifest(jsonData); err != nil {
		return nil, tserrors.Discovery(err, source)
	}

	var m Manifest
	if err := json.Unmarshal(jsonData, &m); err != nil {
		return nil, tserrors.Discovery(err, fmt.Sprintf("%s: invalid manifest", source))
	}
	return &m, nil
}

// Package schema provides JSON schema validation for testshard configuration
// files, test manifests and suite reports.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/AndreyAkinshin/testshard/schema"
)

const (
	configSchemaName   = "config.schema.json"
	manifestSchemaName = "manifest.schema.json"
	reportSchemaName   = "report.schema.json"
)

var (
	compiled    map[string]*jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		names := []string{configSchemaName, manifestSchemaName, reportSchemaName}

		for _, name := range names {
			data, err := schemafs.FS.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("read %s: %w", name, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshal %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, doc); err != nil {
				compileErr = fmt.Errorf("add %s resource: %w", name, err)
				return
			}
		}

		result := make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			s, err := compiler.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compile %s: %w", name, err)
				return
			}
			result[name] = s
		}
		compiled = result
	})

	return compileErr
}

func validate(name, what string, data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := compiled[name].Validate(v); err != nil {
		return fmt.Errorf("%s validation failed: %w", what, err)
	}

	return nil
}

// ValidateConfig validates JSON data against the config schema.
func ValidateConfig(data []byte) error {
	return validate(configSchemaName, "config", data)
}

// ValidateManifest validates JSON data against the test manifest schema.
func ValidateManifest(data []byte) error {
	return validate(manifestSchemaName, "manifest", data)
}

// ValidateReport validates JSON data against the suite report schema.
func ValidateReport(data []byte) error {
	return validate(reportSchemaName, "report", data)
}

// Package report writes, reads and prints SuiteReports.
//
// JSON is the canonical format and is validated against the embedded report
// schema on write and on read. YAML output is the same document rendered in
// block style, so both formats share one schema.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/testshard/internal/model"
	"github.com/AndreyAkinshin/testshard/internal/schema"
)

// Format is a report serialization format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat converts a flag value into a Format. Empty selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (valid: json, yaml)", s)
}

// FormatForPath guesses the format from a file extension, falling back to def.
func FormatForPath(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".json":
		return JSON
	}
	return def
}

// Marshal serializes r in the given format.
func Marshal(r *model.SuiteReport, f Format) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := schema.ValidateReport(data); err != nil {
		return nil, err
	}
	data = append(data, '\n')

	switch f {
	case JSON:
		return data, nil
	case YAML:
		// JSON is YAML: decoding into a Node keeps the field order.
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		blockStyle(&doc)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown report format %q", f)
}

// blockStyle clears the flow and quoting styles inherited from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// Encode writes r to w.
func Encode(w io.Writer, r *model.SuiteReport, f Format) error {
	data, err := Marshal(r, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Write stores r at path, creating parent directories. The file is written
// to a temporary name first and renamed into place.
func Write(path string, r *model.SuiteReport, f Format) error {
	data, err := Marshal(r, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Read loads a report written by Write in either format.
func Read(path string) (*model.SuiteReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON or YAML report and validates it.
func Parse(data []byte) (*model.SuiteReport, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if err := schema.ValidateReport(raw); err != nil {
		return nil, err
	}
	var r model.SuiteReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

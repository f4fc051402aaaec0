// Package schema provides embedded JSON schemas for testshard configuration,
// test manifests and suite reports.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS

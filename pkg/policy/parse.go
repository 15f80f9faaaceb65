package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Format is a grid document encoding.
type Format string

const (
	// FormatJSON is a JSON array of rows, or an object with a "rows" array.
	FormatJSON Format = "json"
	// FormatYAML is the YAML equivalent of FormatJSON.
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file name. Anything that
// is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

const rowSchemaURL = "https://auditor.mercator.local/schemas/grid-row.schema.json"

// rowSchemaSource constrains a single row after key canonicalization.
// Column cells must be strings; anything else is a malformed row.
const rowSchemaSource = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "L1": {"type": ["string", "null"]},
    "L2": {"type": ["string", "null"]},
    "keywords": {
      "anyOf": [
        {"type": "array", "items": {"type": "string"}},
        {"type": "string"},
        {"type": "null"}
      ]
    }
  },
  "additionalProperties": {"type": ["string", "null"]}
}`

var (
	rowSchemaOnce sync.Once
	rowSchema     *jsonschema.Schema
	rowSchemaErr  error
)

func compiledRowSchema() (*jsonschema.Schema, error) {
	rowSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(rowSchemaURL, strings.NewReader(rowSchemaSource)); err != nil {
			rowSchemaErr = fmt.Errorf("grid schema load failed: %w", err)
			return
		}
		rowSchema, rowSchemaErr = c.Compile(rowSchemaURL)
		if rowSchemaErr != nil {
			rowSchemaErr = fmt.Errorf("grid schema compile failed: %w", rowSchemaErr)
		}
	})
	return rowSchema, rowSchemaErr
}

// Parse decodes a grid document and builds a table from its valid rows.
//
// Rows that are not objects or fail schema validation are quarantined.
// If meta.Version is empty it is set to the SHA-256 digest of data, and a
// zero meta.LoadedAt is set to the current time. Parse returns ErrNoRows when
// no row survives validation.
func Parse(data []byte, format Format, meta Metadata) (*Table, *LoadReport, error) {
	items, err := decodeRows(data, format)
	if err != nil {
		return nil, nil, err
	}

	schema, err := compiledRowSchema()
	if err != nil {
		return nil, nil, err
	}

	report := &LoadReport{Total: len(items)}
	rows := make([]Row, 0, len(items))

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			report.Quarantined = append(report.Quarantined, RowIssue{
				Index:  i,
				Reason: fmt.Sprintf("row is %s, not an object", jsonKind(item)),
			})
			continue
		}

		obj = canonicalKeys(obj)
		l1, _ := obj["L1"].(string)
		l2, _ := obj["L2"].(string)

		if err := schema.Validate(obj); err != nil {
			report.Quarantined = append(report.Quarantined, RowIssue{
				Index:  i,
				L1:     strings.TrimSpace(l1),
				L2:     strings.TrimSpace(l2),
				Reason: schemaReason(err),
			})
			continue
		}

		row, warnings := buildRow(obj)
		for _, w := range warnings {
			report.Warnings = append(report.Warnings, RowIssue{Index: i, L1: row.L1, L2: row.L2, Reason: w})
		}
		rows = append(rows, row)
	}

	report.Accepted = len(rows)
	if len(rows) == 0 {
		return nil, report, ErrNoRows
	}

	if meta.Version == "" {
		meta.Version = Digest(data)
	}
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = time.Now().UTC()
	}

	return &Table{rows: rows, meta: meta}, report, nil
}

// Digest returns the content digest used as a default grid version.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// decodeRows decodes the document into generic JSON values. YAML is
// re-encoded as JSON so both formats reach the schema validator in the same
// shape.
func decodeRows(data []byte, format Format) ([]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Format: format, Message: "document is empty"}
	}

	var doc any
	switch format {
	case FormatYAML:
		var yamlDoc any
		if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
			return nil, &ParseError{Format: format, Message: "invalid YAML", Cause: err}
		}
		encoded, err := json.Marshal(yamlDoc)
		if err != nil {
			return nil, &ParseError{Format: format, Message: "YAML is not representable as JSON", Cause: err}
		}
		if err := json.Unmarshal(encoded, &doc); err != nil {
			return nil, &ParseError{Format: format, Message: "invalid YAML", Cause: err}
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Format: FormatJSON, Message: "invalid JSON", Cause: err}
		}
	default:
		return nil, &ParseError{Format: format, Message: "unsupported format"}
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for key, value := range v {
			if strings.EqualFold(key, "rows") {
				if rows, ok := value.([]any); ok {
					return rows, nil
				}
				return nil, &ParseError{Format: format, Message: `"rows" must be an array`}
			}
		}
		return nil, &ParseError{Format: format, Message: `object document has no "rows" array`}
	default:
		return nil, &ParseError{Format: format, Message: fmt.Sprintf("document is %s, expected an array of rows", jsonKind(doc))}
	}
}

// canonicalKeys renames the case-insensitive reserved keys to their
// canonical spelling. Column keys are left untouched.
func canonicalKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "l1":
			out["L1"] = value
		case "l2":
			out["L2"] = value
		case "keywords", "keyword":
			out["keywords"] = value
		default:
			out[key] = value
		}
	}
	return out
}

var reservedKeys = map[string]bool{"L1": true, "L2": true, "keywords": true}

// buildRow converts a schema-valid object into a Row and returns any
// non-fatal warnings.
func buildRow(obj map[string]any) (Row, []string) {
	var warnings []string

	l1, _ := obj["L1"].(string)
	l2, _ := obj["L2"].(string)
	row := Row{
		L1:       strings.TrimSpace(l1),
		L2:       strings.TrimSpace(l2),
		Keywords: parseKeywords(obj["keywords"]),
		Actions:  make(map[ColumnKey]string),
	}

	if row.L1 == "" {
		warnings = append(warnings, "L1 is empty")
	}
	if row.L2 == "" {
		warnings = append(warnings, "L2 is empty")
	}

	keys := make([]string, 0, len(obj))
	for key := range obj {
		if !reservedKeys[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		col, ok := ParseColumnKey(key)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown column %q ignored", key))
			continue
		}
		text, _ := obj[key].(string)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		row.Actions[col] = text
	}

	return row, warnings
}

// parseKeywords accepts either a list of strings or a single comma or
// newline separated string. Blank entries are dropped.
func parseKeywords(v any) []string {
	var parts []string
	switch kw := v.(type) {
	case []any:
		for _, item := range kw {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	case string:
		parts = strings.FieldsFunc(kw, func(r rune) bool { return r == ',' || r == '\n' })
	}

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func schemaReason(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		if leaf.InstanceLocation != "" {
			return fmt.Sprintf("schema violation at %s: %s", leaf.InstanceLocation, leaf.Message)
		}
		return "schema violation: " + leaf.Message
	}
	return err.Error()
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64, json.Number:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

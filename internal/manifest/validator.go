package manifest

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	catalogSchema      = "catalog.schema.json"
	registryItemSchema = "registry-item.schema.json"
)

type compiledSchema struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	schemas = map[string]*compiledSchema{
		catalogSchema:      {},
		registryItemSchema: {},
	}
	printer = message.NewPrinter(language.English)
)

// ValidationResult contains the outcome of a schema validation.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue represents a single validation error from the schema.
type ValidationIssue struct {
	Path    string // Instance location (e.g., "/plugins/0/id")
	Message string // Human-readable error message
	Keyword string // Schema keyword location that failed
}

// Err folds the issues into a single error. Returns nil for a valid result.
func (r *ValidationResult) Err(label string) error {
	if r == nil || r.Valid {
		return nil
	}
	msgs := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if issue.Path != "" {
			msgs = append(msgs, issue.Path+": "+issue.Message)
		} else {
			msgs = append(msgs, issue.Message)
		}
	}
	return fmt.Errorf("invalid %s: %s", label, strings.Join(msgs, "; "))
}

// getSchema compiles the named embedded schema once and returns it.
func getSchema(name string) (*jsonschema.Schema, error) {
	cs, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	cs.once.Do(func() {
		raw, err := schemaFS.ReadFile("schema/" + name)
		if err != nil {
			cs.err = fmt.Errorf("reading schema %s: %w", name, err)
			return
		}
		cs.schema, cs.err = compile(name, raw)
	})
	return cs.schema, cs.err
}

func compile(name string, raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema JSON: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	schema, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return schema, nil
}

// Schema is a compiled JSON Schema document.
type Schema struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles a standalone JSON Schema document. name identifies
// the resource in error messages.
func CompileSchema(name string, raw []byte) (*Schema, error) {
	s, err := compile(name, raw)
	if err != nil {
		return nil, err
	}
	return &Schema{schema: s}, nil
}

// Validate checks a JSON document against the schema.
func (s *Schema) Validate(jsonData []byte) (*ValidationResult, error) {
	return check(s.schema, jsonData)
}

// ValidateCatalog validates a YAML or JSON catalog document.
// The error return is for parse or schema compilation failures; validation
// issues are returned in the ValidationResult.
func ValidateCatalog(data []byte) (*ValidationResult, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	// Round-trip through JSON so the validator sees json.Number values.
	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}
	return validate(catalogSchema, jsonData)
}

// ValidateRegistryItem validates a registry item JSON payload.
func ValidateRegistryItem(data []byte) (*ValidationResult, error) {
	return validate(registryItemSchema, data)
}

func validate(name string, jsonData []byte) (*ValidationResult, error) {
	schema, err := getSchema(name)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return check(schema, jsonData)
}

func check(schema *jsonschema.Schema, jsonData []byte) (*ValidationResult, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}

	return &ValidationResult{
		Valid:  false,
		Issues: extractIssues(validationErr),
	}, nil
}

// extractIssues walks the ValidationError tree and returns leaf-level issues.
func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectValidationIssues(ve, &issues)

	if len(issues) == 0 {
		return []ValidationIssue{{
			Message: ve.Error(),
		}}
	}
	return deduplicateIssues(issues)
}

// collectValidationIssues recursively walks the error tree to find leaf errors
// with specific property information.
func collectValidationIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		msg := ""
		if ve.ErrorKind != nil {
			if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		// Container keywords carry no useful detail on their own.
		if keyword == "allOf" || keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, ValidationIssue{
			Path:    path,
			Message: msg,
			Keyword: keyword,
		})
		return
	}

	for _, cause := range ve.Causes {
		collectValidationIssues(cause, issues)
	}
}

// deduplicateIssues removes duplicate issues (same path + keyword + message).
func deduplicateIssues(issues []ValidationIssue) []ValidationIssue {
	seen := make(map[string]bool)
	var result []ValidationIssue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}

// normalizeYAML converts YAML-decoded values to JSON-compatible types.
// yaml.v3 yields map[interface{}]interface{} for non-string keys, which
// encoding/json cannot marshal.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []interface{}:
		a := make([]interface{}, len(val))
		for i, v := range val {
			a[i] = normalizeYAML(v)
		}
		return a
	default:
		return val
	}
}
